package gcp

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// ClientOptions builds client options from a service account key. An empty
// key yields no options so the client falls back to application default credentials.
func ClientOptions(ctx context.Context, credentialsJSON string, scopes ...string) ([]option.ClientOption, error) {
	if credentialsJSON == "" {
		return nil, nil
	}
	creds, err := google.CredentialsFromJSON(ctx, []byte(credentialsJSON), scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse gcp credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}
