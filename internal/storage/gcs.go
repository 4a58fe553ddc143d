package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/shinyyama/skillswap-backend/internal/gcp"
)

var ErrUnsupportedType = errors.New("unsupported content type")

var imageExt = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// AvatarPath returns the object path for a user's profile photo.
func AvatarPath(userID, contentType string) (string, error) {
	ext, ok := imageExt[strings.ToLower(contentType)]
	if !ok {
		return "", ErrUnsupportedType
	}
	return fmt.Sprintf("avatars/%s/%s.%s", userID, uuid.NewString(), ext), nil
}

// GCSUploader writes objects to a bucket and returns Firebase-style download URLs.
type GCSUploader struct {
	client *gcs.Client
	bucket string
}

func NewGCSUploader(ctx context.Context, bucket, credentialsJSON string) (*GCSUploader, error) {
	opts, err := gcp.ClientOptions(ctx, credentialsJSON, gcs.ScopeReadWrite)
	if err != nil {
		return nil, err
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	return &GCSUploader{client: client, bucket: bucket}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error) {
	token := uuid.NewString()
	w := u.client.Bucket(u.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": token,
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", objectPath, err)
	}
	return DownloadURL(u.bucket, objectPath, token), nil
}

func (u *GCSUploader) Close() error {
	return u.client.Close()
}

func DownloadURL(bucket, objectPath, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(objectPath), token)
}
