package middleware

import (
	"context"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/skillswap-backend/internal/auth"
	"github.com/shinyyama/skillswap-backend/internal/gcp"
	"github.com/shinyyama/skillswap-backend/internal/model"
	"github.com/shinyyama/skillswap-backend/internal/reqctx"
	"go.uber.org/zap"
)

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

type JWTAuthenticator struct {
	tokens *auth.TokenService
}

func NewJWTAuthenticator(tokens *auth.TokenService) *JWTAuthenticator {
	return &JWTAuthenticator{tokens: tokens}
}

func (a *JWTAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// FirebaseIdentity is what Firebase knows about a signed-in user.
type FirebaseIdentity struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
}

type FirebaseAuthenticator struct {
	client *fbauth.Client
}

func NewFirebaseAuthenticator(ctx context.Context, projectID, credentialsJSON string) (*FirebaseAuthenticator, error) {
	opts, err := gcp.ClientOptions(ctx, credentialsJSON, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, err
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &FirebaseAuthenticator{client: client}, nil
}

func (a *FirebaseAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	tok, err := a.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}
	return tok.UID, nil
}

func (a *FirebaseAuthenticator) Identity(ctx context.Context, uid string) (*FirebaseIdentity, error) {
	rec, err := a.client.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &FirebaseIdentity{UID: rec.UID, DisplayName: rec.DisplayName, Email: rec.Email, PhotoURL: rec.PhotoURL}, nil
}

type BanChecker interface {
	IsBanned(ctx context.Context, uid string) (bool, error)
}

type UserLookup interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

type AuthMiddleware struct {
	authn  Authenticator
	bans   BanChecker
	users  UserLookup
	logger *zap.Logger
}

func NewAuthMiddleware(authn Authenticator, bans BanChecker, users UserLookup, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{authn: authn, bans: bans, users: users, logger: logger}
}

func errorJSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, echo.Map{"error": echo.Map{"code": code, "message": message}})
}

func bearerToken(c echo.Context) string {
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
}

func setUID(c echo.Context, uid string) {
	c.Set("uid", uid)
	req := c.Request()
	c.SetRequest(req.WithContext(reqctx.WithUserID(req.Context(), uid)))
}

// RequireAuth rejects requests without a valid token and requests from banned users.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			return errorJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		}
		ctx := c.Request().Context()
		uid, err := m.authn.Authenticate(ctx, tokenStr)
		if err != nil {
			return errorJSON(c, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
		}
		banned, err := m.bans.IsBanned(ctx, uid)
		if err != nil {
			m.logger.Error("ban check failed", zap.String("user_id", uid), zap.Error(err))
			return errorJSON(c, http.StatusServiceUnavailable, "unavailable", "could not verify account status")
		}
		if banned {
			return errorJSON(c, http.StatusForbidden, "banned", "account is banned")
		}
		setUID(c, uid)
		return next(c)
	}
}

// OptionalAuth sets uid when a valid token is present and otherwise passes through.
func (m *AuthMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if tokenStr := bearerToken(c); tokenStr != "" {
			if uid, err := m.authn.Authenticate(c.Request().Context(), tokenStr); err == nil {
				setUID(c, uid)
			}
		}
		return next(c)
	}
}

// RequireAdmin must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, _ := c.Get("uid").(string)
		if uid == "" {
			return errorJSON(c, http.StatusUnauthorized, "unauthorized", "missing uid")
		}
		u, err := m.users.Get(c.Request().Context(), uid)
		if err != nil || !u.IsAdmin() {
			return errorJSON(c, http.StatusForbidden, "forbidden", "admin only")
		}
		return next(c)
	}
}
