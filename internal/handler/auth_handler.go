package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/skillswap-backend/internal/middleware"
	"github.com/shinyyama/skillswap-backend/internal/service"
	"go.uber.org/zap"
)

// IdentityLookup fetches a Firebase user's profile for first sign-in.
type IdentityLookup interface {
	Identity(ctx context.Context, uid string) (*middleware.FirebaseIdentity, error)
}

type AuthHandler struct {
	auth     service.AuthService
	users    service.UserService
	identity IdentityLookup
	logger   *zap.Logger
}

func NewAuthHandler(auth service.AuthService, users service.UserService, identity IdentityLookup, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, identity: identity, logger: logger}
}

type TokenResponse struct {
	Token     string     `json:"token"`
	ExpiresAt string     `json:"expiresAt"`
	User      MeResponse `json:"user"`
}

func toTokenResponse(res *service.LoginResult) TokenResponse {
	return TokenResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
		User:      toMeResponse(res.User),
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Location string `json:"location"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	res, err := h.auth.Register(c.Request().Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Location: req.Location,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, toTokenResponse(res))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}
	res, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toTokenResponse(res))
}

// ProvisionFirebase creates the local user row for the verified Firebase caller.
func (h *AuthHandler) ProvisionFirebase(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	if h.identity == nil {
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "firebase sign-in is not enabled"))
	}
	ctx := c.Request().Context()
	ident, err := h.identity.Identity(ctx, uid)
	if err != nil {
		h.logger.Warn("firebase user lookup failed", zap.String("user_id", uid), zap.Error(err))
		return c.JSON(http.StatusBadGateway, NewErrorResponse("identity_unavailable", "could not load firebase profile"))
	}
	u, err := h.users.EnsureFirebaseUser(ctx, uid, ident.DisplayName, ident.Email, ident.PhotoURL)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toMeResponse(u))
}
