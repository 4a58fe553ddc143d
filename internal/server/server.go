package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/skillswap-backend/internal/auth"
	"github.com/shinyyama/skillswap-backend/internal/cache"
	"github.com/shinyyama/skillswap-backend/internal/events"
	"github.com/shinyyama/skillswap-backend/internal/handler"
	appmw "github.com/shinyyama/skillswap-backend/internal/middleware"
	"github.com/shinyyama/skillswap-backend/internal/repository"
	"github.com/shinyyama/skillswap-backend/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators built by cmd/api. Optional ones may be left nil.
type Deps struct {
	DB     *gorm.DB
	Logger *zap.Logger

	// Authenticator verifies bearer tokens. Tokens is set only for the jwt
	// provider and enables /auth/register and /auth/login; Identity only for firebase.
	Authenticator appmw.Authenticator
	Tokens        *auth.TokenService
	Identity      handler.IdentityLookup

	BanCache  service.BanCache
	Photos    service.PhotoStore
	Publisher events.Publisher
	Drafter   handler.MessageDrafter

	CORSOriginSuffix string
	GitSHA           string
	BuildTime        string
}

type Server struct {
	e      *echo.Echo
	logger *zap.Logger
}

func allowOrigin(suffix string) func(origin string) (bool, error) {
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false, nil
		}
		host := u.Hostname()
		if suffix != "" && strings.HasSuffix(host, suffix) {
			return true, nil
		}
		return false, nil
	}
}

func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if d.BanCache == nil {
		d.BanCache = cache.Noop{}
	}
	if d.Publisher == nil {
		d.Publisher = events.Noop{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(appmw.RequestContext)
	e.Use(appmw.RequestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(d.CORSOriginSuffix),
	}))

	userRepo := repository.NewUserRepository(d.DB)
	swapRepo := repository.NewSwapRepository(d.DB)
	notificationRepo := repository.NewNotificationRepository(d.DB)

	notifySvc := service.NewNotificationService(notificationRepo, logger)
	userSvc := service.NewUserService(userRepo, d.BanCache, d.Photos, logger)
	swapSvc := service.NewSwapService(swapRepo, userRepo, notifySvc, d.Publisher, logger)
	adminSvc := service.NewAdminService(userRepo, swapRepo, d.BanCache, logger)

	var authSvc service.AuthService
	if d.Tokens != nil {
		authSvc = service.NewAuthService(userRepo, d.Tokens, logger)
	}

	authMw := appmw.NewAuthMiddleware(d.Authenticator, userSvc, userSvc, logger)
	authHandler := handler.NewAuthHandler(authSvc, userSvc, d.Identity, logger)
	userHandler := handler.NewUserHandler(userSvc, logger)
	swapHandler := handler.NewSwapHandler(swapSvc, userSvc, notifySvc, d.Drafter, logger)
	notificationHandler := handler.NewNotificationHandler(notifySvc, logger)
	adminHandler := handler.NewAdminHandler(adminSvc, logger)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    d.GitSHA,
			"build_time": d.BuildTime,
		})
	})

	api := e.Group("/api")

	if authSvc != nil {
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
	}
	if d.Identity != nil {
		api.POST("/auth/firebase", authHandler.ProvisionFirebase, authMw.RequireAuth)
	}
	api.GET("/auth/me", userHandler.Me, authMw.RequireAuth)

	api.GET("/users", userHandler.Browse)
	api.GET("/users/:id", userHandler.GetProfile, authMw.OptionalAuth)
	api.PUT("/users/me", userHandler.UpdateMe, authMw.RequireAuth)
	api.PUT("/users/me/photo", userHandler.UploadPhoto, authMw.RequireAuth)

	swaps := api.Group("/swaps", authMw.RequireAuth)
	swaps.POST("", swapHandler.Propose)
	swaps.GET("", swapHandler.List)
	if d.Drafter != nil {
		swaps.POST("/draft", swapHandler.Draft)
	}
	swaps.GET("/:id", swapHandler.Get)
	swaps.PUT("/:id/status", swapHandler.UpdateStatus)
	swaps.DELETE("/:id", swapHandler.Cancel)
	swaps.POST("/:id/feedback", swapHandler.SubmitFeedback)

	api.GET("/notifications", notificationHandler.List, authMw.RequireAuth)
	api.POST("/notifications/read", notificationHandler.MarkAllRead, authMw.RequireAuth)

	admin := api.Group("/admin", authMw.RequireAuth, authMw.RequireAdmin)
	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/users", adminHandler.ListUsers)
	admin.PUT("/users/:id/ban", adminHandler.ToggleBan)
	admin.GET("/swaps", adminHandler.ListSwaps)
	admin.GET("/reports/users", adminHandler.UsersReport)
	admin.GET("/reports/swaps", adminHandler.SwapsReport)

	return &Server{e: e, logger: logger}
}

func (s *Server) Start(addr string) error {
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}
