package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/skillswap-backend/internal/ai"
	"github.com/shinyyama/skillswap-backend/internal/auth"
	"github.com/shinyyama/skillswap-backend/internal/cache"
	"github.com/shinyyama/skillswap-backend/internal/config"
	"github.com/shinyyama/skillswap-backend/internal/db"
	"github.com/shinyyama/skillswap-backend/internal/events"
	"github.com/shinyyama/skillswap-backend/internal/logging"
	"github.com/shinyyama/skillswap-backend/internal/middleware"
	"github.com/shinyyama/skillswap-backend/internal/server"
	"github.com/shinyyama/skillswap-backend/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	logger := logging.New(cfg.Env)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := openDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if conn != nil {
		if sqlDB, err := conn.DB(); err == nil {
			defer sqlDB.Close()
		}
	}

	deps := server.Deps{
		DB:               conn,
		Logger:           logger,
		CORSOriginSuffix: cfg.CORSOriginSuffix,
		GitSHA:           cfg.GitSHA,
		BuildTime:        cfg.BuildTime,
	}

	switch cfg.AuthProvider {
	case config.AuthProviderFirebase:
		fb, err := middleware.NewFirebaseAuthenticator(ctx, cfg.FirebaseProjectID, cfg.GCPCredentialsJSON)
		if err != nil {
			return err
		}
		deps.Authenticator = fb
		deps.Identity = fb
	default:
		tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
		deps.Authenticator = middleware.NewJWTAuthenticator(tokens)
		deps.Tokens = tokens
	}

	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, ban cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			deps.BanCache = cache.NewRedisBanCache(rdb, cfg.BanCacheTTL)
		}
	}

	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn("nats unavailable, swap events disabled", zap.Error(err))
		} else {
			defer pub.Close()
			deps.Publisher = pub
		}
	}

	if cfg.StorageBucket != "" {
		up, err := storage.NewGCSUploader(ctx, cfg.StorageBucket, cfg.GCPCredentialsJSON)
		if err != nil {
			logger.Warn("storage unavailable, photo upload disabled", zap.Error(err))
		} else {
			defer up.Close()
			deps.Photos = up
		}
	}

	if cfg.GeminiAPIKey != "" {
		drafter, err := ai.NewDrafter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			logger.Warn("gemini unavailable, message drafts disabled", zap.Error(err))
		} else {
			deps.Drafter = drafter
		}
	}

	srv := server.New(deps)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped cleanly")
	return nil
}

// openDB connects and migrates. A failed connection is logged and yields a nil
// handle so the server still starts and answers 503 on store-backed routes.
func openDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	conn, err := db.Connect(cfg)
	if err != nil {
		logger.Error("database unavailable, store-backed routes will answer 503",
			zap.String("driver", cfg.DBDriver), zap.Error(err))
		return nil, nil
	}
	if !cfg.MigrateOnStart {
		return conn, nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	m, err := db.NewMigrator(sqlDB, cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	if err := m.Up(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	logger.Info("migrations applied")
	return conn, nil
}
