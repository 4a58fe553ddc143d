package logging

import (
	"context"

	"github.com/shinyyama/skillswap-backend/internal/reqctx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func New(env string) *zap.Logger {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.OutputPaths = []string{"stdout"}

	logger, err := config.Build()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}

	return logger
}

// FromContext decorates base with the request and user ids carried by ctx.
func FromContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if rid := reqctx.RequestID(ctx); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	if uid := reqctx.UserID(ctx); uid != "" {
		fields = append(fields, zap.String("user_id", uid))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
