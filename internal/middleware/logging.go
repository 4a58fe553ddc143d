package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/skillswap-backend/internal/reqctx"
	"go.uber.org/zap"
)

// RequestContext copies the request id set by echo's RequestID middleware into
// the request context so services can log it.
func RequestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rid := c.Response().Header().Get(echo.HeaderXRequestID)
		if rid != "" {
			req := c.Request()
			c.SetRequest(req.WithContext(reqctx.WithRequestID(req.Context(), rid)))
		}
		return next(c)
	}
}

// RequestLogger writes one zap entry per request.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			if uid, _ := c.Get("uid").(string); uid != "" {
				fields = append(fields, zap.String("user_id", uid))
			}
			switch {
			case v.Error != nil:
				logger.Error("request", append(fields, zap.Error(v.Error))...)
			case v.Status >= 500:
				logger.Error("request", fields...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		},
	})
}
