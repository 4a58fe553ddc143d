package reqctx

import "context"

type ctxKey string

const (
	keyRID    ctxKey = "request_id"
	keyUserID ctxKey = "user_id"
)

// WithRequestID stores the correlation id used in logs.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RequestID returns correlation id if present.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}

// WithUserID stores the authenticated user for logging only. Services take
// the actor id as an explicit argument and never read it from here.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, keyUserID, uid)
}

func UserID(ctx context.Context) string {
	v, _ := ctx.Value(keyUserID).(string)
	return v
}
