package api

import "context"

type contextKey string

const userIDKey contextKey = "userID"

func contextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// userIDFromContext returns the authenticated user id. It is only called on
// routes behind JWTAuthMiddleware, which always sets the value.
func userIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}
