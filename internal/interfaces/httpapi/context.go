package httpapi

import (
	"context"

	"github.com/fplhq/minileague/internal/domain/session"
)

type contextKey string

const sessionContextKey contextKey = "auth_session"

func withSession(ctx context.Context, res session.Resolution) context.Context {
	return context.WithValue(ctx, sessionContextKey, res)
}

func sessionFromContext(ctx context.Context) (session.Resolution, bool) {
	res, ok := ctx.Value(sessionContextKey).(session.Resolution)
	return res, ok
}
