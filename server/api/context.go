package api

import (
	"context"

	"github.com/GoCodeAlone/taskdash/session"
)

type contextKey int

const ctxKeySession contextKey = 0

// ContextWithSession attaches the authenticated session to ctx.
func ContextWithSession(ctx context.Context, sess session.Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, sess)
}

// SessionFromContext returns the authenticated session, if any.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(ctxKeySession).(session.Session)
	return sess, ok
}
