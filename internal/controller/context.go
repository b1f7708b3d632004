package controller

import (
	"context"

	"github.com/syncbeats/server/internal/repository/connection"
)

type contextKey int

const (
	sessionCtxKey contextKey = iota
)

func (c controller) getSessionFromCtx(ctx context.Context) (connection.Session, bool) {
	session, ok := ctx.Value(sessionCtxKey).(connection.Session)
	return session, ok
}
