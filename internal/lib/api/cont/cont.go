package cont

import (
	"OrderFlow/entity"
	"context"
)

type sessionKey struct{}

func PutSession(ctx context.Context, session *entity.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func GetSession(ctx context.Context) *entity.Session {
	session, ok := ctx.Value(sessionKey{}).(*entity.Session)
	if !ok {
		return nil
	}
	return session
}
