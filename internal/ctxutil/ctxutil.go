package ctxutil

import (
	"context"
	"time"
)

// приватные ключи, чтобы исключить коллизии
type key int

const (
	keyActorID key = iota
	keyOpName
)

// WithActor /Actor — id пользователя, от имени которого выполняется команда.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyActorID, userID)
}

func Actor(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(keyActorID).(string)
	return id, ok && id != ""
}

// WithOp /Op — имя операции (для логов и тегов Sentry)
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keyOpName).(string)
	return s, ok
}

var (
	DefaultDBTimeout = 5 * time.Second
)

// WithDBTimeout — стандартный таймаут для обращения к хранилищу снимков.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		// если у родителя осталось меньше DefaultDBTimeout — берем остаток
		if remain := time.Until(dl); remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
