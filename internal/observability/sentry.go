package observability

import (
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Spok95/attendance-tracker/internal/apperr"
)

func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// CaptureOp — как CaptureErr, но с тегом операции.
// Ошибки ввода и «не найдено» — пользовательские, в Sentry их не шлём.
func CaptureOp(op string, err error) {
	if !IsSystemErr(err) {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("op", op)
		sentry.CaptureException(err)
	})
}

func IsSystemErr(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, apperr.ErrValidation) && !errors.Is(err, apperr.ErrNotFound)
}
