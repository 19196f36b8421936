package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/zRyyH/leiturista-hidro/internal/errors"
	logctx "github.com/zRyyH/leiturista-hidro/pkg/log"
)

// Timeout ограничивает запрос сроком d (d <= 0 - без ограничения; уже
// заданный срок не продлевается). Если обработчик вернулся после срока
// и ничего не ответил, клиент получает 504.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := ctx.Deadline(); !ok {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
				r = r.WithContext(ctx)
			}

			rec := record(w)
			next.ServeHTTP(rec, r)

			if !rec.Started() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logctx.From(ctx).Warn("request_deadline_exceeded", slog.String("path", r.URL.Path))
				apierrors.WriteError(rec, r, ctx.Err())
			}
		})
	}
}
