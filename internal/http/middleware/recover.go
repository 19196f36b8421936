package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/zRyyH/leiturista-hidro/internal/errors"
	logctx "github.com/zRyyH/leiturista-hidro/pkg/log"
)

var errPanic = errors.New("handler panic")

// Recover: паника обработчика - 500/internal без деталей для клиента.
// Если ответ уже начат, конверт не пишется. http.ErrAbortHandler
// пробрасывается дальше, его обрабатывает net/http.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := record(w)

			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "panic",
					slog.String("path", r.URL.Path),
					slog.Any("reason", p),
					slog.String("stack", string(debug.Stack())),
				)

				if !rec.Started() {
					apierrors.WriteError(rec, r, errPanic)
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
