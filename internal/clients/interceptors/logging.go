package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/zRyyH/leiturista-hidro/internal/clients/rest"
	"github.com/zRyyH/leiturista-hidro/internal/metrics"
	logctx "github.com/zRyyH/leiturista-hidro/pkg/log"
)

// Logging - одна запись на попытку: msg="api", method, path, status, dur.
// Не логирует тела и заголовок Authorization.
func Logging(base *slog.Logger) rest.Interceptor {
	return func(ctx context.Context, call *rest.Call, next rest.Invoker) error {
		start := time.Now()

		l := base
		if l == nil {
			l = logctx.From(ctx)
		}
		l = l.With(
			slog.String("request_id", call.Header.Get("X-Request-Id")),
			slog.String("method", call.Method),
			slog.String("path", call.Path),
		)
		ctx = logctx.Into(ctx, l)

		err := next(ctx, call)

		attrs := []slog.Attr{
			slog.Int("status", call.Status),
			slog.Duration("dur", time.Since(start)),
		}
		lvl := slog.LevelInfo
		if err != nil {
			lvl = slog.LevelWarn
			attrs = append(attrs, slog.String("err", err.Error()))
		}
		l.LogAttrs(ctx, lvl, "api", attrs...)

		return err
	}
}

// WithMetrics - гистограмма длительности по методу и коду ответа.
func WithMetrics(m *metrics.Metrics) rest.Interceptor {
	return func(ctx context.Context, call *rest.Call, next rest.Invoker) error {
		start := time.Now()
		err := next(ctx, call)
		m.Call(call.Method, call.Status, time.Since(start))

		return err
	}
}
