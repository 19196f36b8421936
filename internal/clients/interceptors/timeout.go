package interceptors

import (
	"context"
	"time"

	"github.com/zRyyH/leiturista-hidro/internal/clients/rest"
)

// WithTimeout навешивает таймаут d на каждую попытку вызова, если у контекста
// ещё нет дедлайна. d <= 0 - no-op.
func WithTimeout(d time.Duration) rest.Interceptor {
	return func(ctx context.Context, call *rest.Call, next rest.Invoker) error {
		if d <= 0 {
			return next(ctx, call)
		}
		if _, ok := ctx.Deadline(); ok {
			return next(ctx, call)
		}

		cctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		return next(cctx, call)
	}
}
