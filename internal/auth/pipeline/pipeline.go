// pipeline - интерсептор исходящих вызовов, который держит сессию живой:
// заранее продлевает истекающий токен, ставит Bearer и один раз повторяет
// вызов после 401.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zRyyH/leiturista-hidro/internal/auth/token"
	"github.com/zRyyH/leiturista-hidro/internal/clients/rest"
	"github.com/zRyyH/leiturista-hidro/internal/metrics"
	"github.com/zRyyH/leiturista-hidro/internal/tokenstore"
	logctx "github.com/zRyyH/leiturista-hidro/pkg/log"
)

// Refresher - общий цикл обновления (refresh.Coordinator). observed - токен,
// который видел вызывающий; если его уже заменили, обмена не будет.
type Refresher interface {
	RefreshFrom(ctx context.Context, observed string) (string, error)
}

type Pipeline struct {
	store     tokenstore.Store
	refresher Refresher
	inspector *token.Inspector
	metrics   *metrics.Metrics
}

type Option func(*Pipeline)

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func New(store tokenstore.Store, refresher Refresher, inspector *token.Inspector, opts ...Option) *Pipeline {
	if inspector == nil {
		inspector = token.NewInspector(token.DefaultThreshold)
	}

	p := &Pipeline{store: store, refresher: refresher, inspector: inspector}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Interceptor - звено цепочки rest.Chain.
func (p *Pipeline) Interceptor() rest.Interceptor {
	return func(ctx context.Context, call *rest.Call, next rest.Invoker) error {
		const op = "auth/pipeline"

		tok := tokenstore.Lookup(ctx, p.store, tokenstore.KeyAccessToken)

		// Упреждающее продление. При неудаче идём со старым токеном
		// и второй раз за этот вызов не продлеваем.
		preflightFailed := false
		if token.IsStructurallyValid(tok) && p.inspector.IsExpiringSoon(tok) {
			fresh, err := p.refresher.RefreshFrom(ctx, tok)
			if err != nil {
				preflightFailed = true
				logctx.From(ctx).Warn("preflight_refresh_failed",
					slog.String("op", op),
					slog.String("path", call.Path),
					slog.String("err", err.Error()),
				)
			} else {
				tok = fresh
			}
		}

		call.SetBearer(tok)

		err := next(ctx, call)
		if err == nil || !errors.Is(err, rest.ErrAuthExpired) || preflightFailed {
			return err
		}

		// 401: один повтор. Если токен уже обновил кто-то другой, берём его.
		fresh := tokenstore.Lookup(ctx, p.store, tokenstore.KeyAccessToken)
		if fresh == tok || !token.IsStructurallyValid(fresh) {
			var rerr error
			fresh, rerr = p.refresher.RefreshFrom(ctx, tok)
			if rerr != nil {
				return fmt.Errorf("%w: %w", err, rerr)
			}
		}

		p.metrics.Retry()
		logctx.From(ctx).Debug("request_retry", slog.String("op", op), slog.String("path", call.Path))

		call.SetBearer(fresh)

		return next(ctx, call)
	}
}
