package session

import (
	"context"
	"log/slog"
	"time"

	logctx "github.com/zRyyH/leiturista-hidro/pkg/log"
)

// DefaultWatchdogInterval - период проверки сессии.
const DefaultWatchdogInterval = 10 * time.Second

// Refresher - продление сессии по расписанию (реализует refresh.Coordinator).
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Watchdog периодически проверяет сессию и уводит на вход, когда она пропала.
type Watchdog struct {
	gate     *Gate
	nav      Navigator
	interval time.Duration

	refresher Refresher
	every     time.Duration
}

type WatchdogOption func(*Watchdog)

// WithKeepAlive - плановое продление сессии раз в every.
func WithKeepAlive(r Refresher, every time.Duration) WatchdogOption {
	return func(w *Watchdog) {
		w.refresher = r
		w.every = every
	}
}

func NewWatchdog(gate *Gate, nav Navigator, interval time.Duration, opts ...WatchdogOption) *Watchdog {
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}

	w := &Watchdog{gate: gate, nav: nav, interval: interval}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Check - одна проверка. false означает, что сессия очищена и выполнен переход на вход.
func (w *Watchdog) Check(ctx context.Context) bool {
	if w.gate.IsAuthenticated(ctx) {
		return true
	}

	w.gate.clear(ctx)
	if w.nav != nil && !w.nav.AtSignIn() {
		w.nav.ToSignIn(ctx, ErrSessionExpired)
	}

	return false
}

// Run блокируется до отмены ctx (nil) или до потери сессии (ErrSessionExpired).
// Первая проверка выполняется сразу.
func (w *Watchdog) Run(ctx context.Context) error {
	const op = "session/watchdog/Run"

	lg := logctx.From(ctx)
	lg.Info("watchdog_start",
		slog.String("op", op),
		slog.Duration("interval", w.interval),
		slog.Duration("keep_alive", w.keepAliveEvery()),
	)

	if !w.Check(ctx) {
		lg.Info("watchdog_session_lost", slog.String("op", op))
		return ErrSessionExpired
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var keepAlive <-chan time.Time
	if every := w.keepAliveEvery(); every > 0 {
		kt := time.NewTicker(every)
		defer kt.Stop()
		keepAlive = kt.C
	}

	for {
		select {
		case <-ctx.Done():
			lg.Info("watchdog_stop", slog.String("op", op))
			return nil
		case <-ticker.C:
			if !w.Check(ctx) {
				lg.Info("watchdog_session_lost", slog.String("op", op))
				return ErrSessionExpired
			}
		case <-keepAlive:
			w.keepAlive(ctx)
		}
	}
}

func (w *Watchdog) keepAliveEvery() time.Duration {
	if w.refresher == nil || w.every <= 0 {
		return 0
	}

	return w.every
}

func (w *Watchdog) keepAlive(ctx context.Context) {
	if !w.gate.IsAuthenticated(ctx) {
		return
	}

	// Ошибку только логируем: координатор уже очистил сессию, следующая проверка остановит сторожа.
	if _, err := w.refresher.Refresh(ctx); err != nil {
		logctx.From(ctx).Warn("keep_alive_refresh_failed", slog.String("err", err.Error()))
		return
	}

	logctx.From(ctx).Debug("keep_alive_refreshed")
}
