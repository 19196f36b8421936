// refresh - единственный цикл обмена refresh-токена.
//
// Первый вызвавший Refresh становится владельцем цикла и выполняет обмен,
// остальные встают в очередь и получают тот же результат в порядке
// прихода. Состояние "идёт обновление" никогда не переживает завершение
// цикла: сброс выполняется в defer, в том числе при панике обменщика.
//
// В пределах процесса циклы объединяет мьютекс. Если хранилище общее
// (tokenstore.Locker), обмен дополнительно берёт блокировку хранилища.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zRyyH/leiturista-hidro/internal/auth/session"
	"github.com/zRyyH/leiturista-hidro/internal/auth/token"
	"github.com/zRyyH/leiturista-hidro/internal/metrics"
	"github.com/zRyyH/leiturista-hidro/internal/models"
	"github.com/zRyyH/leiturista-hidro/internal/tokenstore"
	logctx "github.com/zRyyH/leiturista-hidro/pkg/log"
)

// DefaultTimeout - предел на один обмен токена.
const DefaultTimeout = 30 * time.Second

const lockName = "refresh"

var (
	// ErrNoRefreshToken - в хранилище нет refresh-токена; продлить сессию нельзя.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrMalformedRefreshResponse - API ответило успехом, но без одной из половин пары.
	ErrMalformedRefreshResponse = errors.New("malformed refresh response")

	// ErrExchangePanic - обменщик запаниковал; цикл завершён как неуспешный.
	ErrExchangePanic = errors.New("refresh exchange panicked")
)

// Exchanger - вызов POST /auth/refresh.
type Exchanger interface {
	RefreshTokens(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

type result struct {
	token string
	err   error
}

type Coordinator struct {
	store   tokenstore.Store
	ex      Exchanger
	nav     session.Navigator
	timeout time.Duration
	metrics *metrics.Metrics

	mu         sync.Mutex
	refreshing bool
	queue      []chan result
}

type Option func(*Coordinator)

func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func New(store tokenstore.Store, ex Exchanger, nav session.Navigator, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		ex:      ex,
		nav:     nav,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Refresh возвращает новый access-токен. Если цикл уже идёт, ждёт его результата.
// Отмена ctx снимает с ожидания только этого вызывающего; сам обмен не прерывается.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	return c.RefreshFrom(ctx, "")
}

// RefreshFrom - Refresh для вызывающего, который видел токен observed.
// Если observed в хранилище уже заменён структурно верным токеном
// (цикл завершился между чтением и вызовом), новый цикл не начинается.
func (c *Coordinator) RefreshFrom(ctx context.Context, observed string) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan result, 1)
		c.queue = append(c.queue, ch)
		c.mu.Unlock()

		c.metrics.Waiter()

		select {
		case r := <-ch:
			return r.token, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if observed != "" {
		if cur, ok := c.replaced(ctx, observed); ok {
			c.mu.Unlock()
			logctx.From(ctx).Debug("refresh_already_done")
			return cur, nil
		}
	}

	c.refreshing = true
	c.mu.Unlock()

	return c.own(ctx, observed)
}

// replaced - текущий access-токен, если он отличается от observed и похож на JWT.
func (c *Coordinator) replaced(ctx context.Context, observed string) (string, bool) {
	cur := tokenstore.Lookup(ctx, c.store, tokenstore.KeyAccessToken)

	return cur, cur != observed && token.IsStructurallyValid(cur)
}

// Refreshing - идёт ли сейчас цикл.
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.refreshing
}

// Pending - число ожидающих в очереди.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.queue)
}

func (c *Coordinator) own(ctx context.Context, observed string) (tok string, err error) {
	const op = "auth/refresh/Refresh"

	lg := logctx.From(ctx)
	start := time.Now()
	lg.Info("refresh_started", slog.String("op", op))

	// Обмен не зависит от отмены вызывающего: результат нужен и очереди.
	xctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)

	defer func() {
		if rec := recover(); rec != nil {
			tok, err = "", fmt.Errorf("%s: %w: %v", op, ErrExchangePanic, rec)
		}

		if err != nil {
			lg.Warn("refresh_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
				slog.Duration("dur", time.Since(start)),
			)
			c.terminate(context.WithoutCancel(ctx), err)
		} else {
			c.metrics.Refresh(metrics.RefreshOK)
			lg.Info("refresh_ok", slog.String("op", op), slog.Duration("dur", time.Since(start)))
		}

		cancel()
		c.settle(tok, err)
	}()

	if observed == "" {
		observed = tokenstore.Lookup(xctx, c.store, tokenstore.KeyAccessToken)
	}

	// Общее хранилище: обмен выполняет один процесс, остальные ждут блокировку
	// и забирают уже записанную пару.
	if l, ok := c.store.(tokenstore.Locker); ok {
		unlock, lerr := l.Lock(xctx, lockName, c.timeout)
		if lerr != nil {
			return "", fmt.Errorf("%s: %w", op, lerr)
		}
		defer unlock()

		if cur, ok := c.replaced(xctx, observed); ok {
			lg.Info("refresh_done_elsewhere", slog.String("op", op))
			return cur, nil
		}
	}

	rt, ok, gerr := c.store.Get(xctx, tokenstore.KeyRefreshToken)
	if gerr != nil {
		return "", fmt.Errorf("%s: %w", op, gerr)
	}
	if !ok || rt == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	pair, xerr := c.ex.RefreshTokens(xctx, rt)
	if xerr != nil {
		return "", fmt.Errorf("%s: %w", op, xerr)
	}
	if !pair.Complete() {
		return "", fmt.Errorf("%s: %w", op, ErrMalformedRefreshResponse)
	}

	if serr := tokenstore.SavePair(xctx, c.store, pair); serr != nil {
		return "", fmt.Errorf("%s: %w", op, serr)
	}

	return pair.AccessToken, nil
}

// terminate - неуспешный цикл: сессия очищается, пользователь уходит на вход.
func (c *Coordinator) terminate(ctx context.Context, cause error) {
	switch {
	case errors.Is(cause, ErrNoRefreshToken):
		c.metrics.Refresh(metrics.RefreshNoToken)
	case errors.Is(cause, ErrMalformedRefreshResponse):
		c.metrics.Refresh(metrics.RefreshMalformed)
	default:
		c.metrics.Refresh(metrics.RefreshFailed)
	}

	if err := tokenstore.Clear(ctx, c.store); err != nil {
		logctx.From(ctx).Warn("refresh_clear_failed", slog.String("err", err.Error()))
	}

	if c.nav != nil && !c.nav.AtSignIn() {
		c.metrics.Redirect()
		c.nav.ToSignIn(ctx, cause)
	}
}

// settle сбрасывает состояние и раздаёт результат очереди в порядке FIFO.
func (c *Coordinator) settle(tok string, err error) {
	c.mu.Lock()
	queue := c.queue
	c.queue = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, ch := range queue {
		ch <- result{token: tok, err: err}
	}
}
