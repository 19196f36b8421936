package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/zRyyH/leiturista-hidro/internal/auth/session"
	"github.com/zRyyH/leiturista-hidro/internal/metrics"
	"github.com/zRyyH/leiturista-hidro/internal/models"
	"github.com/zRyyH/leiturista-hidro/internal/tokenstore"
	redisstore "github.com/zRyyH/leiturista-hidro/internal/tokenstore/redis"
)

// fakeExchanger - управляемый обменщик: считает вызовы и может ждать release.
type fakeExchanger struct {
	calls   atomic.Int32
	release chan struct{}
	gotRT   atomic.Value
	ctxErr  atomic.Value

	pair  models.TokenPair
	err   error
	panic bool
}

func (f *fakeExchanger) RefreshTokens(ctx context.Context, rt string) (models.TokenPair, error) {
	f.calls.Add(1)
	f.gotRT.Store(rt)

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return models.TokenPair{}, ctx.Err()
		}
	}
	if f.panic {
		panic("boom")
	}

	f.ctxErr.Store(errOrNil{ctx.Err()})

	return f.pair, f.err
}

type errOrNil struct{ err error }

var newPair = models.TokenPair{AccessToken: "new.access.tok", RefreshToken: "new-refresh"}

func seeded(t *testing.T, refresh string) *tokenstore.Memory {
	t.Helper()

	s := tokenstore.NewMemory()
	kv := map[string]string{
		tokenstore.KeyAccessToken: "old.access.tok",
		tokenstore.KeyUserData:    `{"id":"1"}`,
	}
	if refresh != "" {
		kv[tokenstore.KeyRefreshToken] = refresh
	}
	require.NoError(t, s.Set(context.Background(), kv))

	return s
}

func TestRefresh_OK(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := seeded(t, "old-refresh")
	nav := session.NewLocation(session.PathDashboard)
	ex := &fakeExchanger{pair: newPair}
	c := New(s, ex, nav, WithMetrics(metrics.New(prometheus.NewRegistry())))

	tok, err := c.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, newPair.AccessToken, tok)

	require.Equal(t, "old-refresh", ex.gotRT.Load())
	require.Equal(t, newPair.AccessToken, tokenstore.Lookup(ctx, s, tokenstore.KeyAccessToken))
	require.Equal(t, newPair.RefreshToken, tokenstore.Lookup(ctx, s, tokenstore.KeyRefreshToken))
	require.Equal(t, `{"id":"1"}`, tokenstore.Lookup(ctx, s, tokenstore.KeyUserData))

	require.False(t, c.Refreshing())
	require.Zero(t, c.Pending())
	require.Zero(t, nav.Redirects())
}

// N одновременных вызовов - ровно один обмен, все получают один и тот же токен.
func TestRefresh_ConcurrentCallersShareOneExchange(t *testing.T) {
	t.Parallel()

	const n = 8

	ctx := context.Background()
	s := seeded(t, "old-refresh")
	ex := &fakeExchanger{pair: newPair, release: make(chan struct{})}
	c := New(s, ex, session.NewLocation(session.PathDashboard))

	type out struct {
		tok string
		err error
	}
	results := make(chan out, n)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tok, err := c.Refresh(ctx)
		results <- out{tok, err}
	}()

	require.Eventually(t, c.Refreshing, time.Second, time.Millisecond)

	for i := 0; i < n-1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := c.Refresh(ctx)
			results <- out{tok, err}
		}()
	}

	require.Eventually(t, func() bool { return c.Pending() == n-1 }, time.Second, time.Millisecond)
	close(ex.release)
	wg.Wait()
	close(results)

	for r := range results {
		require.NoError(t, r.err)
		require.Equal(t, newPair.AccessToken, r.tok)
	}

	require.EqualValues(t, 1, ex.calls.Load())
	require.False(t, c.Refreshing())
	require.Zero(t, c.Pending())
}

// Ошибка обмена: все ожидающие получают ту же ошибку, переход на вход - один.
func TestRefresh_FailureRejectsAllAndRedirectsOnce(t *testing.T) {
	t.Parallel()

	const n = 5

	ctx := context.Background()
	s := seeded(t, "old-refresh")
	nav := session.NewLocation(session.PathDashboard)
	exErr := errors.New("refresh rejected")
	ex := &fakeExchanger{err: exErr, release: make(chan struct{})}
	c := New(s, ex, nav)

	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Refresh(ctx)
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return c.Refreshing() && c.Pending() == n-1 }, time.Second, time.Millisecond)
	close(ex.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.ErrorIs(t, err, exErr)
	}

	require.EqualValues(t, 1, ex.calls.Load())
	require.Zero(t, s.Len(), "сессия очищена")
	require.True(t, nav.AtSignIn())
	require.Equal(t, 1, nav.Redirects())
	require.False(t, c.Refreshing())
	require.Zero(t, c.Pending())
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	t.Parallel()

	s := seeded(t, "")
	nav := session.NewLocation(session.PathDashboard)
	ex := &fakeExchanger{pair: newPair}
	c := New(s, ex, nav)

	_, err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrNoRefreshToken)
	require.Zero(t, ex.calls.Load(), "без refresh-токена в сеть не ходим")
	require.Zero(t, s.Len())
	require.Equal(t, 1, nav.Redirects())
	require.False(t, c.Refreshing())
}

func TestRefresh_MalformedResponse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := seeded(t, "old-refresh")
	ex := &fakeExchanger{pair: models.TokenPair{AccessToken: "only.access.tok"}}
	c := New(s, ex, session.NewLocation(session.PathDashboard))

	_, err := c.Refresh(ctx)
	require.ErrorIs(t, err, ErrMalformedRefreshResponse)
	require.Zero(t, s.Len(), "половинчатая пара не записывается")
}

// На экране входа повторный переход не выполняется.
func TestRefresh_FailureAtSignInDoesNotNavigate(t *testing.T) {
	t.Parallel()

	nav := session.NewLocation(session.PathSignIn)
	c := New(seeded(t, "old-refresh"), &fakeExchanger{err: errors.New("x")}, nav)

	_, err := c.Refresh(context.Background())
	require.Error(t, err)
	require.Zero(t, nav.Redirects())
}

func TestRefresh_PanicResetsState(t *testing.T) {
	t.Parallel()

	s := seeded(t, "old-refresh")
	ex := &fakeExchanger{panic: true}
	c := New(s, ex, session.NewLocation(session.PathDashboard))

	_, err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrExchangePanic)
	require.False(t, c.Refreshing())
	require.Zero(t, s.Len())

	// После паники координатор снова принимает циклы.
	ex.panic = false
	ex.pair = newPair
	require.NoError(t, s.Set(context.Background(), map[string]string{tokenstore.KeyRefreshToken: "rt"}))

	tok, err := c.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, newPair.AccessToken, tok)
	require.EqualValues(t, 2, ex.calls.Load())
}

// Отмена контекста ожидающего не влияет на владельца и остальных.
func TestRefresh_WaiterCancellation(t *testing.T) {
	t.Parallel()

	s := seeded(t, "old-refresh")
	ex := &fakeExchanger{pair: newPair, release: make(chan struct{})}
	c := New(s, ex, session.NewLocation(session.PathDashboard))

	ownerDone := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background())
		ownerDone <- err
	}()
	require.Eventually(t, c.Refreshing, time.Second, time.Millisecond)

	wctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, err := c.Refresh(wctx)
		waiterDone <- err
	}()
	require.Eventually(t, func() bool { return c.Pending() == 1 }, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-waiterDone, context.Canceled)

	close(ex.release)
	require.NoError(t, <-ownerDone)
	require.False(t, c.Refreshing())
	require.Zero(t, c.Pending())
}

// Отмена контекста владельца не обрывает обмен.
func TestRefresh_ExchangeDetachedFromOwnerCancellation(t *testing.T) {
	t.Parallel()

	s := seeded(t, "old-refresh")
	ex := &fakeExchanger{pair: newPair, release: make(chan struct{})}
	c := New(s, ex, session.NewLocation(session.PathDashboard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Refresh(ctx)
		done <- err
	}()
	require.Eventually(t, c.Refreshing, time.Second, time.Millisecond)

	cancel()
	close(ex.release)

	require.NoError(t, <-done)
	require.Equal(t, errOrNil{nil}, ex.ctxErr.Load())
	require.Equal(t, newPair.AccessToken, tokenstore.Lookup(context.Background(), s, tokenstore.KeyAccessToken))
}

func TestRefresh_Timeout(t *testing.T) {
	t.Parallel()

	s := seeded(t, "old-refresh")
	ex := &fakeExchanger{pair: newPair, release: make(chan struct{})}
	c := New(s, ex, session.NewLocation(session.PathDashboard), WithTimeout(20*time.Millisecond))

	_, err := c.Refresh(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Zero(t, s.Len())
	require.False(t, c.Refreshing())
}

// Последовательные циклы не мешают друг другу.
func TestRefresh_SequentialCycles(t *testing.T) {
	t.Parallel()

	s := seeded(t, "old-refresh")
	ex := &fakeExchanger{pair: newPair}
	c := New(s, ex, nil)

	for i := 0; i < 3; i++ {
		_, err := c.Refresh(context.Background())
		require.NoError(t, err)
		require.False(t, c.Refreshing())
	}
	require.EqualValues(t, 3, ex.calls.Load())
}

// Цикл завершился между чтением токена и вызовом: второй обмен не нужен.
func TestRefreshFrom_ReplacedTokenSkipsExchange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := seeded(t, "old-refresh")
	ex := &fakeExchanger{pair: newPair}
	c := New(s, ex, session.NewLocation(session.PathDashboard))

	_, err := c.Refresh(ctx)
	require.NoError(t, err)

	tok, err := c.RefreshFrom(ctx, "old.access.tok")
	require.NoError(t, err)
	require.Equal(t, newPair.AccessToken, tok)
	require.EqualValues(t, 1, ex.calls.Load())
	require.False(t, c.Refreshing())
}

func TestRefreshFrom_SameTokenStartsCycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := seeded(t, "old-refresh")
	ex := &fakeExchanger{pair: newPair}
	c := New(s, ex, session.NewLocation(session.PathDashboard))

	tok, err := c.RefreshFrom(ctx, "old.access.tok")
	require.NoError(t, err)
	require.Equal(t, newPair.AccessToken, tok)
	require.EqualValues(t, 1, ex.calls.Load())
}

// Заменённый битым значением токен не переиспользуется.
func TestRefreshFrom_MalformedReplacementStartsCycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := seeded(t, "old-refresh")
	require.NoError(t, s.Set(ctx, map[string]string{tokenstore.KeyAccessToken: "abc"}))
	ex := &fakeExchanger{pair: newPair}
	c := New(s, ex, session.NewLocation(session.PathDashboard))

	tok, err := c.RefreshFrom(ctx, "old.access.tok")
	require.NoError(t, err)
	require.Equal(t, newPair.AccessToken, tok)
	require.EqualValues(t, 1, ex.calls.Load())
}

// Два процесса над одним Redis: обмен выполняет только один.
func TestRefresh_SharedStoreSingleExchangeAcrossCoordinators(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	shared := redisstore.NewFromClient(rdb, "test:")
	require.NoError(t, shared.Set(ctx, map[string]string{
		tokenstore.KeyAccessToken:  "old.access.tok",
		tokenstore.KeyRefreshToken: "old-refresh",
	}))

	exA := &fakeExchanger{pair: newPair, release: make(chan struct{})}
	exB := &fakeExchanger{pair: models.TokenPair{AccessToken: "other.access.tok", RefreshToken: "other-refresh"}}
	a := New(shared, exA, nil)
	b := New(shared, exB, nil)

	aDone := make(chan error, 1)
	go func() {
		_, err := a.Refresh(ctx)
		aDone <- err
	}()
	require.Eventually(t, func() bool { return exA.calls.Load() == 1 }, time.Second, time.Millisecond)

	type out struct {
		tok string
		err error
	}
	bDone := make(chan out, 1)
	go func() {
		tok, err := b.RefreshFrom(ctx, "old.access.tok")
		bDone <- out{tok, err}
	}()

	require.Never(t, func() bool { return exB.calls.Load() > 0 }, 150*time.Millisecond, 10*time.Millisecond)
	close(exA.release)

	require.NoError(t, <-aDone)
	r := <-bDone
	require.NoError(t, r.err)
	require.Equal(t, newPair.AccessToken, r.tok)
	require.Zero(t, exB.calls.Load())
	require.Equal(t, newPair.RefreshToken, tokenstore.Lookup(ctx, shared, tokenstore.KeyRefreshToken))
	require.False(t, mr.Exists("test:lock:refresh"))
}
