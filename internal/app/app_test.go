package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/zRyyH/leiturista-hidro/internal/auth/session"
	"github.com/zRyyH/leiturista-hidro/internal/config"
	"github.com/zRyyH/leiturista-hidro/internal/models"
	"github.com/zRyyH/leiturista-hidro/internal/tokenstore"
)

func silent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mint(t *testing.T, ttl time.Duration, sub string) string {
	t.Helper()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}).SignedString([]byte("test"))
	require.NoError(t, err)

	return tok
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Env: "local",
		API: config.APIConfig{
			BaseURL:   baseURL,
			UserAgent: "leiturista-test",
			Endpoints: config.EndpointsConfig{
				Login:        "/auth/login",
				Refresh:      "/auth/refresh",
				Logout:       "/auth/logout",
				Files:        "/files",
				Condominiums: "/items/condominios",
				Readings:     "/items/leituras_unidades",
			},
		},
		Status:   config.StatusConfig{Pending: "pendente", Submitted: "em análise"},
		Session:  config.SessionConfig{RefreshThreshold: 5 * time.Minute, WatchdogInterval: 20 * time.Millisecond},
		Store:    config.StoreConfig{Driver: config.StoreMemory},
		Photo:    config.PhotoConfig{MaxSide: 64, Quality: 80},
		Timeouts: config.TimeoutConfig{Request: 2 * time.Second, Service: 5 * time.Second},
	}
}

// fakeAPI - удалённое API: принимает только токены из active.
type fakeAPI struct {
	t *testing.T

	mu        sync.Mutex
	active    map[string]bool
	refreshes atomic.Int32
	logouts   atomic.Int32
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	f := &fakeAPI{t: t, active: map[string]bool{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	return f, srv
}

func (f *fakeAPI) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login":
		tok := mint(f.t, time.Hour, "u1")
		f.mu.Lock()
		f.active[tok] = true
		f.mu.Unlock()
		f.write(w, 200, map[string]any{"data": map[string]any{
			"access_token":  tok,
			"refresh_token": "r1",
			"user":          map[string]any{"id": "u1", "first_name": "Ana", "email": "ana@example.com"},
		}})
	case "/auth/refresh":
		f.refreshes.Add(1)
		tok := mint(f.t, time.Hour, "u1-refreshed")
		f.mu.Lock()
		f.active = map[string]bool{tok: true}
		f.mu.Unlock()
		f.write(w, 200, map[string]any{"data": map[string]any{"access_token": tok, "refresh_token": "r2"}})
	case "/auth/logout":
		f.logouts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	case "/items/condominios":
		tok := r.Header.Get("Authorization")
		f.mu.Lock()
		ok := len(tok) > 7 && f.active[tok[7:]]
		f.mu.Unlock()
		if !ok {
			f.write(w, 401, map[string]any{"errors": []any{map[string]any{
				"message": "Token expired.", "extensions": map[string]any{"code": "TOKEN_EXPIRED"},
			}}})
			return
		}
		f.write(w, 200, map[string]any{"data": []any{map[string]any{"id": 1, "nome": "Aurora"}}})
	default:
		http.NotFound(w, r)
	}
}

// revoke делает все выданные токены недействительными (как истечение на сервере).
func (f *fakeAPI) revoke() {
	f.mu.Lock()
	f.active = map[string]bool{}
	f.mu.Unlock()
}

func newApp(t *testing.T, cfg *config.Config, opts ...Option) (*App, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	opts = append([]Option{WithRegisterer(reg)}, opts...)
	a, err := New(context.Background(), cfg, silent(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return a, reg
}

// counter - значение счётчика без меток из реестра (0, если не найден).
func counter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}

	return 0
}

const retriesMetric = "leiturista_session_request_retries_total"

func TestApp_LoginListAndReactiveRefresh(t *testing.T) {
	t.Parallel()

	f, srv := newFakeAPI(t)
	a, reg := newApp(t, testConfig(srv.URL))
	ctx := context.Background()

	require.True(t, a.Location.AtSignIn())

	u, err := a.Login(ctx, "ana@example.com", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "Ana", u.DisplayName())
	require.Equal(t, session.PathDashboard, a.Location.Current())

	got, err := a.Readings.ListCondominiums(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.Condominium{{ID: 1, Name: "Aurora"}}, got)
	require.Equal(t, int32(0), f.refreshes.Load())

	// сервер отозвал токен: 401 -> продление -> один повтор
	f.revoke()

	got, err = a.Readings.ListCondominiums(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int32(1), f.refreshes.Load())
	require.Equal(t, "r2", tokenstore.Lookup(ctx, a.Store, tokenstore.KeyRefreshToken))
	require.Equal(t, float64(1), counter(t, reg, retriesMetric))
}

func TestApp_ProactiveRefreshForExpiringToken(t *testing.T) {
	t.Parallel()

	f, srv := newFakeAPI(t)
	a, reg := newApp(t, testConfig(srv.URL))
	ctx := context.Background()

	require.NoError(t, tokenstore.SavePair(ctx, a.Store, models.TokenPair{
		AccessToken:  mint(t, time.Minute, "u1"),
		RefreshToken: "r1",
	}))

	_, err := a.Readings.ListCondominiums(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), f.refreshes.Load())
	require.Equal(t, float64(0), counter(t, reg, retriesMetric))
}

func TestApp_RestoresPersistedSession(t *testing.T) {
	t.Parallel()

	_, srv := newFakeAPI(t)
	store := tokenstore.NewMemory()
	require.NoError(t, tokenstore.SavePair(context.Background(), store, models.TokenPair{
		AccessToken:  mint(t, time.Hour, "u1"),
		RefreshToken: "r1",
	}))

	a, _ := newApp(t, testConfig(srv.URL), WithStore(store))

	require.Equal(t, session.PathDashboard, a.Location.Current())
}

func TestApp_LogoutRevokesAndStopsWatchdog(t *testing.T) {
	t.Parallel()

	f, srv := newFakeAPI(t)
	a, _ := newApp(t, testConfig(srv.URL))
	ctx := context.Background()

	_, err := a.Login(ctx, "ana@example.com", "s3cret")
	require.NoError(t, err)

	a.StartWatchdog()
	a.StartWatchdog()
	require.True(t, a.WatchdogRunning())

	a.Logout(ctx)

	require.False(t, a.WatchdogRunning())
	require.True(t, a.Location.AtSignIn())
	require.Equal(t, int32(1), f.logouts.Load())
	require.Equal(t, "", tokenstore.Lookup(ctx, a.Store, tokenstore.KeyAccessToken))
}

func TestApp_WatchdogDetectsLostSession(t *testing.T) {
	t.Parallel()

	_, srv := newFakeAPI(t)
	a, _ := newApp(t, testConfig(srv.URL))
	ctx := context.Background()

	_, err := a.Login(ctx, "ana@example.com", "s3cret")
	require.NoError(t, err)
	a.StartWatchdog()

	// токен пропал вне приложения (другая вкладка, ручная очистка)
	require.NoError(t, a.Store.Delete(ctx, tokenstore.KeyAccessToken))

	require.Eventually(t, func() bool {
		return !a.WatchdogRunning() && a.Location.AtSignIn()
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "", tokenstore.Lookup(ctx, a.Store, tokenstore.KeyRefreshToken))
}

func TestApp_BoltStore(t *testing.T) {
	t.Parallel()

	_, srv := newFakeAPI(t)
	cfg := testConfig(srv.URL)
	cfg.Store = config.StoreConfig{Driver: config.StoreBolt, BoltPath: filepath.Join(t.TempDir(), "s.db")}

	a, _ := newApp(t, cfg)
	_, err := a.Login(context.Background(), "ana@example.com", "s3cret")
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := openStore(context.Background(), config.StoreConfig{Driver: "etcd"})
	require.Error(t, err)
}
