// app собирает клиент: хранилище токенов, ядро сессии, цепочки REST-клиента
// и сервисы. Общий корень для CLI и команды serve.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zRyyH/leiturista-hidro/internal/auth/pipeline"
	"github.com/zRyyH/leiturista-hidro/internal/auth/refresh"
	"github.com/zRyyH/leiturista-hidro/internal/auth/session"
	"github.com/zRyyH/leiturista-hidro/internal/auth/token"
	"github.com/zRyyH/leiturista-hidro/internal/clients/directus"
	"github.com/zRyyH/leiturista-hidro/internal/clients/interceptors"
	"github.com/zRyyH/leiturista-hidro/internal/clients/rest"
	"github.com/zRyyH/leiturista-hidro/internal/config"
	"github.com/zRyyH/leiturista-hidro/internal/metrics"
	"github.com/zRyyH/leiturista-hidro/internal/models"
	"github.com/zRyyH/leiturista-hidro/internal/photo"
	"github.com/zRyyH/leiturista-hidro/internal/service"
	"github.com/zRyyH/leiturista-hidro/internal/tokenstore"
	boltstore "github.com/zRyyH/leiturista-hidro/internal/tokenstore/bolt"
	redisstore "github.com/zRyyH/leiturista-hidro/internal/tokenstore/redis"
	logctx "github.com/zRyyH/leiturista-hidro/pkg/log"
)

// App агрегирует все компоненты клиента.
type App struct {
	Config   *config.Config
	Store    tokenstore.Store
	Location *session.Location
	Gate     *session.Gate
	Metrics  *metrics.Metrics
	Refresh  *refresh.Coordinator
	API      *directus.Client
	Auth     *service.Auth
	Readings *service.Readings

	ctx      context.Context
	watchdog *session.Watchdog

	mu      sync.Mutex
	wdStop  context.CancelFunc
	wdGen   uint64
	wg      sync.WaitGroup
	closeMu sync.Once
}

type options struct {
	reg        prometheus.Registerer
	store      tokenstore.Store
	httpClient *http.Client
}

type Option func(*options)

// WithRegisterer - реестр метрик (по умолчанию prometheus.DefaultRegisterer).
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

// WithStore подменяет хранилище из конфигурации.
func WithStore(s tokenstore.Store) Option {
	return func(o *options) { o.store = s }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New собирает клиент. ctx живёт столько же, сколько процесс: от него
// наследуется контекст сторожа сессии.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	const op = "internal/app/New"

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = slog.Default()
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}

	store := o.store
	if store == nil {
		var err error
		if store, err = openStore(ctx, cfg.Store); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	m := metrics.New(o.reg)
	loc := session.NewLocation(session.PathSignIn)
	gate := session.NewGate(store, loc)

	// Цепочка исходящих вызовов: metadata -> [pipeline] -> timeout -> logging -> metrics.
	transport := rest.NewTransport(cfg.API.BaseURL, o.httpClient)
	base := []rest.Interceptor{
		interceptors.WithTimeout(cfg.Timeouts.Request),
		interceptors.Logging(nil),
		interceptors.WithMetrics(m),
	}
	meta := interceptors.WithMetadata(cfg.API.UserAgent)

	publicInv := rest.Chain(transport.Invoke, append([]rest.Interceptor{meta}, base...)...)
	public := directus.New(publicInv, publicInv, cfg.API.Endpoints)

	coord := refresh.New(store, public, loc,
		refresh.WithTimeout(cfg.Timeouts.Request),
		refresh.WithMetrics(m),
	)
	pipe := pipeline.New(store, coord, token.NewInspector(cfg.Session.RefreshThreshold), pipeline.WithMetrics(m))

	authedInv := rest.Chain(transport.Invoke, append([]rest.Interceptor{meta, pipe.Interceptor()}, base...)...)
	api := directus.New(authedInv, publicInv, cfg.API.Endpoints)

	a := &App{
		Config:   cfg,
		Store:    store,
		Location: loc,
		Gate:     gate,
		Metrics:  m,
		Refresh:  coord,
		API:      api,
		Auth:     service.NewAuth(api, store, gate),
		Readings: service.NewReadings(api, cfg.API.Endpoints, cfg.Status, photo.New(cfg.Photo.MaxSide, cfg.Photo.Quality)),
		ctx:      logctx.Into(ctx, log),
		watchdog: session.NewWatchdog(gate, loc, cfg.Session.WatchdogInterval,
			session.WithKeepAlive(coord, cfg.Session.RefreshEvery),
		),
	}

	// Любой переход на вход (выход, неуспешное продление, сторож) гасит сторожа.
	loc.OnRedirect = func(context.Context, error) { a.StopWatchdog() }

	// Сессия, сохранённая прошлым запуском, открывает сразу рабочий экран.
	if gate.IsAuthenticated(ctx) {
		loc.Enter(session.PathDashboard)
	}

	log.Info("app_ready",
		slog.String("op", op),
		slog.String("api", cfg.API.BaseURL),
		slog.String("store", cfg.Store.Driver),
		slog.String("location", loc.Current()),
	)

	return a, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (tokenstore.Store, error) {
	switch cfg.Driver {
	case config.StoreBolt:
		s, err := boltstore.New(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreRedis:
		s, err := redisstore.New(ctx, cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreMemory:
		return tokenstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Login - вход и переход на рабочий экран.
func (a *App) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := a.Auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	a.Location.Enter(session.PathDashboard)

	return u, nil
}

// Logout - выход; сторож останавливается через переход на вход.
func (a *App) Logout(ctx context.Context) {
	a.Auth.Logout(ctx)
	a.StopWatchdog()
}

// StartWatchdog запускает сторожа сессии в фоне, если он ещё не запущен.
func (a *App) StartWatchdog() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.wdStop != nil {
		return
	}

	ctx, cancel := context.WithCancel(a.ctx)
	a.wdStop = cancel
	a.wdGen++
	gen := a.wdGen

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer cancel()

		err := a.watchdog.Run(ctx)

		a.mu.Lock()
		if a.wdGen == gen {
			a.wdStop = nil
		}
		a.mu.Unlock()

		if err != nil {
			logctx.From(ctx).Info("watchdog_exit", slog.String("err", err.Error()))
		}
	}()
}

// StopWatchdog не ждёт завершения горутины: может вызываться из неё самой.
func (a *App) StopWatchdog() {
	a.mu.Lock()
	stop := a.wdStop
	a.wdStop = nil
	a.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (a *App) WatchdogRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.wdStop != nil
}

// Close останавливает сторожа и закрывает хранилище.
func (a *App) Close() error {
	var err error
	a.closeMu.Do(func() {
		a.StopWatchdog()
		a.wg.Wait()
		err = a.Store.Close()
	})

	return err
}
