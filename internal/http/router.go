package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zRyyH/leiturista-hidro/internal/app"
	"github.com/zRyyH/leiturista-hidro/internal/http/handlers"
	"github.com/zRyyH/leiturista-hidro/internal/http/middleware"
)

// Options - параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; пустой - роуты на корне.
}

// NewRouter собирает http.Handler бэкенда мобильного интерфейса.
func NewRouter(a *app.App, opts Options) http.Handler {
	root := chi.NewRouter()

	// внешний -> внутренний
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования
		middleware.Logging(opts.Logger),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := handlers.New(a)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, a)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, a)
	return root
}

func registerRoutes(r chi.Router, h *handlers.Handlers, a *app.App) {
	// экран входа и аутентификация
	r.Get("/", h.SignIn)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/logout", h.Logout)

	// рабочие экраны - только с сессией
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(a.Gate))

		r.Get("/auth/me", h.Me)
		r.Get("/condominios", h.ListCondominiums)
		r.Get("/condominios/{id}/leituras", h.ListPending)
		r.Get("/leituras/{id}", h.GetReading)
		r.Post("/leituras/{id}", h.SubmitReading)
	})
}
