package session

import (
	"context"
	"log/slog"
	"sync"

	logctx "github.com/zRyyH/leiturista-hidro/pkg/log"
)

// Пути экранов клиента.
const (
	PathSignIn    = "/"
	PathDashboard = "/dashboard"
)

// Navigator - способность увести пользователя на экран входа.
// Ядро сессии не знает, что это: редирект в браузере, сообщение в CLI и т.п.
type Navigator interface {
	// AtSignIn - пользователь уже на экране входа.
	AtSignIn() bool
	// ToSignIn переводит на экран входа; cause - причина (может быть nil).
	ToSignIn(ctx context.Context, cause error)
}

// Location - Navigator, который просто помнит текущий экран.
type Location struct {
	mu        sync.Mutex
	current   string
	redirects int

	// OnRedirect вызывается после каждого перехода на вход (опционально).
	OnRedirect func(ctx context.Context, cause error)
}

func NewLocation(start string) *Location {
	if start == "" {
		start = PathSignIn
	}

	return &Location{current: start}
}

// Enter - пользователь открыл экран path.
func (l *Location) Enter(path string) {
	l.mu.Lock()
	l.current = path
	l.mu.Unlock()
}

func (l *Location) Current() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.current
}

// Redirects - сколько раз выполнялся переход на вход.
func (l *Location) Redirects() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.redirects
}

func (l *Location) AtSignIn() bool {
	return l.Current() == PathSignIn
}

func (l *Location) ToSignIn(ctx context.Context, cause error) {
	l.mu.Lock()
	from := l.current
	l.current = PathSignIn
	l.redirects++
	hook := l.OnRedirect
	l.mu.Unlock()

	attrs := []slog.Attr{slog.String("from", from)}
	if cause != nil {
		attrs = append(attrs, slog.String("cause", cause.Error()))
	}
	logctx.From(ctx).LogAttrs(ctx, slog.LevelInfo, "redirect_sign_in", attrs...)

	if hook != nil {
		hook(ctx, cause)
	}
}
