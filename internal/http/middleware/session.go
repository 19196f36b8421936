package middleware

import (
	"context"
	"net/http"

	"github.com/zRyyH/leiturista-hidro/internal/auth/session"
	apierrors "github.com/zRyyH/leiturista-hidro/internal/errors"
)

// Authenticator - проверка сессии (session.Gate).
type Authenticator interface {
	IsAuthenticated(ctx context.Context) bool
}

// RequireSession пропускает запрос только при действующей сессии.
// Иначе - 401 unauthenticated с Location на экран входа.
func RequireSession(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.IsAuthenticated(r.Context()) {
				apierrors.WriteError(w, r, session.ErrSessionExpired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
