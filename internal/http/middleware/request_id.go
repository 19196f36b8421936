package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/zRyyH/leiturista-hidro/internal/clients/interceptors"
)

const headerRequestID = "X-Request-Id"

// Чужой id принимается, только если его безопасно писать в логи и пересылать в API.
var requestIDRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID: id из заголовка клиента или новый UUID. Попадает в ответ и в
// контекст (interceptors.CtxRequestID), откуда уходит во все вызовы к API
// этого запроса.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerRequestID)
			if !requestIDRe.MatchString(id) {
				id = uuid.NewString()
			}
			r.Header.Set(headerRequestID, id)
			w.Header().Set(headerRequestID, id)

			ctx := context.WithValue(r.Context(), interceptors.CtxRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
