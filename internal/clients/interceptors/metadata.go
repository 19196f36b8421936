// interceptors - интерсепторы исходящих вызовов REST-клиента.
package interceptors

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/zRyyH/leiturista-hidro/internal/clients/rest"
)

type CtxKey string

// CtxRequestID - id входящего запроса serve, его кладёт middleware.RequestID.
const CtxRequestID CtxKey = "request_id"

// WithMetadata добавляет в исходящий вызов заголовки:
//   - X-Request-Id (из контекста или новый UUID);
//   - User-Agent (если передан параметром).
func WithMetadata(userAgent string) rest.Interceptor {
	return func(ctx context.Context, call *rest.Call, next rest.Invoker) error {
		if call.Header == nil {
			call.Header = make(http.Header)
		}

		if call.Header.Get("X-Request-Id") == "" {
			rid, _ := ctx.Value(CtxRequestID).(string)
			if rid == "" {
				rid = uuid.NewString()
			}
			call.Header.Set("X-Request-Id", rid)
		}

		if userAgent != "" {
			call.Header.Set("User-Agent", userAgent)
		}

		return next(ctx, call)
	}
}
