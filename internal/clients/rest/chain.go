package rest

import "context"

// Invoker выполняет вызов.
type Invoker func(ctx context.Context, call *Call) error

// Interceptor оборачивает вызов; next - оставшаяся часть цепочки.
type Interceptor func(ctx context.Context, call *Call, next Invoker) error

// Chain собирает цепочку: первый интерсептор - внешний.
func Chain(final Invoker, ics ...Interceptor) Invoker {
	h := final
	for i := len(ics) - 1; i >= 0; i-- {
		ic, next := ics[i], h
		h = func(ctx context.Context, call *Call) error {
			return ic(ctx, call, next)
		}
	}

	return h
}
