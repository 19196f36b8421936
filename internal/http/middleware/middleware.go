// middleware - цепочка обработчиков HTTP-бэкенда мобильного интерфейса.
package middleware

import (
	"net/http"
)

type Middleware func(http.Handler) http.Handler

// Chain: первый мидлвар - внешний.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// recorder видит, начат ли уже ответ: Recover и Timeout не пишут
// конверт ошибки поверх отправленных заголовков.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

// record не оборачивает повторно: внешний и внутренний мидлвар делят один recorder.
func record(w http.ResponseWriter) *recorder {
	if rec, ok := w.(*recorder); ok {
		return rec
	}
	return &recorder{ResponseWriter: w}
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

// Started - заголовки ответа уже ушли.
func (w *recorder) Started() bool { return w.status != 0 }

// Unwrap - для http.ResponseController.
func (w *recorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }
