// metrics - счётчики жизненного цикла сессии и исходящих вызовов API.
// Нулевой *Metrics допустим: все методы становятся no-op.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "leiturista"

// Результаты цикла обновления.
const (
	RefreshOK        = "ok"
	RefreshFailed    = "failed"
	RefreshNoToken   = "no_refresh_token"
	RefreshMalformed = "malformed"
)

type Metrics struct {
	refreshes *prometheus.CounterVec
	waiters   prometheus.Counter
	retries   prometheus.Counter
	redirects prometheus.Counter
	calls     *prometheus.HistogramVec
}

// New регистрирует коллекторы в reg (nil - prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refresh_total",
			Help:      "Token refresh cycles by result.",
		}, []string{"result"}),
		waiters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refresh_waiters_total",
			Help:      "Callers that joined an in-flight refresh instead of starting one.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "request_retries_total",
			Help:      "Requests replayed after a 401.",
		}),
		redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "sign_in_redirects_total",
			Help:      "Forced navigations to the sign-in screen.",
		}),
		calls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Outbound API calls by method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}

	reg.MustRegister(m.refreshes, m.waiters, m.retries, m.redirects, m.calls)

	return m
}

func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) Waiter() {
	if m == nil {
		return
	}
	m.waiters.Inc()
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) Redirect() {
	if m == nil {
		return
	}
	m.redirects.Inc()
}

// Call - один исходящий вызов; status 0 означает транспортную ошибку.
func (m *Metrics) Call(method string, status int, dur time.Duration) {
	if m == nil {
		return
	}

	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.calls.WithLabelValues(method, code).Observe(dur.Seconds())
}
