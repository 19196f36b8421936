package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Refresh(RefreshOK)
	m.Refresh(RefreshOK)
	m.Refresh(RefreshFailed)
	m.Waiter()
	m.Retry()
	m.Redirect()
	m.Call("GET", 200, 10*time.Millisecond)
	m.Call("POST", 0, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.refreshes.WithLabelValues(RefreshOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues(RefreshFailed)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.waiters))
	require.Equal(t, 1.0, testutil.ToFloat64(m.retries))
	require.Equal(t, 1.0, testutil.ToFloat64(m.redirects))
	require.Equal(t, 2, testutil.CollectAndCount(m.calls))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.Refresh(RefreshOK)
		m.Waiter()
		m.Retry()
		m.Redirect()
		m.Call("GET", 200, time.Millisecond)
	})
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_ = New(reg)
	require.Panics(t, func() { _ = New(reg) })
}
