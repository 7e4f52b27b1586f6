package control

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControl_ConfigAndReload(t *testing.T) {
	ctrl := New()
	assert.Empty(t, ctrl.GetConfig())

	require.NoError(t, ctrl.SetConfig(map[string]any{"k": 1}))
	assert.Equal(t, 1, ctrl.GetConfig()["k"])

	called := 0
	ctrl.OnReload(func() { called++ })
	require.NoError(t, ctrl.SetConfig(map[string]any{"x": 2}))
	assert.Equal(t, 1, called, "reload hooks run synchronously")
}

func TestConfigStore_ValidatorBlocksWholeUpdate(t *testing.T) {
	cs := NewConfigStore()
	errNeg := errors.New("negative")
	cs.Validate("pool.max_workers", func(v any) error {
		if n, ok := AsInt(v); !ok || n <= 0 {
			return errNeg
		}
		return nil
	})

	reloaded := false
	cs.OnReload(func() { reloaded = true })

	err := cs.SetConfig(map[string]any{"pool.max_workers": -1, "other": "x"})
	require.ErrorIs(t, err, errNeg)
	assert.Empty(t, cs.GetSnapshot())
	assert.False(t, reloaded)

	require.NoError(t, cs.SetConfig(map[string]any{"pool.max_workers": 8}))
	n, ok := cs.GetInt("pool.max_workers")
	assert.True(t, ok)
	assert.Equal(t, 8, n)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	cs := NewConfigStore()
	require.NoError(t, cs.SetConfig(map[string]any{
		"a": float64(3),
		"b": "250ms",
		"c": 2 * time.Second,
		"d": "nope",
	}))
	n, ok := cs.GetInt("a")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	d, ok := cs.GetDuration("b")
	assert.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, d)

	d, ok = cs.GetDuration("c")
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	_, ok = cs.GetDuration("d")
	assert.False(t, ok)
	_, ok = cs.GetInt("missing")
	assert.False(t, ok)
}

func TestDebugHooks_ServeJSON(t *testing.T) {
	ctrl := New()
	ctrl.RegisterDebugHook("reactor.state", func() any { return "running" })

	rec := httptest.NewRecorder()
	ctrl.Debug().ServeHTTP(rec, httptest.NewRequest("GET", "/debug/state", nil))
	require.Equal(t, 200, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "running", out["reactor.state"])
	assert.Contains(t, out, "platform.cpus")
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics("test")
	m.ConnAccepted()
	m.ConnAccepted()
	m.ConnClosed(CloseEOF)
	m.BytesRead(10)
	m.MessagesDecoded(3)
	m.TaskRejected()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.connsAccepted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.connsActive))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.connsClosed.WithLabelValues(CloseEOF)))
	assert.Equal(t, float64(10), testutil.ToFloat64(m.bytesRead))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.messages))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rejected))
}

func TestMetrics_FuncCollectorsAndHandler(t *testing.T) {
	m := NewMetrics("test")
	m.GaugeFunc("pool", "workers", "Live workers.", func() float64 { return 4 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "test_pool_workers 4"), body)
	assert.True(t, strings.Contains(body, "test_reactor_connections_accepted_total 0"), body)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ConnAccepted()
		m.ConnClosed(CloseError)
		m.ConnRefused(CloseLimit)
		m.AcceptError()
		m.BytesRead(1)
		m.BytesWritten(1)
		m.MessagesDecoded(1)
		m.TaskRejected()
		m.PollWakeup()
		m.WriteStall()
		m.GaugeFunc("a", "b", "c", func() float64 { return 0 })
	})
}
