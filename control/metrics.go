// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for the reactor and its worker pool.
// Every method is safe on a nil *Metrics so components can run unobserved.

package control

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Close reasons used as the "reason" label of connections_closed_total.
const (
	CloseEOF      = "eof"
	CloseError    = "error"
	CloseProtocol = "protocol"
	CloseRejected = "rejected"
	CloseLimit    = "limit"
	CloseShutdown = "shutdown"
)

// Metrics holds the registered collectors.
type Metrics struct {
	reg      prometheus.Registerer
	gatherer prometheus.Gatherer
	factory  promauto.Factory
	ns       string

	connsAccepted prometheus.Counter
	connsClosed   *prometheus.CounterVec
	connsActive   prometheus.Gauge
	acceptErrors  prometheus.Counter
	bytesRead     prometheus.Counter
	bytesWritten  prometheus.Counter
	messages      prometheus.Counter
	rejected      prometheus.Counter
	loopWakeups   prometheus.Counter
	writeStalls   prometheus.Counter
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWith(reg, reg, namespace)
}

// NewMetricsWith registers the collectors on reg and serves them from g.
func NewMetricsWith(reg prometheus.Registerer, g prometheus.Gatherer, namespace string) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{reg: reg, gatherer: g, factory: f, ns: namespace}

	m.connsAccepted = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "reactor", Name: "connections_accepted_total",
		Help: "Connections accepted by the reactor.",
	})
	m.connsClosed = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "reactor", Name: "connections_closed_total",
		Help: "Connections closed, by reason.",
	}, []string{"reason"})
	m.connsActive = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "reactor", Name: "connections_active",
		Help: "Connections currently registered with the reactor.",
	})
	m.acceptErrors = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "reactor", Name: "accept_errors_total",
		Help: "Failed accept calls other than spurious wakeups.",
	})
	m.bytesRead = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "reactor", Name: "read_bytes_total",
		Help: "Bytes read from connections.",
	})
	m.bytesWritten = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "reactor", Name: "written_bytes_total",
		Help: "Bytes written to connections.",
	})
	m.messages = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "reactor", Name: "messages_decoded_total",
		Help: "Complete messages extracted by the stream decoder.",
	})
	m.rejected = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "reactor", Name: "tasks_rejected_total",
		Help: "Request batches refused by the worker pool or the connection backlog.",
	})
	m.loopWakeups = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "reactor", Name: "poll_wakeups_total",
		Help: "Multiplexer waits that returned at least one event.",
	})
	m.writeStalls = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "reactor", Name: "write_stalls_total",
		Help: "Responses that could not be written in one non-blocking call.",
	})
	return m
}

// GaugeFunc registers a gauge whose value is sampled at scrape time.
func (m *Metrics) GaugeFunc(subsystem, name, help string, fn func() float64) {
	if m == nil {
		return
	}
	m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.ns, Subsystem: subsystem, Name: name, Help: help,
	}, fn)
}

// CounterFunc registers a counter whose value is sampled at scrape time.
func (m *Metrics) CounterFunc(subsystem, name, help string, fn func() float64) {
	if m == nil {
		return
	}
	m.factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: m.ns, Subsystem: subsystem, Name: name, Help: help,
	}, fn)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying gatherer, mostly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.gatherer
}

func (m *Metrics) ConnAccepted() {
	if m == nil {
		return
	}
	m.connsAccepted.Inc()
	m.connsActive.Inc()
}

func (m *Metrics) ConnClosed(reason string) {
	if m == nil {
		return
	}
	m.connsClosed.WithLabelValues(reason).Inc()
	m.connsActive.Dec()
}

// ConnRefused counts a connection closed before it was ever registered.
func (m *Metrics) ConnRefused(reason string) {
	if m == nil {
		return
	}
	m.connsClosed.WithLabelValues(reason).Inc()
}

func (m *Metrics) AcceptError() {
	if m == nil {
		return
	}
	m.acceptErrors.Inc()
}

func (m *Metrics) BytesRead(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesRead.Add(float64(n))
}

func (m *Metrics) BytesWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesWritten.Add(float64(n))
}

func (m *Metrics) MessagesDecoded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.messages.Add(float64(n))
}

func (m *Metrics) TaskRejected() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}

func (m *Metrics) PollWakeup() {
	if m == nil {
		return
	}
	m.loopWakeups.Inc()
}

func (m *Metrics) WriteStall() {
	if m == nil {
		return
	}
	m.writeStalls.Inc()
}
