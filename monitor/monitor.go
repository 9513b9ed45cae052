// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	ActiveRooms      *prometheus.GaugeVec
	MessagesReceived *prometheus.CounterVec
	RateLimited      prometheus.Counter
	Actions          *prometheus.CounterVec
	ActionLatency    *prometheus.HistogramVec
	GamesFinished    *prometheus.CounterVec
}

func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of open WebSocket sessions",
		}),
		ActiveRooms: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Number of rooms by status",
		}, []string{"status"}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of WebSocket packets received",
		}, []string{"type"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Actions dropped by the per-session rate limit",
		}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Dispatched actions by result code",
		}, []string{"action", "result"}),
		ActionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_latency_seconds",
			Help:      "Action processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"action"}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games played to a winner",
		}, []string{"mode"}),
	}

	registerer.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.MessagesReceived,
		m.RateLimited,
		m.Actions,
		m.ActionLatency,
		m.GamesFinished,
	)

	return m
}

// expvar 的名字是进程级的，只能发布一次
var (
	publishOnce  sync.Once
	startTime    = time.Now()
	requestCount atomic.Int64
)

type Monitor struct {
	metrics  *Metrics
	registry *prometheus.Registry
}

// NewMonitor builds a monitor on its own registry, so several monitors can
// live in one process (tests do this).
func NewMonitor(namespace string) *Monitor {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	publishOnce.Do(func() {
		// 添加expvar指标
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			return requestCount.Load()
		}))
	})
	return &Monitor{
		metrics:  NewMetrics(namespace, registry),
		registry: registry,
	}
}

// Handler serves the Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests and push gateways.
func (m *Monitor) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

// SetRooms records the room count for each status.
func (m *Monitor) SetRooms(waiting, playing, finished int) {
	m.metrics.ActiveRooms.WithLabelValues("waiting").Set(float64(waiting))
	m.metrics.ActiveRooms.WithLabelValues("playing").Set(float64(playing))
	m.metrics.ActiveRooms.WithLabelValues("finished").Set(float64(finished))
}

func (m *Monitor) IncMessagesReceived(msgType string) {
	m.metrics.MessagesReceived.WithLabelValues(msgType).Inc()
}

func (m *Monitor) IncRateLimited() {
	m.metrics.RateLimited.Inc()
}

func (m *Monitor) ObserveAction(action, result string, elapsed time.Duration) {
	requestCount.Add(1)
	if action == "" {
		action = "none"
	}
	m.metrics.Actions.WithLabelValues(action, result).Inc()
	m.metrics.ActionLatency.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (m *Monitor) GameFinished(mode string) {
	m.metrics.GamesFinished.WithLabelValues(mode).Inc()
}
