package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "drivesound"

// metrics are registered on a per-server registry so several servers can
// coexist in one process.
type metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	SessionsStarted    *prometheus.CounterVec
	SessionsCompleted  *prometheus.CounterVec
	AudioCheckFailures prometheus.Counter
	PersistFailures    prometheus.Counter
	ActiveSessions     prometheus.Gauge
	SessionsReaped     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"route"},
		),
		SessionsStarted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "survey",
				Name:      "sessions_started_total",
				Help:      "Sessions started by counterbalancing group",
			},
			[]string{"group"},
		),
		SessionsCompleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "survey",
				Name:      "sessions_completed_total",
				Help:      "Sessions completed and persisted by group",
			},
			[]string{"group"},
		),
		AudioCheckFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "survey",
			Name:      "audio_check_failures_total",
			Help:      "Wrong answers at the comprehension check",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "survey",
			Name:      "persist_failures_total",
			Help:      "Failed writes of completed sessions",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "survey",
			Name:      "active_sessions",
			Help:      "Sessions held in memory",
		}),
		SessionsReaped: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "survey",
			Name:      "sessions_reaped_total",
			Help:      "Idle sessions dropped from memory",
		}),
	}
}

// middleware records request counts and latency per route template.
func (m *metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
