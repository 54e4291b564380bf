// Package observability exposes the miner's state as Prometheus metrics.
package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"solar_mining/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements the controller's status and event sinks. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	running        prometheus.Gauge
	totalSeconds   prometheus.Gauge
	sessionSeconds prometheus.Gauge
	sitePower      prometheus.Gauge
	lastUpdate     prometheus.Gauge
	events         *prometheus.CounterVec

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "miner_running",
			Help: "1 while the miner process is running, 0 otherwise.",
		}),
		totalSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "miner_total_running_seconds",
			Help: "Seconds of completed mining sessions since the controller started.",
		}),
		sessionSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "miner_session_seconds",
			Help: "Age of the current mining session in seconds, 0 when stopped.",
		}),
		sitePower: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "site_instant_power_watts",
			Help: "Last site meter reading; positive values are grid export.",
		}),
		lastUpdate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "miner_status_updated_timestamp_seconds",
			Help: "Unix time of the last published status.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miner_events_total",
			Help: "Controller events by type.",
		}, []string{"type"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.running,
		m.totalSeconds,
		m.sessionSeconds,
		m.sitePower,
		m.lastUpdate,
		m.events,
		m.httpRequestsTotal,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, typ := range []string{
		models.EventStart, models.EventStop, models.EventExited, models.EventOverrideChange, models.EventError,
	} {
		m.events.WithLabelValues(typ)
	}

	return m
}

// Save updates the gauges from a status snapshot.
func (m *Metrics) Save(_ context.Context, s models.MinerStatus) error {
	if m == nil {
		return nil
	}
	m.running.Set(boolGauge(s.Running))
	m.totalSeconds.Set(s.TotalRunningSeconds)
	m.sessionSeconds.Set(s.SessionSeconds)
	if s.LastPowerW != nil {
		m.sitePower.Set(*s.LastPowerW)
	}
	if !s.UpdatedAt.IsZero() {
		m.lastUpdate.Set(float64(s.UpdatedAt.Unix()))
	}
	return nil
}

// Append counts an event by type.
func (m *Metrics) Append(_ context.Context, e models.MinerEvent) error {
	if m == nil {
		return nil
	}
	m.events.WithLabelValues(e.Type).Inc()
	return nil
}

// GinMiddleware records request counts and durations by route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.DefaultGatherer
	}
	return m.registry
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
