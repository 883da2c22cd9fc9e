// Package metrics owns the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every application collector. A private registry keeps
// repeated construction in tests free of duplicate registration panics.
type Metrics struct {
	Registry *prometheus.Registry

	httpDuration   *prometheus.HistogramVec
	storeWrites    *prometheus.CounterVec
	queueDepth     prometheus.Gauge
	publishes      *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	snapshots      *prometheus.CounterVec
	mirrorEvents   *prometheus.CounterVec
	businessEvents *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gestornet_http_request_duration_seconds",
				Help:    "HTTP request duration by route and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		storeWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestornet_store_writes_total",
				Help: "Writes applied by the persistence queue.",
			},
			[]string{"collection", "op", "result"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gestornet_write_queue_depth",
				Help: "Writes waiting in the persistence queue.",
			},
		),
		publishes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestornet_amqp_publish_total",
				Help: "Ledger events published to AMQP.",
			},
			[]string{"event", "result"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestornet_cache_lookups_total",
				Help: "Cache lookups by cache and outcome.",
			},
			[]string{"cache", "outcome"},
		),
		snapshots: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestornet_backup_snapshots_total",
				Help: "Backup snapshots written.",
			},
			[]string{"result"},
		),
		mirrorEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestornet_mirror_events_total",
				Help: "Ledger events applied to the spreadsheet mirror.",
			},
			[]string{"event", "result"},
		),
		businessEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestornet_business_events_total",
				Help: "Clients registered, payments received and ledger entries recorded.",
			},
			[]string{"event"},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) IncStoreWrite(collection, op string, err error) {
	if m == nil {
		return
	}
	m.storeWrites.WithLabelValues(collection, op, result(err)).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) IncPublish(event string, err error) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(event, result(err)).Inc()
}

func (m *Metrics) IncCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, "hit").Inc()
}

func (m *Metrics) IncCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, "miss").Inc()
}

func (m *Metrics) IncSnapshot(err error) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) IncMirrorEvent(event string, err error) {
	if m == nil {
		return
	}
	m.mirrorEvents.WithLabelValues(event, result(err)).Inc()
}

func (m *Metrics) IncBusinessEvent(event string) {
	if m == nil {
		return
	}
	m.businessEvents.WithLabelValues(event).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
