package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeNoData    = "no_data"
	OutcomeMalformed = "malformed"
)

type Metrics struct {
	registry      *prometheus.Registry
	cyclesTotal   *prometheus.CounterVec
	fetchErrors   prometheus.Counter
	fetchDuration prometheus.Histogram
	publishes     *prometheus.CounterVec
	mirrorErrors  prometheus.Counter
	lastCycle     prometheus.Gauge
}

// New registers the station client collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "station_cycles_total",
			Help: "Polling cycles completed, by outcome.",
		}, []string{"outcome"}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_fetch_errors_total",
			Help: "Peer fetches that returned no data.",
		}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "station_fetch_duration_seconds",
			Help:    "Duration of peer fetches.",
			Buckets: prometheus.DefBuckets,
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "station_publishes_total",
			Help: "Feed publishes, by feed and result.",
		}, []string{"feed", "result"}),
		mirrorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_mqtt_errors_total",
			Help: "Failed MQTT telemetry mirrors.",
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "station_last_cycle_timestamp_seconds",
			Help: "Unix time the last cycle finished.",
		}),
	}

	m.registry.MustRegister(
		m.cyclesTotal,
		m.fetchErrors,
		m.fetchDuration,
		m.publishes,
		m.mirrorErrors,
		m.lastCycle,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, o := range []string{OutcomeOK, OutcomeNoData, OutcomeMalformed} {
		m.cyclesTotal.WithLabelValues(o)
	}

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Cycle(outcome string, at time.Time) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(outcome).Inc()
	m.lastCycle.Set(float64(at.Unix()))
}

func (m *Metrics) Fetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
	if err != nil {
		m.fetchErrors.Inc()
	}
}

func (m *Metrics) Publish(feed string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.publishes.WithLabelValues(feed, result).Inc()
}

func (m *Metrics) MirrorFailed() {
	if m == nil {
		return
	}
	m.mirrorErrors.Inc()
}
