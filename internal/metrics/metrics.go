// Package metrics exposes the kiosk's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mayorkiosk"

// Metrics holds the collectors, registered on their own registry so several
// instances can coexist in tests.
type Metrics struct {
	reg *prometheus.Registry

	GamesStarted     prometheus.Counter
	GamesFinished    *prometheus.CounterVec
	Scores           prometheus.Histogram
	PhoneCalls       *prometheus.CounterVec
	ResultSaveErrors prometheus.Counter
	Subscribers      prometheus.Gauge
	RequestDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		GamesStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Sessions moved from start to playing.",
		}),
		GamesFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Sessions that reached a terminal state, by result.",
		}, []string{"result"}),
		Scores: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "game_score",
			Help:      "Scores of finished sessions.",
			Buckets:   prometheus.LinearBuckets(0, 100, 11),
		}),
		PhoneCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phone_calls_total",
			Help:      "Phone calls resolved by the player.",
		}, []string{"call", "answered"}),
		ResultSaveErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_save_errors_total",
			Help:      "Finished sessions whose result could not be persisted.",
		}),
		Subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscribers",
			Help:      "Connected SSE and WebSocket clients.",
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// PhoneCall records how call n was resolved.
func (m *Metrics) PhoneCall(n int, answered bool) {
	m.PhoneCalls.WithLabelValues(strconv.Itoa(n), strconv.FormatBool(answered)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
