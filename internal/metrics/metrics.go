// Package metrics exposes counters for the points economy.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	registry    *prometheus.Registry
	ratings     prometheus.Counter
	rejections  *prometheus.CounterVec
	activations *prometheus.CounterVec
	uploads     prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ratings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "photorate",
			Name:      "ratings_total",
			Help:      "Ratings recorded in the ledger.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "photorate",
			Name:      "rating_rejections_total",
			Help:      "Rating attempts rejected, by reason.",
		}, []string{"reason"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "photorate",
			Name:      "photo_activations_total",
			Help:      "Photo visibility changes, by result.",
		}, []string{"result"}),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "photorate",
			Name:      "photo_uploads_total",
			Help:      "Photos uploaded.",
		}),
	}
	m.registry.MustRegister(
		m.ratings,
		m.rejections,
		m.activations,
		m.uploads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) RatingRecorded() {
	if m == nil {
		return
	}
	m.ratings.Inc()
}

func (m *Metrics) RatingRejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// Activation records the outcome of a visibility change: activated,
// deactivated or denied.
func (m *Metrics) Activation(result string) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(result).Inc()
}

func (m *Metrics) PhotoUploaded() {
	if m == nil {
		return
	}
	m.uploads.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
