package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
)

// Recorder owns the collectors for one process. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry
	writes   *prometheus.CounterVec
	uploads  *prometheus.CounterVec
	mirror   *prometheus.GaugeVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sismanpnr",
			Name:      "store_writes_total",
			Help:      "Write-through operations against the persistent store.",
		}, []string{"entity", "operation", "outcome"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sismanpnr",
			Name:      "image_uploads_total",
			Help:      "Image uploads to the object store.",
		}, []string{"outcome"}),
		mirror: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sismanpnr",
			Name:      "mirror_records",
			Help:      "Records held by an in-memory mirror.",
		}, []string{"entity"}),
	}

	r.registry.MustRegister(r.writes, r.uploads, r.mirror)
	return r
}

func (r *Recorder) Write(entity, operation string, applied bool) {
	if r == nil {
		return
	}
	r.writes.WithLabelValues(entity, operation, outcome(applied)).Inc()
}

func (r *Recorder) Upload(applied bool) {
	if r == nil {
		return
	}
	r.uploads.WithLabelValues(outcome(applied)).Inc()
}

func (r *Recorder) MirrorSize(entity string, n int) {
	if r == nil {
		return
	}
	r.mirror.WithLabelValues(entity).Set(float64(n))
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func outcome(applied bool) string {
	if applied {
		return OutcomeApplied
	}
	return OutcomeFailed
}
