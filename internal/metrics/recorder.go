// Package metrics exposes pipeline, generation and cache metrics to Prometheus.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docweave"

// Recorder implements the observer interfaces of the pipeline, the story
// engine and the text-generation client.
type Recorder struct {
	stageDuration *prom.HistogramVec
	renderTotal   *prom.CounterVec
	generation    *prom.HistogramVec
	cacheLookups  *prom.CounterVec
}

// NewRecorder registers the metrics on reg, or on a fresh registry when reg is nil.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		renderTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Pipeline runs by outcome",
		}, []string{"outcome"}),
		generation: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Latency of text-generation calls",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"model", "result"}),
		cacheLookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Generation cache lookups by operation and result",
		}, []string{"op", "result"}),
	}
	reg.MustRegister(r.stageDuration, r.renderTotal, r.generation, r.cacheLookups)
	return r
}

func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncRender counts a finished pipeline run; err marks it failed.
func (r *Recorder) IncRender(err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failed"
	}
	r.renderTotal.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveGeneration(model string, d time.Duration, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failed"
	}
	r.generation.WithLabelValues(model, result).Observe(d.Seconds())
}

func (r *Recorder) ObserveCache(op string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(op, result).Inc()
}

// HTTPHandler serves the metrics registered on reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
