package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	syncRequests  *prom.CounterVec
	syncOutcomes  *prom.CounterVec
	stageDuration *prom.HistogramVec
	runDuration   prom.Histogram
	activeRuns    prom.Gauge
	filesUploaded prom.Counter
}

// NewPrometheusRecorder constructs and registers the pipeline metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		syncRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsync",
			Name:      "sync_requests_total",
			Help:      "Sync requests by admission result",
		}, []string{"accepted"}),
		syncOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsync",
			Name:      "sync_outcomes_total",
			Help:      "Terminal sync run outcomes",
		}, []string{"outcome"}),
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docsync",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docsync",
			Name:      "run_duration_seconds",
			Help:      "Total sync run duration",
			Buckets:   prom.DefBuckets,
		}),
		activeRuns: prom.NewGauge(prom.GaugeOpts{
			Namespace: "docsync",
			Name:      "active_runs",
			Help:      "Number of currently admitted, non-terminal runs",
		}),
		filesUploaded: prom.NewCounter(prom.CounterOpts{
			Namespace: "docsync",
			Name:      "files_uploaded_total",
			Help:      "Total artifacts uploaded to object storage",
		}),
	}
	reg.MustRegister(pr.syncRequests, pr.syncOutcomes, pr.stageDuration, pr.runDuration, pr.activeRuns, pr.filesUploaded)
	return pr
}

func (p *PrometheusRecorder) IncSyncRequested(accepted bool) {
	label := "false"
	if accepted {
		label = "true"
	}
	p.syncRequests.WithLabelValues(label).Inc()
}

func (p *PrometheusRecorder) IncSyncOutcome(outcome OutcomeLabel) {
	p.syncOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetActiveRuns(n int) {
	p.activeRuns.Set(float64(n))
}

func (p *PrometheusRecorder) AddFilesUploaded(n int) {
	p.filesUploaded.Add(float64(n))
}

// HTTPHandler returns an http.Handler serving metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
