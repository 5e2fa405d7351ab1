package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "apodesk"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	fetchDuration prom.Histogram
	refreshes     *prom.CounterVec
	applies       *prom.CounterVec
	saveFailures  prom.Counter
	lastRefresh   prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		fetchDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of metadata fetch plus image download",
			Buckets:   prom.DefBuckets,
		}),
		refreshes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Refresh results by outcome",
		}, []string{"outcome"}),
		applies: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "apply_total",
			Help:      "Wallpaper apply results by outcome",
		}, []string{"outcome"}),
		saveFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "store_save_failures_total",
			Help:      "Failed writes of the cache slot",
		}),
		lastRefresh: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful refresh",
		}),
	}
	reg.MustRegister(pr.fetchDuration, pr.refreshes, pr.applies, pr.saveFailures, pr.lastRefresh)
	return pr
}

func (p *PrometheusRecorder) ObserveFetchDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.fetchDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRefresh(outcome Outcome) {
	if p == nil {
		return
	}
	p.refreshes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncApply(outcome Outcome) {
	if p == nil {
		return
	}
	p.applies.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncStoreSaveFailure() {
	if p == nil {
		return
	}
	p.saveFailures.Inc()
}

func (p *PrometheusRecorder) SetLastRefresh(t time.Time) {
	if p == nil {
		return
	}
	p.lastRefresh.Set(float64(t.UnixNano()) / 1e9)
}

// HTTPHandler returns an http.Handler that serves the metrics in reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
