package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once               sync.Once
	mergeDuration      prom.Histogram
	merges             prom.Counter
	flushDuration      prom.Histogram
	snapshotsPublished *prom.CounterVec
	snapshotsReceived  *prom.CounterVec
	registryBuckets    prom.Gauge
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.mergeDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "pathtimer",
			Name:      "merge_duration_seconds",
			Help:      "Duration of merging one partial registry into a target",
			Buckets:   prom.ExponentialBuckets(0.00001, 4, 10),
		})
		pr.merges = prom.NewCounter(prom.CounterOpts{
			Namespace: "pathtimer",
			Name:      "merges_total",
			Help:      "Partial registries merged into a target",
		})
		pr.flushDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "pathtimer",
			Name:      "flush_duration_seconds",
			Help:      "Duration of a producer flush (swap, encode, publish)",
			Buckets:   prom.DefBuckets,
		})
		pr.snapshotsPublished = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pathtimer",
			Name:      "snapshots_published_total",
			Help:      "Registry snapshots published by producers, by result",
		}, []string{"result"})
		pr.snapshotsReceived = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pathtimer",
			Name:      "snapshots_received_total",
			Help:      "Registry snapshots received by collectors, by result",
		}, []string{"result"})
		pr.registryBuckets = prom.NewGauge(prom.GaugeOpts{
			Namespace: "pathtimer",
			Name:      "registry_buckets",
			Help:      "Buckets held by the consolidated registry",
		})
		reg.MustRegister(pr.mergeDuration, pr.merges, pr.flushDuration, pr.snapshotsPublished, pr.snapshotsReceived, pr.registryBuckets)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveMergeDuration(d time.Duration) {
	if p == nil || p.mergeDuration == nil {
		return
	}
	p.mergeDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncMerges(n int) {
	if p == nil || p.merges == nil {
		return
	}
	p.merges.Add(float64(n))
}

func (p *PrometheusRecorder) ObserveFlushDuration(d time.Duration) {
	if p == nil || p.flushDuration == nil {
		return
	}
	p.flushDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSnapshotsPublished(result ResultLabel) {
	if p == nil || p.snapshotsPublished == nil {
		return
	}
	p.snapshotsPublished.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncSnapshotsReceived(result ResultLabel) {
	if p == nil || p.snapshotsReceived == nil {
		return
	}
	p.snapshotsReceived.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetRegistryBuckets(n int) {
	if p == nil || p.registryBuckets == nil {
		return
	}
	p.registryBuckets.Set(float64(n))
}
