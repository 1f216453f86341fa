package metrics

import (
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/jpdna/utils/internal/timer"
	"github.com/jpdna/utils/internal/timing"
)

// RegistryCollector exports the buckets of a timing.Registry at scrape time.
// Only buckets holding a *timer.Timer are exported.
type RegistryCollector struct {
	source func() *timing.Registry

	count *prom.Desc
	total *prom.Desc
	min   *prom.Desc
	max   *prom.Desc
}

var _ prom.Collector = (*RegistryCollector)(nil)

// NewRegistryCollector returns a collector reading whatever registry source
// returns at scrape time; source may return nil.
func NewRegistryCollector(namespace string, source func() *timing.Registry) *RegistryCollector {
	labels := []string{"path", "name", "depth", "id"}
	return &RegistryCollector{
		source: source,
		count: prom.NewDesc(prom.BuildFQName(namespace, "path", "observations_total"),
			"Durations recorded for the call path", labels, nil),
		total: prom.NewDesc(prom.BuildFQName(namespace, "path", "duration_seconds_total"),
			"Sum of durations recorded for the call path", labels, nil),
		min: prom.NewDesc(prom.BuildFQName(namespace, "path", "duration_min_seconds"),
			"Shortest duration recorded for the call path", labels, nil),
		max: prom.NewDesc(prom.BuildFQName(namespace, "path", "duration_max_seconds"),
			"Longest duration recorded for the call path", labels, nil),
	}
}

func (c *RegistryCollector) Describe(ch chan<- *prom.Desc) {
	ch <- c.count
	ch <- c.total
	ch <- c.min
	ch <- c.max
}

func (c *RegistryCollector) Collect(ch chan<- prom.Metric) {
	reg := c.source()
	if reg == nil {
		return
	}
	reg.Range(func(p *timing.Path, t timing.Timer) bool {
		tm, ok := t.(*timer.Timer)
		if !ok {
			return true
		}
		s := tm.Snapshot()
		labels := []string{p.String(), p.Name(), strconv.Itoa(p.Depth()), strconv.FormatUint(p.Hash(), 16)}
		ch <- prom.MustNewConstMetric(c.count, prom.CounterValue, float64(s.Count), labels...)
		ch <- prom.MustNewConstMetric(c.total, prom.CounterValue, s.Total().Seconds(), labels...)
		ch <- prom.MustNewConstMetric(c.min, prom.GaugeValue, s.Min().Seconds(), labels...)
		ch <- prom.MustNewConstMetric(c.max, prom.GaugeValue, s.Max().Seconds(), labels...)
		return true
	})
}
