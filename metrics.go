package widekv

import (
	"math"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports a Statistics as Prometheus metrics: every ticker as a
// counter and every histogram as a histogram with the power-of-two buckets
// Statistics keeps. Values are read at scrape time.
type Collector struct {
	stats      Statistics
	tickers    [TickerEnumMax]*prometheus.Desc
	histograms [HistogramEnumMax]*prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector over stats. Metric names are the
// statistic names with dots replaced by underscores, under namespace.
func NewCollector(stats Statistics, namespace string, labels prometheus.Labels) *Collector {
	c := &Collector{stats: stats}
	for t := range TickerEnumMax {
		c.tickers[t] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", metricName(t.String())+"_total"),
			"widekv ticker "+t.String(), nil, labels)
	}
	for h := range HistogramEnumMax {
		c.histograms[h] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", metricName(h.String())),
			"widekv histogram "+h.String(), nil, labels)
	}
	return c
}

func metricName(stat string) string {
	return strings.ReplaceAll(strings.TrimPrefix(stat, "widekv."), ".", "_")
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.tickers {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for t, d := range c.tickers {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue,
			float64(c.stats.GetTickerCount(TickerType(t))))
	}
	for h, d := range c.histograms {
		data := c.stats.GetHistogramData(HistogramType(h))
		buckets := make(map[float64]uint64, len(data.Buckets))
		for _, b := range data.Buckets {
			if math.IsInf(b.UpperBound, 1) {
				continue
			}
			buckets[b.UpperBound] = b.Count
		}
		ch <- prometheus.MustNewConstHistogram(d, data.Count, float64(data.Sum), buckets)
	}
}
