package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CacheStats mirrors the cache's counter snapshot so this package does not
// depend on the cache package.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// StatsSource supplies the current counters on each scrape.
type StatsSource func() CacheStats

// CacheCollector exposes the tag cache's counters as Prometheus metrics on
// every scrape, without the cache having to push updates.
type CacheCollector struct {
	source    StatsSource
	hits      *prometheus.Desc
	misses    *prometheus.Desc
	evictions *prometheus.Desc
	size      *prometheus.Desc
}

// NewCacheCollector creates and registers a collector over the stats
// source.
func NewCacheCollector(reg prometheus.Registerer, source StatsSource) *CacheCollector {
	c := &CacheCollector{
		source: source,
		hits: prometheus.NewDesc("regwave_cache_hits_total",
			"Total number of cache hits", nil, nil),
		misses: prometheus.NewDesc("regwave_cache_misses_total",
			"Total number of cache misses", nil, nil),
		evictions: prometheus.NewDesc("regwave_cache_evictions_total",
			"Total number of cache evictions (TTL and capacity)", nil, nil),
		size: prometheus.NewDesc("regwave_cache_entries",
			"Current number of cache entries", nil, nil),
	}
	reg.MustRegister(c)
	return c
}

// Describe implements prometheus.Collector.
func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.size
}

// Collect implements prometheus.Collector.
func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(stats.Evictions))
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(stats.Size))
}
