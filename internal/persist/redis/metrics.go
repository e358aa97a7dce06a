package redis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// PoolStatsCollector exports go-redis connection pool statistics.
type PoolStatsCollector struct {
	client *redis.Client

	hits       *prometheus.Desc
	misses     *prometheus.Desc
	timeouts   *prometheus.Desc
	totalConns *prometheus.Desc
	idleConns  *prometheus.Desc
	staleConns *prometheus.Desc
}

// NewPoolStatsCollector creates a collector for client's pool.
func NewPoolStatsCollector(client *redis.Client) *PoolStatsCollector {
	return &PoolStatsCollector{
		client: client,
		hits: prometheus.NewDesc(
			"storefront_redis_pool_hits_total",
			"Times a free connection was found in the pool",
			nil, nil,
		),
		misses: prometheus.NewDesc(
			"storefront_redis_pool_misses_total",
			"Times a free connection was not found in the pool",
			nil, nil,
		),
		timeouts: prometheus.NewDesc(
			"storefront_redis_pool_timeouts_total",
			"Times a wait for a connection timed out",
			nil, nil,
		),
		totalConns: prometheus.NewDesc(
			"storefront_redis_pool_total_connections",
			"Connections currently in the pool",
			nil, nil,
		),
		idleConns: prometheus.NewDesc(
			"storefront_redis_pool_idle_connections",
			"Idle connections in the pool",
			nil, nil,
		),
		staleConns: prometheus.NewDesc(
			"storefront_redis_pool_stale_connections_total",
			"Stale connections removed from the pool",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.timeouts
	ch <- c.totalConns
	ch <- c.idleConns
	ch <- c.staleConns
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.client.PoolStats()

	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(stats.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(stats.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(stats.IdleConns))
	ch <- prometheus.MustNewConstMetric(c.staleConns, prometheus.CounterValue, float64(stats.StaleConns))
}
