package rct

import "sync/atomic"

// ConnectionStats contains counters for one connection. All fields are
// safe for concurrent access.
//
// For Prometheus integration, expose all of these as counters; derive the
// cache hit rate as CacheHits/Queries.
type ConnectionStats struct {
	Queries     uint64 // cache lookups by Query attempts (each retry counts again)
	Writes      uint64 // writes that completed and passed verification
	CacheHits   uint64 // reads served from the response cache
	Retries     uint64 // recoverable failures that were retried
	Timeouts    uint64 // receive windows that expired
	Unsolicited uint64 // frames decoded with no matching request
	Resyncs     uint64 // decoder errors that forced a stream resync
	Errors      uint64 // jobs that surfaced a terminal error
}

// connStatsCollector provides internal methods for updating stats.
// Not exported - the connection updates its own stats.
type connStatsCollector struct {
	stats *ConnectionStats
}

func newConnStatsCollector() *connStatsCollector {
	return &connStatsCollector{stats: &ConnectionStats{}}
}

func (c *connStatsCollector) recordQuery(cacheHit bool) {
	atomic.AddUint64(&c.stats.Queries, 1)
	if cacheHit {
		atomic.AddUint64(&c.stats.CacheHits, 1)
	}
}

func (c *connStatsCollector) recordWrite() {
	atomic.AddUint64(&c.stats.Writes, 1)
}

func (c *connStatsCollector) recordRetry() {
	atomic.AddUint64(&c.stats.Retries, 1)
}

func (c *connStatsCollector) recordTimeout() {
	atomic.AddUint64(&c.stats.Timeouts, 1)
}

func (c *connStatsCollector) recordUnsolicited() {
	atomic.AddUint64(&c.stats.Unsolicited, 1)
}

func (c *connStatsCollector) recordResync() {
	atomic.AddUint64(&c.stats.Resyncs, 1)
}

func (c *connStatsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *connStatsCollector) snapshot() ConnectionStats {
	return ConnectionStats{
		Queries:     atomic.LoadUint64(&c.stats.Queries),
		Writes:      atomic.LoadUint64(&c.stats.Writes),
		CacheHits:   atomic.LoadUint64(&c.stats.CacheHits),
		Retries:     atomic.LoadUint64(&c.stats.Retries),
		Timeouts:    atomic.LoadUint64(&c.stats.Timeouts),
		Unsolicited: atomic.LoadUint64(&c.stats.Unsolicited),
		Resyncs:     atomic.LoadUint64(&c.stats.Resyncs),
		Errors:      atomic.LoadUint64(&c.stats.Errors),
	}
}
