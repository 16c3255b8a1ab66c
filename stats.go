package memcache

import "sync/atomic"

// ClientStats contains statistics about client operations.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as:
//   - Counters: Gets, Stores, Deletes, Arithmetic, Errors, Dials
//   - Counter: GetHits (derive hit rate as GetHits/Gets)
type ClientStats struct {
	Gets       uint64 // Keys requested by get/gets operations
	GetHits    uint64 // Keys found in cache
	Stores     uint64 // Store operations (set family and cas)
	Deletes    uint64 // Delete operations
	Arithmetic uint64 // Increment and decrement operations
	Errors     uint64 // Failures that faulted the connection
	Dials      uint64 // Connection attempts
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - the client updates its own stats.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{
		stats: &ClientStats{},
	}
}

func (c *clientStatsCollector) recordGets(keys int) {
	atomic.AddUint64(&c.stats.Gets, uint64(keys))
}

func (c *clientStatsCollector) recordHits(keys int) {
	atomic.AddUint64(&c.stats.GetHits, uint64(keys))
}

func (c *clientStatsCollector) recordStore() {
	atomic.AddUint64(&c.stats.Stores, 1)
}

func (c *clientStatsCollector) recordDelete() {
	atomic.AddUint64(&c.stats.Deletes, 1)
}

func (c *clientStatsCollector) recordArithmetic() {
	atomic.AddUint64(&c.stats.Arithmetic, 1)
}

func (c *clientStatsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *clientStatsCollector) recordDial() {
	atomic.AddUint64(&c.stats.Dials, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Gets:       atomic.LoadUint64(&c.stats.Gets),
		GetHits:    atomic.LoadUint64(&c.stats.GetHits),
		Stores:     atomic.LoadUint64(&c.stats.Stores),
		Deletes:    atomic.LoadUint64(&c.stats.Deletes),
		Arithmetic: atomic.LoadUint64(&c.stats.Arithmetic),
		Errors:     atomic.LoadUint64(&c.stats.Errors),
		Dials:      atomic.LoadUint64(&c.stats.Dials),
	}
}
