package metrics

import (
	"sync/atomic"
	"time"
)

// Counters accumulates crawl totals. All methods are safe for
// concurrent use by the worker pool; counters only ever increase.
type Counters struct {
	start time.Time

	pages      atomic.Int64
	errors     atomic.Int64
	skipped    atomic.Int64
	bytes      atomic.Int64
	fetchNanos atomic.Int64

	now func() time.Time
}

// NewCounters creates a Counters with the crawl start time set to now.
func NewCounters() *Counters {
	return &Counters{
		start: time.Now(),
		now:   time.Now,
	}
}

// RecordFetch records one completed fetch attempt. bytesRead is the
// body size actually read; dur is the wall time of the HTTP exchange.
func (c *Counters) RecordFetch(ok bool, bytesRead int64, dur time.Duration) {
	c.pages.Add(1)
	if bytesRead > 0 {
		c.bytes.Add(bytesRead)
	}
	if !ok {
		c.errors.Add(1)
	}
	c.fetchNanos.Add(int64(dur))
}

// RecordSkip records a URL that was leased but never fetched, e.g.
// disallowed by robots.txt or past the page limit.
func (c *Counters) RecordSkip() {
	c.skipped.Add(1)
}

// Totals is a point-in-time copy of the counters with derived rates.
type Totals struct {
	// Pages is the number of fetch attempts.
	Pages int64

	// Errors is the number of failed fetch attempts.
	Errors int64

	// Skipped is the number of leased URLs that were never fetched.
	Skipped int64

	// Bytes is the total body bytes read.
	Bytes int64

	// AvgFetch is the mean HTTP exchange duration.
	AvgFetch time.Duration

	// PagesPerSec is the fetch rate over the crawl lifetime.
	PagesPerSec float64

	// Elapsed is the time since the crawl started.
	Elapsed time.Duration
}

// Snapshot returns the current totals.
func (c *Counters) Snapshot() Totals {
	t := Totals{
		Pages:   c.pages.Load(),
		Errors:  c.errors.Load(),
		Skipped: c.skipped.Load(),
		Bytes:   c.bytes.Load(),
		Elapsed: c.now().Sub(c.start),
	}
	if t.Pages > 0 {
		t.AvgFetch = time.Duration(c.fetchNanos.Load() / t.Pages)
	}
	if secs := t.Elapsed.Seconds(); secs > 0 {
		t.PagesPerSec = float64(t.Pages) / secs
	}
	return t
}
