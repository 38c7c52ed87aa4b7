package model

import "time"

// CrawlState is the lifecycle state of a frontier record.
//
// A record is created as StatePending, moves to StateInProgress when a
// worker leases it, and terminates as StateDone or StateFailed. Records
// are never deleted; the frontier doubles as the crawl audit log and the
// resume checkpoint.
type CrawlState string

const (
	// StatePending marks a discovered URL that has not been fetched yet.
	StatePending CrawlState = "pending"

	// StateInProgress marks a URL currently leased by a worker.
	// A record left in this state across a process restart is reset to
	// StatePending when the store is reopened.
	StateInProgress CrawlState = "in_progress"

	// StateDone marks a URL whose page record was emitted successfully.
	StateDone CrawlState = "done"

	// StateFailed marks a URL that completed without a page record.
	// Failed records are terminal within a run; only an operator rerun
	// with --resume can revisit them.
	StateFailed CrawlState = "failed"
)

// Valid reports whether s is one of the defined crawl states.
func (s CrawlState) Valid() bool {
	switch s {
	case StatePending, StateInProgress, StateDone, StateFailed:
		return true
	}
	return false
}

// String returns the state as stored in the database.
func (s CrawlState) String() string { return string(s) }

// FailReason classifies why a record was completed as StateFailed.
//
// SkippedPolicy and SkippedLimit are expected control-flow outcomes, not
// errors; they are recorded so that a resumed crawl does not re-lease
// them and so counters can distinguish skips from genuine failures.
type FailReason string

const (
	// ReasonFetchError covers timeouts and connection failures.
	ReasonFetchError FailReason = "fetch_error"

	// ReasonExtractError covers unparsable response bodies.
	ReasonExtractError FailReason = "extract_error"

	// ReasonSkippedPolicy marks URLs disallowed by robots rules.
	ReasonSkippedPolicy FailReason = "skipped_policy"

	// ReasonSkippedLimit marks URLs rejected by the max-pages or
	// max-depth limit.
	ReasonSkippedLimit FailReason = "skipped_limit"
)

// Skip reports whether the reason is an expected policy/limit outcome
// rather than a failure. Skips and failures feed different counters.
func (r FailReason) Skip() bool {
	return r == ReasonSkippedPolicy || r == ReasonSkippedLimit
}

// URLRecord is one entry of the crawl frontier, keyed by canonical URL.
//
// The canonical URL is unique across the store: the first discoverer
// wins, and later discoveries of the same canonical form are no-ops that
// do not reset depth or state.
type URLRecord struct {
	// CanonicalURL is the normalized, deduplication-key form of the
	// address (see the urlnorm package).
	CanonicalURL string

	// Depth is the link distance from the seed set. Seeds have depth 0.
	Depth int

	// State is the record's position in the crawl lifecycle.
	State CrawlState

	// DiscoveredAt is when the URL was first enqueued. Together with
	// Depth it defines the breadth-first lease order.
	DiscoveredAt time.Time

	// Attempts counts lease operations on this record.
	Attempts int

	// Referrer is the canonical URL that discovered this one.
	// Empty for seeds.
	Referrer string

	// FailReason is set when State is StateFailed.
	FailReason FailReason
}
