package frontier

import (
	"context"
	"errors"

	"github.com/mshibata-dev/crawld/internal/model"
)

// ErrNotLeased is returned by Complete when the URL is not currently
// in_progress. It indicates a scheduler bug, not a data problem.
var ErrNotLeased = errors.New("frontier: url is not leased")

// Outcome is the terminal state of a completed lease.
type Outcome struct {
	State  model.CrawlState
	Reason model.FailReason
}

// Done marks a lease as successfully completed.
func Done() Outcome {
	return Outcome{State: model.StateDone}
}

// Failed marks a lease as terminally failed with a reason.
func Failed(reason model.FailReason) Outcome {
	return Outcome{State: model.StateFailed, Reason: reason}
}

// Store is the crawl frontier. All operations are atomic with respect
// to concurrent callers. The store performs no policy: depth and
// allow-list filtering happen in the engine before Enqueue.
type Store interface {
	// Enqueue inserts a pending record for url unless the canonical URL
	// is already known. Returns true when a record was created. Later
	// discoveries of a known URL are no-ops that do not reset depth or
	// state.
	Enqueue(ctx context.Context, url string, depth int, referrer string) (created bool, err error)

	// LeaseNext atomically selects one pending record in breadth-first
	// order (lowest depth first, then earliest discovery), transitions
	// it to in_progress, increments its attempt count, and returns it.
	// Returns (nil, nil) when no pending record exists.
	LeaseNext(ctx context.Context) (*model.URLRecord, error)

	// Complete transitions a leased record out of in_progress.
	Complete(ctx context.Context, url string, out Outcome) error

	// CountByState returns the number of records in each state.
	CountByState(ctx context.Context) (map[model.CrawlState]int, error)

	// Close releases the store's resources.
	Close() error
}

// PageStore persists crawled page content alongside the frontier.
// The durable store implements it; the engine treats it as optional.
type PageStore interface {
	// SavePage stores the page record for a completed URL.
	SavePage(ctx context.Context, rec *model.PageRecord, depth int) error

	// AddLinks records the outgoing link edges discovered on a page.
	AddLinks(ctx context.Context, from string, to []string) error
}
