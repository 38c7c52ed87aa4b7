// Package frontier provides the durable crawl frontier store.
//
// The frontier is the single source of truth for the crawl: every known
// URL, its state, depth, and discovery time. Records are created once
// (first discoverer wins), leased to workers in breadth-first order, and
// completed as done or failed. Records are never deleted - the store is
// the audit log and the resume checkpoint in one.
//
// Two implementations expose the identical Store interface so the
// engine is agnostic to storage:
//   - MemoryStore for non-resumable runs
//   - SQLiteStore (modernc.org/sqlite) for durable, resumable runs
//
// Design decision: We use SQLite (via modernc.org/sqlite) rather than a
// flat file because the store must support point lookup by URL, atomic
// lease (read-one-and-transition), and full scan by state, all under
// concurrent callers. One table holds both the queue and the results of
// the crawl; all in-memory scheduling structure (the breadth-first lease
// cursor) is just a query over it, recomputed for free at startup, so
// there is no second source of truth to keep consistent.
//
// The sole crash-recovery rule: a record left in_progress by a crashed
// process is reset to pending when the store is reopened. No work is
// silently lost, at the cost of possibly re-fetching a page whose result
// was never durably recorded.
package frontier
