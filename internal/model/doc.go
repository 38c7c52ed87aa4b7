// Package model defines the core data structures used throughout crawld.
//
// This package contains the following main types:
//   - URLRecord: One row of the crawl frontier, keyed by canonical URL
//   - CrawlState: The frontier state machine (pending -> in_progress -> done/failed)
//   - FailReason: Why a record was completed as failed
//   - PageRecord: The per-page output record appended to the JSONL file
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (frontier, engine, extract, report) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for output and
// database storage.
package model
