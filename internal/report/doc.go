// Package report writes crawl results out of the engine.
//
// This package contains two output paths:
//   - JSONLSink: streams one page record per line during the crawl
//   - MarkdownWriter: renders a crawl summary from the durable store
//     for the report command
//
// Design decision: We separate result writing from the data structures
// (which are in the model package) so new output formats can be added
// without touching the crawl engine. Sinks implement a small interface
// and can be composed for multi-destination output.
package report
