// Package main provides the entry point for the crawld CLI.
//
// crawld is a polite, resumable web crawler. It fetches pages
// breadth-first from a set of seed URLs, respects robots.txt and
// per-domain rate limits, and streams page records as JSON Lines.
//
// Usage:
//
//	crawld crawl https://example.com
//	crawld crawl --store crawl.db --resume
//	crawld report --store crawl.db
//
// See --help for all available options.
package main

// main is the entry point for crawld.
func main() {
	Execute()
}
