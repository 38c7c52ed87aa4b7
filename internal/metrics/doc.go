// Package metrics tracks crawl throughput counters and exposes them
// two ways: a periodic structured log line for terminal runs, and an
// optional Prometheus endpoint for scraping.
package metrics
