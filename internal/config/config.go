package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. The politeness-related values are
// deliberately conservative: a crawler's defaults decide how it
// behaves on the sites of people who never heard of it.
const (
	// DefaultMaxPages caps the number of pages fetched in one run.
	// This prevents runaway crawling on large or infinitely-generating
	// sites. Users can override this via the --max-pages CLI flag.
	DefaultMaxPages = 200

	// DefaultMaxDepth is the maximum link distance from a seed URL.
	// Depth 0 means only fetch the seeds themselves.
	DefaultMaxDepth = 2

	// DefaultConcurrency is the number of crawl workers. Politeness
	// spacing is enforced per domain regardless of this value, so more
	// workers only help when crawling many domains.
	DefaultConcurrency = 8

	// DefaultDelay is the minimum spacing between requests to the same
	// domain. robots.txt Crawl-delay can raise it, never lower it.
	DefaultDelay = 500 * time.Millisecond

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultUserAgent identifies the crawler in HTTP requests and is
	// the token matched against robots.txt groups. A descriptive
	// User-Agent lets operators identify crawler traffic in their logs.
	DefaultUserAgent = "crawld/1.0 (+https://github.com/mshibata-dev/crawld)"

	// DefaultMaxBodySize limits the response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultOutputPath is where page records are written as JSONL.
	DefaultOutputPath = "crawl.jsonl"

	// DefaultMetricsInterval is how often the progress line is logged.
	DefaultMetricsInterval = 10 * time.Second

	// AppName is the application name used for XDG directory paths.
	AppName = "crawld"
)

// Config holds all configuration options for a crawl.
// This struct is designed to be populated from CLI flags and passed
// through the application via dependency injection rather than global
// state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., FetchConfig, StoreConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant
// benefit.
type Config struct {
	// Seeds are the starting URLs. Scheme-less entries are treated as
	// https.
	Seeds []string

	// AllowedDomains restricts the crawl to these domains and their
	// subdomains. Empty means no restriction beyond the depth and page
	// limits.
	AllowedDomains []string

	// MaxPages caps the number of pages fetched in this run.
	MaxPages int

	// MaxDepth is the maximum link distance from a seed.
	MaxDepth int

	// Concurrency is the number of crawl workers.
	Concurrency int

	// Delay is the minimum spacing between requests to one domain.
	Delay time.Duration

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// UserAgent is sent with every request and matched against
	// robots.txt groups.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Larger responses are truncated.
	MaxBodySize int64

	// IgnoreRobots disables robots.txt entirely: no fetching, no rule
	// checks, no Crawl-delay. The configured Delay still applies.
	IgnoreRobots bool

	// OutputPath is the JSONL output file.
	OutputPath string

	// StorePath is the SQLite frontier database path. Empty means an
	// in-memory frontier; the crawl is then not resumable.
	StorePath string

	// Resume continues a previous crawl from StorePath instead of
	// starting over. The output file is opened in append mode.
	Resume bool

	// MetricsInterval is how often crawl progress is logged.
	MetricsInterval time.Duration

	// MetricsAddr, when set, serves Prometheus metrics on this address
	// (e.g. "127.0.0.1:9090").
	MetricsAddr string

	// Verbose enables debug-level log output.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty,
	// the tool searches for .crawld in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// File holds the loaded configuration file, if any. Populated by
	// LoadFile and used for per-domain overrides.
	File *File
}

// NewConfig creates a Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout,
// concurrency). This also serves as documentation of what the defaults
// are.
func NewConfig() *Config {
	return &Config{
		MaxPages:        DefaultMaxPages,
		MaxDepth:        DefaultMaxDepth,
		Concurrency:     DefaultConcurrency,
		Delay:           DefaultDelay,
		Timeout:         DefaultTimeout,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		OutputPath:      DefaultOutputPath,
		MetricsInterval: DefaultMetricsInterval,
	}
}

// XDGDataDir returns the XDG data directory for crawld.
// On Linux: ~/.local/share/crawld
// On macOS: ~/Library/Application Support/crawld
// On Windows: %LOCALAPPDATA%\crawld
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for crawld.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultStorePath returns the default frontier database location
// inside the XDG data directory.
func DefaultStorePath() string {
	return filepath.Join(XDGDataDir(), "frontier.db")
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// A resumed crawl bootstraps from the persisted frontier, so it
	// needs no seed URLs of its own.
	if len(c.Seeds) == 0 && !c.Resume {
		return ErrNoSeeds
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Resume && c.StorePath == "" {
		return ErrResumeWithoutStore
	}
	return nil
}
