package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoSeeds is returned when no seed URL is specified either on
	// the command line or in the configuration file. Resume runs are
	// exempt: the persisted frontier is their starting point.
	ErrNoSeeds = errors.New("no seed URLs specified: pass at least one URL or set seeds in the config file")

	// ErrInvalidMaxPages is returned when the page limit is not positive.
	// A limit of zero would mean the crawl fetches nothing.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidMaxDepth is returned when the depth limit is negative.
	// Depth 0 is valid and crawls only the seeds.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidConcurrency is returned when the worker count is not
	// positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidDelay is returned when the per-domain delay is negative.
	// Use 0 to disable spacing between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not
	// positive. A zero timeout would cause immediate failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is
	// negative. Use 0 for the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrResumeWithoutStore is returned when --resume is requested but
	// no store path is configured. There is nothing to resume from
	// without a durable frontier.
	ErrResumeWithoutStore = errors.New("resume requires a store path: pass --store")
)
