package politeness

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// robotsMaxBodySize limits how much of a robots.txt response is read.
const robotsMaxBodySize = 2 << 20 // 2MB

// robotsFetchTimeout bounds the one-time robots.txt fetch per domain.
// robots.txt endpoints are best-effort; a slow one must not stall the
// crawl.
const robotsFetchTimeout = 10 * time.Second

// Verdict is the outcome of a politeness check.
type Verdict int

const (
	// Allowed means the fetch may proceed now. The domain's request
	// slot has been reserved.
	Allowed Verdict = iota

	// Disallowed means robots rules forbid fetching this URL.
	Disallowed

	// MustWait means the minimum inter-request spacing has not elapsed.
	MustWait
)

// String returns a short name for logging.
func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case Disallowed:
		return "disallowed"
	case MustWait:
		return "must_wait"
	}
	return "unknown"
}

// Decision is a Verdict plus, for MustWait, the remaining wait.
type Decision struct {
	Verdict Verdict

	// Wait is the remaining duration before the domain may be fetched
	// again. Only set for MustWait.
	Wait time.Duration
}

// domainState holds per-hostname politeness state. Created lazily on
// first reference and kept for the process lifetime. Mutations are
// serialized by mu; independent domains never contend.
type domainState struct {
	mu sync.Mutex

	// robotsOnce guards the one-time robots.txt fetch.
	robotsOnce sync.Once

	// group holds the matched robots rule group, nil when robots.txt
	// was unavailable or robots evaluation is disabled.
	group *robotstxt.Group

	// crawlDelay is the Crawl-delay directive from robots.txt, zero
	// when absent.
	crawlDelay time.Duration

	// lastRequestAt is when the domain's most recent request slot was
	// granted. Zero until the first grant.
	lastRequestAt time.Time

	// inFlight counts workers currently fetching from this domain.
	inFlight int
}

// Controller is the per-domain politeness gate.
type Controller struct {
	client       *http.Client
	userAgent    string
	minDelay     time.Duration
	ignoreRobots bool
	domainDelay  map[string]time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu      sync.Mutex
	domains map[string]*domainState
}

// Option configures a Controller.
type Option func(*Controller)

// WithIgnoreRobots disables robots rule evaluation. The inter-request
// delay is still enforced.
func WithIgnoreRobots(ignore bool) Option {
	return func(c *Controller) { c.ignoreRobots = ignore }
}

// WithDomainDelay sets a per-domain minimum delay override, keyed by
// lowercase hostname.
func WithDomainDelay(delays map[string]time.Duration) Option {
	return func(c *Controller) { c.domainDelay = delays }
}

// WithLogger sets the logger used for robots fetch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithNow overrides the clock. Tests use this to exercise the spacing
// decision without sleeping.
func WithNow(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a Controller. The client is used only for robots.txt
// fetches; minDelay is the configured minimum inter-request spacing
// applied to every domain.
func New(client *http.Client, userAgent string, minDelay time.Duration, opts ...Option) *Controller {
	c := &Controller{
		client:    client,
		userAgent: userAgent,
		minDelay:  minDelay,
		domains:   make(map[string]*domainState),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Check decides whether canonicalURL may be fetched now.
//
// The first reference to a hostname triggers the robots.txt fetch; all
// callers for that domain block until it completes. An Allowed verdict
// reserves the domain's request slot, so the caller is expected to
// perform the fetch (the timestamp is recorded regardless of the fetch
// outcome, which keeps spacing intact after failures).
func (c *Controller) Check(ctx context.Context, canonicalURL string) Decision {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		// Canonical URLs are pre-validated; treat a parse failure as
		// disallowed rather than guessing a host.
		return Decision{Verdict: Disallowed}
	}
	host := strings.ToLower(u.Hostname())
	ds := c.domain(host)

	if !c.ignoreRobots {
		ds.robotsOnce.Do(func() {
			c.fetchRobots(ctx, ds, u.Scheme, u.Host)
		})
		if ds.group != nil && !ds.group.Test(pathForRobots(u)) {
			return Decision{Verdict: Disallowed}
		}
	}

	delay := c.effectiveDelay(host, ds)
	if delay <= 0 {
		return Decision{Verdict: Allowed}
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()
	now := c.now()
	if ds.lastRequestAt.IsZero() || now.Sub(ds.lastRequestAt) >= delay {
		ds.lastRequestAt = now
		return Decision{Verdict: Allowed}
	}
	return Decision{
		Verdict: MustWait,
		Wait:    delay - now.Sub(ds.lastRequestAt),
	}
}

// FetchStarted records that a worker began fetching from host.
func (c *Controller) FetchStarted(host string) {
	ds := c.domain(strings.ToLower(host))
	ds.mu.Lock()
	ds.inFlight++
	ds.mu.Unlock()
}

// FetchFinished records that a worker finished fetching from host.
func (c *Controller) FetchFinished(host string) {
	ds := c.domain(strings.ToLower(host))
	ds.mu.Lock()
	if ds.inFlight > 0 {
		ds.inFlight--
	}
	ds.mu.Unlock()
}

// InFlight returns the number of workers currently fetching from host.
func (c *Controller) InFlight(host string) int {
	ds := c.domain(strings.ToLower(host))
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.inFlight
}

// effectiveDelay is max(configured, robots crawl-delay, domain override).
func (c *Controller) effectiveDelay(host string, ds *domainState) time.Duration {
	delay := c.minDelay
	if ds.crawlDelay > delay {
		delay = ds.crawlDelay
	}
	if override, ok := c.domainDelay[host]; ok && override > delay {
		delay = override
	}
	return delay
}

// domain returns the state for host, creating it on first reference.
func (c *Controller) domain(host string) *domainState {
	c.mu.Lock()
	defer c.mu.Unlock()
	ds, ok := c.domains[host]
	if !ok {
		ds = &domainState{}
		c.domains[host] = ds
	}
	return ds
}

// fetchRobots retrieves and parses robots.txt for the domain.
// Any failure leaves ds.group nil, which evaluates as "no restrictions".
func (c *Controller) fetchRobots(ctx context.Context, ds *domainState, scheme, hostport string) {
	robotsURL := (&url.URL{Scheme: scheme, Host: hostport, Path: "/robots.txt"}).String()

	ctx, cancel := context.WithTimeout(ctx, robotsFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("robots.txt fetch failed, assuming permissive",
			"url", robotsURL,
			"error", err,
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("robots.txt unavailable, assuming permissive",
			"url", robotsURL,
			"status", resp.StatusCode,
		)
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsMaxBodySize))
	if err != nil {
		return
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		c.logger.Debug("robots.txt unparsable, assuming permissive",
			"url", robotsURL,
			"error", err,
		)
		return
	}

	group := data.FindGroup(c.userAgent)
	if group == nil {
		group = data.FindGroup("*")
	}
	if group == nil {
		return
	}
	ds.group = group
	ds.crawlDelay = group.CrawlDelay
}

// pathForRobots returns the path (plus query) robots rules match on.
func pathForRobots(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
