package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mshibata-dev/crawld/internal/config"
	"github.com/mshibata-dev/crawld/internal/extract"
	"github.com/mshibata-dev/crawld/internal/frontier"
	"github.com/mshibata-dev/crawld/internal/metrics"
	"github.com/mshibata-dev/crawld/internal/model"
	"github.com/mshibata-dev/crawld/internal/politeness"
	"github.com/mshibata-dev/crawld/internal/report"
	"github.com/mshibata-dev/crawld/internal/urlnorm"
)

// idlePollInterval is how long an idle worker waits before re-checking
// the frontier. Workers go idle when the frontier is drained but other
// workers still hold leases that may produce new links.
const idlePollInterval = 50 * time.Millisecond

// Engine coordinates the crawl. It owns no policy of its own: the
// frontier decides order and deduplication, the politeness controller
// decides timing and robots rules, and the engine wires them together
// with a worker pool.
type Engine struct {
	cfg      *config.Config
	store    frontier.Store
	pages    frontier.PageStore
	sink     report.Sink
	polite   *politeness.Controller
	fetcher  *fetcher
	counters *metrics.Counters
	logger   *slog.Logger

	// parse extracts a fetched HTML body. Tests replace it to exercise
	// extraction failures, which real pages almost never produce.
	parse func(base *url.URL, r io.Reader, contentType string) (*extract.Result, error)

	// fetched reserves page-budget slots. A worker increments it before
	// fetching and refunds the slot on any outcome that is not a stored
	// page, so the budget counts pages successfully crawled.
	// Reservations past MaxPages are refused and the lease is completed
	// as a limit skip.
	fetched atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithPageStore enables page and link persistence alongside the
// frontier. The durable SQLite store implements this; memory runs
// leave it unset.
func WithPageStore(ps frontier.PageStore) Option {
	return func(e *Engine) { e.pages = ps }
}

// WithHTTPClient overrides the HTTP client used for page and robots
// fetches. Tests use this to disable keep-alives or inject transports.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.fetcher.client = client
		e.polite = e.buildController(client)
	}
}

// New creates an Engine. The config must be validated; the store and
// sink stay owned by the caller and are not closed by the engine.
func New(cfg *config.Config, store frontier.Store, sink report.Sink, logger *slog.Logger, opts ...Option) *Engine {
	client := &http.Client{Timeout: cfg.Timeout}

	e := &Engine{
		cfg:   cfg,
		store: store,
		sink:  sink,
		fetcher: &fetcher{
			client:      client,
			userAgent:   cfg.UserAgent,
			maxBodySize: cfg.MaxBodySize,
		},
		counters: metrics.NewCounters(),
		logger:   logger,
		parse:    extract.Parse,
	}
	if cfg.File != nil {
		file := cfg.File
		e.fetcher.headersFor = func(host string) map[string]string {
			return file.GetDomainConfig(host).Headers
		}
	}
	e.polite = e.buildController(client)

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// buildController constructs the politeness controller for a client.
func (e *Engine) buildController(client *http.Client) *politeness.Controller {
	opts := []politeness.Option{
		politeness.WithIgnoreRobots(e.cfg.IgnoreRobots),
		politeness.WithLogger(e.logger),
	}
	if e.cfg.File != nil {
		opts = append(opts, politeness.WithDomainDelay(e.cfg.File.DomainDelays()))
	}
	return politeness.New(client, e.cfg.UserAgent, e.cfg.Delay, opts...)
}

// Counters exposes the crawl counters for the stats logger and the
// metrics exporter.
func (e *Engine) Counters() *metrics.Counters {
	return e.counters
}

// Run executes the crawl until the frontier is exhausted or ctx is
// canceled. Cancellation is a clean stop: in-flight fetches finish and
// are recorded, unstarted leases stay recoverable.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.seed(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.cfg.Concurrency; i++ {
		g.Go(func() error {
			return e.worker(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// seed canonicalizes the configured seeds and enqueues them at depth 0.
// Already-known seeds (a resumed crawl) are harmless no-ops. The crawl
// needs at least one seed to survive normalization unless the store
// already holds records to resume from.
func (e *Engine) seed(ctx context.Context) error {
	valid := 0
	for _, raw := range e.cfg.Seeds {
		canonical, err := urlnorm.NormalizeSeed(raw)
		if err != nil {
			e.logger.Warn("Skipping invalid seed URL", "seed", raw, "error", err)
			continue
		}
		if _, err := e.store.Enqueue(ctx, canonical, 0, ""); err != nil {
			return fmt.Errorf("failed to enqueue seed %s: %w", canonical, err)
		}
		valid++
	}
	if valid == 0 {
		counts, err := e.store.CountByState(ctx)
		if err != nil {
			return err
		}
		known := 0
		for _, n := range counts {
			known += n
		}
		if known == 0 {
			return errors.New("no valid seed URLs and the frontier is empty")
		}
	}
	return nil
}

// worker leases and processes records until the crawl converges.
//
// Convergence needs two conditions from the same store: no pending
// record to lease AND no record in_progress. A lone empty lease is not
// enough; another worker may still be fetching a page whose links will
// refill the frontier.
func (e *Engine) worker(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := e.store.LeaseNext(ctx)
		if err != nil {
			return err
		}
		if rec == nil {
			counts, err := e.store.CountByState(ctx)
			if err != nil {
				return err
			}
			if counts[model.StateInProgress] == 0 {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(idlePollInterval):
			}
			continue
		}

		if err := e.process(ctx, rec); err != nil {
			return err
		}
	}
}

// process handles one leased record through to completion.
func (e *Engine) process(ctx context.Context, rec *model.URLRecord) error {
	pageURL := rec.CanonicalURL
	host := urlnorm.Host(pageURL)

	// Depth bound. Links past the limit are enqueued (so the frontier
	// records their discovery) but never fetched.
	if rec.Depth > e.cfg.MaxDepth {
		e.counters.RecordSkip()
		return e.complete(ctx, pageURL, frontier.Failed(model.ReasonSkippedLimit))
	}

	// Page budget. The reservation is atomic so N workers cannot
	// overshoot the limit together.
	if e.fetched.Add(1) > int64(e.cfg.MaxPages) {
		e.counters.RecordSkip()
		return e.complete(ctx, pageURL, frontier.Failed(model.ReasonSkippedLimit))
	}

	// Politeness gate. MustWait holds the lease and waits rather than
	// releasing it; re-leasing would only shuffle the same URL between
	// workers.
	for {
		d := e.polite.Check(ctx, pageURL)
		if d.Verdict == politeness.Disallowed {
			e.fetched.Add(-1) // refund the unused budget slot
			e.counters.RecordSkip()
			e.logger.Debug("Disallowed by robots.txt", "url", pageURL)
			return e.complete(ctx, pageURL, frontier.Failed(model.ReasonSkippedPolicy))
		}
		if d.Verdict == politeness.Allowed {
			break
		}
		select {
		case <-ctx.Done():
			// The lease stays in_progress; reopening the store
			// resets it to pending.
			return ctx.Err()
		case <-time.After(d.Wait):
		}
	}

	// From here on the record is completed even during shutdown, so the
	// granted request slot and budget reservation are not wasted.
	pctx := context.WithoutCancel(ctx)

	fctx, cancel := context.WithTimeout(pctx, e.cfg.Timeout)
	defer cancel()

	e.polite.FetchStarted(host)
	start := time.Now()
	res, err := e.fetcher.fetch(fctx, pageURL, host)
	elapsed := time.Since(start)
	e.polite.FetchFinished(host)

	if err != nil {
		e.fetched.Add(-1) // failed pages do not count against the budget
		e.counters.RecordFetch(false, 0, elapsed)
		e.logger.Warn("Fetch failed", "url", pageURL, "error", err)
		return e.complete(pctx, pageURL, frontier.Failed(model.ReasonFetchError))
	}

	page := &model.PageRecord{
		URL:         pageURL,
		Status:      res.Status,
		ContentType: res.ContentType,
	}

	var links []string
	if len(res.Body) > 0 && strings.Contains(res.ContentType, "text/html") {
		base, err := url.Parse(pageURL)
		if err != nil {
			// Canonical URLs parse by construction.
			return fmt.Errorf("leased record has unparsable url %q: %w", pageURL, err)
		}
		parsed, err := e.parse(base, bytes.NewReader(res.Body), res.ContentType)
		if err != nil {
			e.fetched.Add(-1)
			e.counters.RecordFetch(false, int64(len(res.Body)), elapsed)
			e.logger.Warn("Extraction failed", "url", pageURL, "error", err)
			return e.complete(pctx, pageURL, frontier.Failed(model.ReasonExtractError))
		}
		page.Title = parsed.Title
		page.Description = parsed.Description
		page.Text = parsed.Text
		page.NumLinks = len(parsed.Links)
		links = parsed.Links
	}

	e.enqueueLinks(pctx, rec, links)

	if err := e.sink.Append(page); err != nil {
		return fmt.Errorf("failed to write page record: %w", err)
	}
	if e.pages != nil {
		if err := e.pages.SavePage(pctx, page, rec.Depth); err != nil {
			return err
		}
		if err := e.pages.AddLinks(pctx, pageURL, links); err != nil {
			return err
		}
	}

	e.counters.RecordFetch(true, int64(len(res.Body)), elapsed)
	e.logger.Debug("Crawled page",
		"url", pageURL,
		"status", page.Status,
		"depth", rec.Depth,
		"links", page.NumLinks,
	)
	return e.complete(pctx, pageURL, frontier.Done())
}

// enqueueLinks feeds discovered links back into the frontier. Links to
// hosts outside the allow-list are discarded; duplicates are no-ops
// inside the store.
func (e *Engine) enqueueLinks(ctx context.Context, rec *model.URLRecord, links []string) {
	next := rec.Depth + 1
	for _, link := range links {
		if !urlnorm.AllowedHost(urlnorm.Host(link), e.cfg.AllowedDomains) {
			continue
		}
		if _, err := e.store.Enqueue(ctx, link, next, rec.CanonicalURL); err != nil {
			e.logger.Warn("Failed to enqueue discovered link", "url", link, "error", err)
		}
	}
}

// complete finishes a lease, treating ErrNotLeased as fatal: it means
// two workers processed the same record, which the store must prevent.
func (e *Engine) complete(ctx context.Context, url string, out frontier.Outcome) error {
	if err := e.store.Complete(ctx, url, out); err != nil {
		return fmt.Errorf("failed to complete %s: %w", url, err)
	}
	return nil
}
