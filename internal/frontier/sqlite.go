package frontier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/mshibata-dev/crawld/internal/model"
	"github.com/mshibata-dev/crawld/internal/urlnorm"
)

// Bloom filter sizing for the enqueue fast path. 1M expected URLs at
// 0.1% false positives costs under 2MB; a false positive only causes
// one extra point lookup, never a missed URL.
const (
	bloomExpectedURLs      = 1_000_000
	bloomFalsePositiveRate = 0.001
)

// SQLiteStore is the durable frontier implementation.
//
// Design decision: a single connection (SetMaxOpenConns(1)) serializes
// all statements, which makes every Store operation atomic without
// row-level locking; SQLite supports only one writer anyway. WAL mode
// keeps the file consistent across crashes.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string

	// seen is a Bloom filter over every URL in the frontier table.
	// Enqueue consults it before touching the database: a negative
	// answer is definitive, so the common duplicate-link case skips
	// the write path entirely. Guarded by mu.
	mu   sync.Mutex
	seen *bloom.BloomFilter
}

// Options configures SQLiteStore behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	// Resume runs set this to false so a typo'd path fails loudly
	// instead of silently starting an empty crawl.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. Recommended for most use
	// cases.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the frontier database at path.
//
// On open, any record left in_progress by a crashed process is reset to
// pending. This is the sole recovery rule: it guarantees no discovered
// work is lost, at the cost of possibly re-fetching a page whose result
// was never recorded.
func Open(path string, opts Options) (*SQLiteStore, error) {
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("frontier database not found at %s", path)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	dsn := path + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = path + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{
		db:     db,
		dbPath: path,
		seen:   bloom.NewWithEstimates(bloomExpectedURLs, bloomFalsePositiveRate),
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := s.recover(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to recover in-progress records: %w", err)
	}
	if err := s.loadSeen(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load frontier index: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// createTables creates the schema if it doesn't exist.
func (s *SQLiteStore) createTables() error {
	schema := `
	-- The frontier table is both the work queue and the audit log.
	-- state manages the lifecycle: pending -> in_progress -> done/failed.
	CREATE TABLE IF NOT EXISTS frontier (
		url TEXT PRIMARY KEY,
		depth INTEGER NOT NULL,
		state TEXT NOT NULL DEFAULT 'pending'
			CHECK (state IN ('pending', 'in_progress', 'done', 'failed')),
		discovered_at INTEGER NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		referrer TEXT NOT NULL DEFAULT '',
		fail_reason TEXT NOT NULL DEFAULT '',
		completed_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_frontier_state ON frontier(state);
	CREATE INDEX IF NOT EXISTS idx_frontier_lease ON frontier(state, depth, discovered_at);

	-- Page records for completed URLs, mirroring the JSONL output.
	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		status INTEGER,
		content_type TEXT,
		title TEXT,
		description TEXT,
		text TEXT,
		num_links INTEGER,
		depth INTEGER,
		crawled_at INTEGER NOT NULL
	);

	-- Link edges between pages.
	CREATE TABLE IF NOT EXISTS links (
		from_url TEXT NOT NULL,
		to_url TEXT NOT NULL,
		UNIQUE(from_url, to_url)
	);

	CREATE INDEX IF NOT EXISTS idx_links_from ON links(from_url);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// recover applies the crash-recovery rule.
func (s *SQLiteStore) recover() error {
	_, err := s.db.ExecContext(context.Background(),
		`UPDATE frontier SET state = ? WHERE state = ?`,
		model.StatePending, model.StateInProgress,
	)
	return err
}

// loadSeen rebuilds the Bloom filter from the persisted frontier.
func (s *SQLiteStore) loadSeen() error {
	rows, err := s.db.QueryContext(context.Background(), `SELECT url FROM frontier`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return err
		}
		s.seen.AddString(url)
	}
	return rows.Err()
}

// Enqueue implements Store.
func (s *SQLiteStore) Enqueue(ctx context.Context, url string, depth int, referrer string) (bool, error) {
	s.mu.Lock()
	maybeSeen := s.seen.TestString(url)
	s.mu.Unlock()

	if maybeSeen {
		// The filter can report false positives; confirm before
		// declaring the URL known.
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM frontier WHERE url = ?`, url).Scan(&one)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("failed to check frontier: %w", err)
		}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO frontier (url, depth, state, discovered_at, referrer)
		 VALUES (?, ?, ?, ?, ?)`,
		url, depth, model.StatePending, time.Now().UnixNano(), referrer,
	)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue %s: %w", url, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to enqueue %s: %w", url, err)
	}
	if n == 0 {
		return false, nil
	}

	s.mu.Lock()
	s.seen.AddString(url)
	s.mu.Unlock()
	return true, nil
}

// LeaseNext implements Store. Selection is breadth-first: lowest depth
// first, then earliest discovery, then insertion order as the final
// tie-break for identical timestamps.
func (s *SQLiteStore) LeaseNext(ctx context.Context) (*model.URLRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin lease: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var (
		rec          model.URLRecord
		discoveredAt int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT url, depth, discovered_at, attempts, referrer
		 FROM frontier
		 WHERE state = ?
		 ORDER BY depth ASC, discovered_at ASC, rowid ASC
		 LIMIT 1`,
		model.StatePending,
	).Scan(&rec.CanonicalURL, &rec.Depth, &discoveredAt, &rec.Attempts, &rec.Referrer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select pending record: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE frontier SET state = ?, attempts = attempts + 1 WHERE url = ?`,
		model.StateInProgress, rec.CanonicalURL,
	); err != nil {
		return nil, fmt.Errorf("failed to lease %s: %w", rec.CanonicalURL, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit lease: %w", err)
	}

	rec.State = model.StateInProgress
	rec.Attempts++
	rec.DiscoveredAt = time.Unix(0, discoveredAt)
	return &rec, nil
}

// Complete implements Store.
func (s *SQLiteStore) Complete(ctx context.Context, url string, out Outcome) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE frontier SET state = ?, fail_reason = ?, completed_at = ?
		 WHERE url = ? AND state = ?`,
		out.State, string(out.Reason), time.Now().UnixNano(), url, model.StateInProgress,
	)
	if err != nil {
		return fmt.Errorf("failed to complete %s: %w", url, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete %s: %w", url, err)
	}
	if n == 0 {
		return ErrNotLeased
	}
	return nil
}

// CountByState implements Store.
func (s *SQLiteStore) CountByState(ctx context.Context) (map[model.CrawlState]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state, COUNT(*) FROM frontier GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by state: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.CrawlState]int)
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan state count: %w", err)
		}
		counts[model.CrawlState(state)] = n
	}
	return counts, rows.Err()
}

// SavePage implements PageStore.
func (s *SQLiteStore) SavePage(ctx context.Context, rec *model.PageRecord, depth int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pages
		 (url, status, content_type, title, description, text, num_links, depth, crawled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.URL, rec.Status, rec.ContentType, rec.Title, rec.Description,
		rec.Text, rec.NumLinks, depth, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save page %s: %w", rec.URL, err)
	}
	return nil
}

// AddLinks implements PageStore.
func (s *SQLiteStore) AddLinks(ctx context.Context, from string, to []string) error {
	if len(to) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin link insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO links (from_url, to_url) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare link insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range to {
		if _, err := stmt.ExecContext(ctx, from, u); err != nil {
			return fmt.Errorf("failed to insert link %s -> %s: %w", from, u, err)
		}
	}
	return tx.Commit()
}

// Summary aggregates the store for the report command.
type Summary struct {
	// ByState counts frontier records per crawl state.
	ByState map[model.CrawlState]int

	// ByStatus counts stored pages per HTTP status code.
	ByStatus map[int]int

	// ByDomain counts stored pages per hostname.
	ByDomain map[string]int

	// ByReason counts failed records per failure reason.
	ByReason map[model.FailReason]int

	// Pages is the number of stored page records.
	Pages int

	// Links is the number of recorded link edges.
	Links int

	// MaxDepth is the deepest stored page.
	MaxDepth int
}

// Summarize scans the store and aggregates crawl results.
func (s *SQLiteStore) Summarize(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		ByState:  make(map[model.CrawlState]int),
		ByStatus: make(map[int]int),
		ByDomain: make(map[string]int),
		ByReason: make(map[model.FailReason]int),
	}

	var err error
	if sum.ByState, err = s.CountByState(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT fail_reason, COUNT(*) FROM frontier
		 WHERE state = ? GROUP BY fail_reason`, model.StateFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to count failures: %w", err)
	}
	for rows.Next() {
		var (
			reason string
			n      int
		)
		if err := rows.Scan(&reason, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan failure count: %w", err)
		}
		sum.ByReason[model.FailReason(reason)] = n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT url, status, depth FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			url    string
			status int
			depth  int
		)
		if err := rows.Scan(&url, &status, &depth); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		sum.Pages++
		sum.ByStatus[status]++
		if host := urlnorm.Host(url); host != "" {
			sum.ByDomain[host]++
		}
		if depth > sum.MaxDepth {
			sum.MaxDepth = depth
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM links`).Scan(&sum.Links); err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}
	return sum, nil
}
