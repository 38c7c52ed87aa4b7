package frontier

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mshibata-dev/crawld/internal/model"
)

// TestSQLiteCrashRecovery verifies that a record left in_progress by a
// crashed process is presented as pending after reopening the store.
func TestSQLiteCrashRecovery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "crawl.db")

	store, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	if _, err := store.Enqueue(ctx, "https://example.com/", 0, ""); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	rec, err := store.LeaseNext(ctx)
	if err != nil || rec == nil {
		t.Fatalf("lease failed: rec=%v err=%v", rec, err)
	}

	// Simulate a crash: close without calling Complete.
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	counts, err := reopened.CountByState(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if counts[model.StateInProgress] != 0 {
		t.Errorf("in_progress = %d, want 0 after recovery", counts[model.StateInProgress])
	}
	if counts[model.StatePending] != 1 {
		t.Errorf("pending = %d, want 1 after recovery", counts[model.StatePending])
	}

	// The recovered record is leasable again and keeps its attempt count.
	rec, err = reopened.LeaseNext(ctx)
	if err != nil || rec == nil {
		t.Fatalf("lease after recovery failed: rec=%v err=%v", rec, err)
	}
	if rec.Attempts != 2 {
		t.Errorf("attempts = %d, want 2 (one per lease)", rec.Attempts)
	}
}

// TestSQLiteResumeSkipsDone verifies that completed records survive a
// reopen and are never re-leased.
func TestSQLiteResumeSkipsDone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "crawl.db")

	store, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	if _, err := store.Enqueue(ctx, "https://example.com/", 0, ""); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	rec, err := store.LeaseNext(ctx)
	if err != nil || rec == nil {
		t.Fatalf("lease failed: rec=%v err=%v", rec, err)
	}
	if err := store.Complete(ctx, rec.CanonicalURL, Done()); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := Open(path, Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.LeaseNext(ctx)
	if err != nil {
		t.Fatalf("lease failed: %v", err)
	}
	if got != nil {
		t.Errorf("leased %s, want empty frontier (done records are terminal)", got.CanonicalURL)
	}

	// The done URL is still deduplicated after reopen.
	created, err := reopened.Enqueue(ctx, "https://example.com/", 0, "")
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if created {
		t.Error("re-enqueue of a done URL should be a no-op")
	}
}

// TestSQLiteOpenMissing verifies that resume against a missing database
// fails instead of starting an empty crawl.
func TestSQLiteOpenMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nope", "crawl.db")
	if _, err := Open(path, Options{CreateIfNotExists: false, EnableWAL: true}); err == nil {
		t.Fatal("expected error opening missing database without create option")
	}
}

// TestSQLitePagesAndSummary tests page/link persistence and the report
// aggregation.
func TestSQLitePagesAndSummary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "crawl.db"), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	urls := []string{"https://example.com/", "https://example.com/a", "https://other.example.com/x"}
	for _, u := range urls {
		if _, err := store.Enqueue(ctx, u, 0, ""); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	for i, u := range urls {
		rec, err := store.LeaseNext(ctx)
		if err != nil || rec == nil {
			t.Fatalf("lease %d failed: rec=%v err=%v", i, rec, err)
		}
		page := &model.PageRecord{URL: u, Status: 200, ContentType: "text/html", NumLinks: 1}
		if i == 2 {
			page.Status = 404
		}
		if err := store.SavePage(ctx, page, i); err != nil {
			t.Fatalf("save page failed: %v", err)
		}
		if err := store.Complete(ctx, rec.CanonicalURL, Done()); err != nil {
			t.Fatalf("complete failed: %v", err)
		}
	}

	if err := store.AddLinks(ctx, urls[0], []string{urls[1], urls[2], urls[2]}); err != nil {
		t.Fatalf("add links failed: %v", err)
	}

	sum, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if sum.Pages != 3 {
		t.Errorf("pages = %d, want 3", sum.Pages)
	}
	if sum.ByStatus[200] != 2 || sum.ByStatus[404] != 1 {
		t.Errorf("by status = %v, want 2x200 and 1x404", sum.ByStatus)
	}
	if sum.ByDomain["example.com"] != 2 || sum.ByDomain["other.example.com"] != 1 {
		t.Errorf("by domain = %v", sum.ByDomain)
	}
	if sum.Links != 2 {
		t.Errorf("links = %d, want 2 (duplicate edge ignored)", sum.Links)
	}
	if sum.ByState[model.StateDone] != 3 {
		t.Errorf("done = %d, want 3", sum.ByState[model.StateDone])
	}
}
