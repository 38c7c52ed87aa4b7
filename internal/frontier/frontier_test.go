package frontier

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mshibata-dev/crawld/internal/model"
)

// openStores returns one of each Store implementation, keyed by name.
// Behavior tests run against both to keep the implementations honest.
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlStore, err := Open(filepath.Join(t.TempDir(), "crawl.db"), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = sqlStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlStore,
	}
}

// TestEnqueueDedup verifies that a canonical URL is stored at most once
// and that later discoveries do not reset depth or state.
func TestEnqueueDedup(t *testing.T) {
	t.Parallel()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := store.Enqueue(ctx, "https://example.com/", 0, "")
			if err != nil {
				t.Fatalf("enqueue failed: %v", err)
			}
			if !created {
				t.Fatal("first enqueue should create a record")
			}

			// Re-discovery at a different depth is a no-op.
			created, err = store.Enqueue(ctx, "https://example.com/", 3, "https://example.com/other")
			if err != nil {
				t.Fatalf("enqueue failed: %v", err)
			}
			if created {
				t.Error("second enqueue should not create a record")
			}

			rec, err := store.LeaseNext(ctx)
			if err != nil {
				t.Fatalf("lease failed: %v", err)
			}
			if rec == nil {
				t.Fatal("expected a leased record")
			}
			if rec.Depth != 0 {
				t.Errorf("depth = %d, want 0 (first discoverer wins)", rec.Depth)
			}
			if rec.Attempts != 1 {
				t.Errorf("attempts = %d, want 1", rec.Attempts)
			}
			if rec.State != model.StateInProgress {
				t.Errorf("state = %q, want in_progress", rec.State)
			}
		})
	}
}

// TestLeaseBreadthFirst verifies the breadth-first lease order: lowest
// depth first, then discovery order.
func TestLeaseBreadthFirst(t *testing.T) {
	t.Parallel()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Enqueued out of depth order on purpose.
			inserts := []struct {
				url   string
				depth int
			}{
				{"https://example.com/d", 2},
				{"https://example.com/", 0},
				{"https://example.com/b", 1},
				{"https://example.com/c", 1},
			}
			for _, in := range inserts {
				if _, err := store.Enqueue(ctx, in.url, in.depth, ""); err != nil {
					t.Fatalf("enqueue failed: %v", err)
				}
			}

			want := []string{
				"https://example.com/",
				"https://example.com/b",
				"https://example.com/c",
				"https://example.com/d",
			}
			for i, w := range want {
				rec, err := store.LeaseNext(ctx)
				if err != nil {
					t.Fatalf("lease %d failed: %v", i, err)
				}
				if rec == nil {
					t.Fatalf("lease %d: frontier empty, want %s", i, w)
				}
				if rec.CanonicalURL != w {
					t.Errorf("lease %d = %s, want %s", i, rec.CanonicalURL, w)
				}
			}

			rec, err := store.LeaseNext(ctx)
			if err != nil {
				t.Fatalf("final lease failed: %v", err)
			}
			if rec != nil {
				t.Errorf("expected empty frontier, got %s", rec.CanonicalURL)
			}
		})
	}
}

// TestComplete verifies lease completion transitions and counting.
func TestComplete(t *testing.T) {
	t.Parallel()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, u := range []string{"https://example.com/a", "https://example.com/b"} {
				if _, err := store.Enqueue(ctx, u, 0, ""); err != nil {
					t.Fatalf("enqueue failed: %v", err)
				}
			}

			a, err := store.LeaseNext(ctx)
			if err != nil || a == nil {
				t.Fatalf("lease failed: rec=%v err=%v", a, err)
			}
			if err := store.Complete(ctx, a.CanonicalURL, Done()); err != nil {
				t.Fatalf("complete done failed: %v", err)
			}

			b, err := store.LeaseNext(ctx)
			if err != nil || b == nil {
				t.Fatalf("lease failed: rec=%v err=%v", b, err)
			}
			if err := store.Complete(ctx, b.CanonicalURL, Failed(model.ReasonFetchError)); err != nil {
				t.Fatalf("complete failed failed: %v", err)
			}

			// Completing a record that is not leased is an error.
			if err := store.Complete(ctx, a.CanonicalURL, Done()); err != ErrNotLeased {
				t.Errorf("re-complete error = %v, want ErrNotLeased", err)
			}

			counts, err := store.CountByState(ctx)
			if err != nil {
				t.Fatalf("count failed: %v", err)
			}
			if counts[model.StateDone] != 1 || counts[model.StateFailed] != 1 {
				t.Errorf("counts = %v, want 1 done and 1 failed", counts)
			}
			if counts[model.StatePending] != 0 || counts[model.StateInProgress] != 0 {
				t.Errorf("counts = %v, want no pending or in_progress", counts)
			}
		})
	}
}
