package frontier

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/mshibata-dev/crawld/internal/model"
)

// MemoryStore is an in-memory Store for non-resumable runs. It exposes
// the identical interface as SQLiteStore so the engine cannot tell the
// difference; it simply loses everything when the process exits.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*model.URLRecord
	pending pendingHeap
	seq     int64
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory frontier.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*model.URLRecord),
		now:     time.Now,
	}
}

// Enqueue implements Store.
func (s *MemoryStore) Enqueue(_ context.Context, url string, depth int, referrer string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[url]; ok {
		return false, nil
	}

	rec := &model.URLRecord{
		CanonicalURL: url,
		Depth:        depth,
		State:        model.StatePending,
		DiscoveredAt: s.now(),
		Referrer:     referrer,
	}
	s.records[url] = rec
	s.seq++
	heap.Push(&s.pending, pendingItem{url: url, depth: depth, seq: s.seq})
	return true, nil
}

// LeaseNext implements Store.
func (s *MemoryStore) LeaseNext(_ context.Context) (*model.URLRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending.Len() == 0 {
		return nil, nil
	}
	item := heap.Pop(&s.pending).(pendingItem)
	rec := s.records[item.url]
	rec.State = model.StateInProgress
	rec.Attempts++

	out := *rec
	return &out, nil
}

// Complete implements Store.
func (s *MemoryStore) Complete(_ context.Context, url string, out Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[url]
	if !ok || rec.State != model.StateInProgress {
		return ErrNotLeased
	}
	rec.State = out.State
	rec.FailReason = out.Reason
	return nil
}

// CountByState implements Store.
func (s *MemoryStore) CountByState(_ context.Context) (map[model.CrawlState]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[model.CrawlState]int)
	for _, rec := range s.records {
		counts[rec.State]++
	}
	return counts, nil
}

// Close implements Store. It is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// pendingItem orders the pending set breadth-first: depth first, then
// enqueue order.
type pendingItem struct {
	url   string
	depth int
	seq   int64
}

type pendingHeap []pendingItem

func (h pendingHeap) Len() int { return len(h) }

func (h pendingHeap) Less(i, j int) bool {
	if h[i].depth != h[j].depth {
		return h[i].depth < h[j].depth
	}
	return h[i].seq < h[j].seq
}

func (h pendingHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pendingHeap) Push(x any) { *h = append(*h, x.(pendingItem)) }

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
