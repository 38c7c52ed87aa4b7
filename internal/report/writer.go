package report

import (
	"github.com/mshibata-dev/crawld/internal/model"
)

// Sink receives page records as the crawl produces them.
//
// Design decision: We use an interface rather than a concrete JSONL
// writer so the engine can stream to files, stdout, or tests with the
// same API. Implementations must be safe for concurrent Append calls
// from multiple workers.
type Sink interface {
	// Append writes one page record.
	Append(rec *model.PageRecord) error

	// Close flushes and releases the sink.
	Close() error
}

// MultiSink appends to multiple Sinks simultaneously. This is useful
// for writing to both a file and stdout.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a Sink that appends to all provided Sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Append writes the record to all configured Sinks. Stops on the first
// error encountered.
func (m *MultiSink) Append(rec *model.PageRecord) error {
	for _, s := range m.sinks {
		if err := s.Append(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all configured Sinks, returning the first error.
func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
