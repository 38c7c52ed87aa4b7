package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mshibata-dev/crawld/internal/model"
)

// JSONLSink appends page records to a file as JSON Lines, one record
// per line. Every Append hits the file immediately, so a crashed crawl
// keeps everything written so far; resumed runs open in append mode
// and continue the same file.
type JSONLSink struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLSink opens the JSONL output file at path, creating parent
// directories as needed. When appendMode is false the file is
// truncated; resume runs pass true to keep earlier records.
func NewJSONLSink(path string, appendMode bool) (*JSONLSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if !appendMode {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return &JSONLSink{file: f, enc: enc}, nil
}

// Append implements Sink. Encoder output always ends with a newline,
// which is exactly the JSONL framing.
func (s *JSONLSink) Append(rec *model.PageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to write page record: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
