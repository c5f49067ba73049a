// Package audit persists types.DecisionRecord facts emitted by the
// pipeline driver. It never reads them back: the decision log is
// write-only observability, not resumable state.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/k4hvh/madbridge/internal/types"
)

// JSONLSink appends each record to a daily-rotated JSONL file under dir
// (dir/2006-01-02.jsonl), matching this codebase's own report_events.go
// pattern: filename chosen once per write from the current UTC date, a
// per-filename mutex protecting concurrent appends, one json.Encoder
// call per record. A write failure is silently swallowed (nothing is
// logged) —
// same fail-open posture as the rest of the pipeline's side channels,
// since a lost audit line must never block forwarding.
type JSONLSink struct {
	dir string

	mu      sync.Mutex
	mutexes map[string]*sync.Mutex
}

// NewJSONLSink returns a sink that writes under dir, creating it if
// necessary.
func NewJSONLSink(dir string) (*JSONLSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory %q: %w", dir, err)
	}
	return &JSONLSink{dir: dir, mutexes: make(map[string]*sync.Mutex)}, nil
}

// Record appends rec to today's JSONL file.
func (s *JSONLSink) Record(rec types.DecisionRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	filename := filepath.Join(s.dir, rec.Timestamp.Format("2006-01-02")+".jsonl")
	fileMutex := s.fileMutex(filename)

	fileMutex.Lock()
	defer fileMutex.Unlock()

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_ = json.NewEncoder(f).Encode(rec)
}

func (s *JSONLSink) fileMutex(filename string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mutexes[filename]
	if !ok {
		m = &sync.Mutex{}
		s.mutexes[filename] = m
	}
	return m
}
