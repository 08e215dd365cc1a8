// Package telemetry provides a JSONL event log for build runs. Every record
// is stamped with the run's id and a namespace, so logs from several
// collaborators can share one file and still be told apart.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a single event-log record.
type Event struct {
	Timestamp time.Time      `json:"ts"`
	RunID     string         `json:"run"`
	Namespace string         `json:"namespace"`
	Kind      string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
}

// Emitter appends events to a JSONL file. It is safe for concurrent use by
// multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	runID string
	file  *os.File
	enc   *json.Encoder
	mu    sync.Mutex
}

// NewEmitter opens (or creates) the file at path for appending and
// assigns a fresh run id.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		runID: uuid.NewString(),
		file:  f,
		enc:   json.NewEncoder(f),
	}, nil
}

// RunID returns the id stamped on every event, or "" for a nil Emitter.
func (e *Emitter) RunID() string {
	if e == nil {
		return ""
	}
	return e.runID
}

// Emit writes evt, filling in the timestamp and run id when unset.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if evt.RunID == "" {
		evt.RunID = e.runID
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// WriterFunc records one event with the given kind and data.
type WriterFunc func(kind string, data map[string]any) error

// Writer returns a WriterFunc bound to namespace. Writers of a nil
// Emitter discard everything.
func (e *Emitter) Writer(namespace string) WriterFunc {
	return func(kind string, data map[string]any) error {
		return e.Emit(Event{Namespace: namespace, Kind: kind, Data: data})
	}
}

// Close closes the underlying file. Calling Close on a nil Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
