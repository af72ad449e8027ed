// Package telemetry records clustering runs as a JSONL event stream. Each
// run gets a UUID, and every load, skipped pair, and result is written as
// one JSON object per line so runs can be audited after the fact.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds identify the type of telemetry event.
const (
	KindRunStart    = "run_start"
	KindPairsLoaded = "pairs_loaded"
	KindPairSkipped = "pair_skipped"
	KindRunDone     = "run_done"
	KindRunFailed   = "run_failed"
	KindLabelsSaved = "labels_saved"
)

// Event is a single telemetry record.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	RunID     string    `json:"run,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// NewRunID returns a fresh identifier for a clustering run.
func NewRunID() string {
	return uuid.NewString()
}

// Emitter writes events to a JSONL file. It is safe for concurrent use.
// A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
	now  func() time.Time
}

// NewEmitter opens path for appending, creating it if needed.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file: f,
		enc:  json.NewEncoder(f),
		now:  time.Now,
	}, nil
}

// Emit writes evt as one line. Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Record emits an event of the given kind for runID, stamped with the
// current time.
func (e *Emitter) Record(kind, runID string, data any) error {
	if e == nil {
		return nil
	}
	return e.Emit(Event{Timestamp: e.now().UTC(), Kind: kind, RunID: runID, Data: data})
}

// Close closes the underlying file. Calling Close on a nil Emitter is a
// no-op.
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
