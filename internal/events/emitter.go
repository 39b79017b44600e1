package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event types emitted by the process command.
const (
	TypeRunStart      = "run-start"
	TypeStageFinished = "stage-finished"
	TypeReportWritten = "report-written"
	TypeRunFinished   = "run-finished"

	// TypeReportSummarized is emitted by the report command.
	TypeReportSummarized = "report-summarized"
)

// Event represents a single NDJSON record for worker-friendly logs.
type Event struct {
	Type      string                 `json:"type"`
	RunID     string                 `json:"runId,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Message   string                 `json:"message,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emitter writes NDJSON events to an io.Writer safely across goroutines.
type Emitter struct {
	writer io.Writer
	runID  string
	mu     sync.Mutex
}

// NewEmitter returns a new NDJSON emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{writer: w}
}

// WithRunID stamps every event that has no run ID with id.
func (e *Emitter) WithRunID(id string) *Emitter {
	e.runID = id
	return e
}

// Emit serializes the event to JSON and appends a newline.
func (e *Emitter) Emit(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if evt.RunID == "" {
		evt.RunID = e.runID
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.writer.Write(append(payload, '\n')); err != nil {
		return err
	}

	return nil
}
