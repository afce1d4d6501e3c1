// Package report records workflow run transcripts.
//
// A transcript captures everything a run did: each step's request, response
// status, validation failures, and timing. Transcripts are built by a
// [Recorder] during the run and persisted through a [Store] so they can be
// inspected after the fact:
//
//	rec := report.NewRecorder()
//	// ... runner feeds the recorder ...
//	transcript := rec.Finish()
//	store.Save(ctx, transcript)
//
// Two store backends are provided: a file store writing one JSON document
// per run, and a MongoDB store for shared environments.
package report

import (
	"context"
	"sync"
	"time"
)

// maxBodyBytes caps how much request/response body is kept in a transcript.
const maxBodyBytes = 4 * 1024

// StepRecord captures one executed step.
type StepRecord struct {
	Key          string        `json:"key" bson:"key"`
	Step         string        `json:"step" bson:"step"`
	Method       string        `json:"method" bson:"method"`
	URL          string        `json:"url" bson:"url"`
	StatusCode   int           `json:"status_code" bson:"status_code"`
	Duration     time.Duration `json:"duration" bson:"duration"`
	Failures     []string      `json:"failures,omitempty" bson:"failures,omitempty"`
	Error        string        `json:"error,omitempty" bson:"error,omitempty"`
	RequestBody  string        `json:"request_body,omitempty" bson:"request_body,omitempty"`
	ResponseBody string        `json:"response_body,omitempty" bson:"response_body,omitempty"`
}

// Passed reports whether the step completed without failures or errors.
func (r StepRecord) Passed() bool {
	return r.Error == "" && len(r.Failures) == 0
}

// Transcript is the full record of one workflow run.
type Transcript struct {
	RunID      string       `json:"run_id" bson:"run_id"`
	Suite      string       `json:"suite" bson:"suite"`
	StartedAt  time.Time    `json:"started_at" bson:"started_at"`
	FinishedAt time.Time    `json:"finished_at" bson:"finished_at"`
	Passed     bool         `json:"passed" bson:"passed"`
	Steps      []StepRecord `json:"steps" bson:"steps"`
}

// Duration returns the total run duration.
func (t *Transcript) Duration() time.Duration {
	return t.FinishedAt.Sub(t.StartedAt)
}

// FailureCount returns the total number of validation failures across steps.
func (t *Transcript) FailureCount() int {
	n := 0
	for _, s := range t.Steps {
		n += len(s.Failures)
	}
	return n
}

// TruncateBody trims a body for inclusion in a transcript.
func TruncateBody(body []byte) string {
	if len(body) > maxBodyBytes {
		return string(body[:maxBodyBytes]) + "... (truncated)"
	}
	return string(body)
}

// Store persists transcripts.
type Store interface {
	// Save writes a transcript, replacing any existing one with the same
	// run ID.
	Save(ctx context.Context, t *Transcript) error

	// Load retrieves a transcript by run ID.
	// Returns a REPORT_NOT_FOUND error when absent.
	Load(ctx context.Context, runID string) (*Transcript, error)

	// List returns up to limit transcripts, newest first.
	List(ctx context.Context, limit int) ([]*Transcript, error)

	// Close releases backend resources.
	Close() error
}

// =============================================================================
// Recorder
// =============================================================================

// Recorder accumulates step records during a run. Safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	transcript *Transcript
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Begin starts a new transcript, discarding any previous one.
func (r *Recorder) Begin(runID, suite string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcript = &Transcript{
		RunID:     runID,
		Suite:     suite,
		StartedAt: time.Now(),
	}
}

// Record appends a step record to the current transcript.
// No-op when Begin has not been called.
func (r *Recorder) Record(rec StepRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transcript == nil {
		return
	}
	r.transcript.Steps = append(r.transcript.Steps, rec)
}

// Finish closes the current transcript and returns it.
// Returns nil when Begin has not been called.
func (r *Recorder) Finish() *Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transcript == nil {
		return nil
	}

	t := r.transcript
	t.FinishedAt = time.Now()
	t.Passed = true
	for _, s := range t.Steps {
		if !s.Passed() {
			t.Passed = false
			break
		}
	}
	r.transcript = nil
	return t
}
