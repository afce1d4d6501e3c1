// Package runner executes workflow step sequences against a server.
//
// The runner binds each step to the run, performs its request, applies its
// validators, and records the whole run as a transcript. A run stops at the
// first step whose request fails or whose validators report failures, since
// later steps depend on the server state earlier steps establish.
//
// # Usage
//
//	r, err := runner.New(c, []step.Step{login, addToCart, checkout}, runner.Config{})
//	transcript, err := r.Run(ctx)
//
// Inside a Go test, failures can be reported straight to the test:
//
//	transcript, _ := r.RunWith(ctx, t)
package runner

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/miki725/subui/pkg/client"
	"github.com/miki725/subui/pkg/errors"
	"github.com/miki725/subui/pkg/observability"
	"github.com/miki725/subui/pkg/report"
	"github.com/miki725/subui/pkg/session"
	"github.com/miki725/subui/pkg/state"
	"github.com/miki725/subui/pkg/step"
	"github.com/miki725/subui/pkg/validator"
)

// Config configures a workflow runner.
type Config struct {
	// Suite names the workflow in transcripts and logs.
	Suite string

	// State seeds the run's shared state context.
	State map[string]any

	// Sessions is the server's session store, shared so session
	// validators can inspect what the server stored. May be nil.
	Sessions session.Store

	// Logger receives run progress. Defaults to a discarding logger.
	Logger *log.Logger

	// Recorder builds the run transcript. Defaults to a fresh recorder.
	Recorder *report.Recorder
}

// Runner executes a sequence of workflow steps.
type Runner struct {
	client   *client.Client
	steps    step.Sequence
	state    *state.Context
	sessions session.Store
	suite    string
	logger   *log.Logger
	recorder *report.Recorder
}

// New creates a runner over an ordered list of steps. Steps are keyed by
// their position: "0", "1", and so on.
func New(c *client.Client, steps []step.Step, cfg Config) (*Runner, error) {
	seq := make(step.Sequence, len(steps))
	for i, s := range steps {
		seq[i] = step.Entry{Key: strconv.Itoa(i), Step: s}
	}
	return NewKeyed(c, seq, cfg)
}

// NewKeyed creates a runner over an explicitly keyed step sequence.
// Keys must be unique and valid.
func NewKeyed(c *client.Client, steps step.Sequence, cfg Config) (*Runner, error) {
	if c == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "client is required")
	}
	if len(steps) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "at least one step is required")
	}

	seen := make(map[string]bool, len(steps))
	for _, e := range steps {
		if err := errors.ValidateStepKey(e.Key); err != nil {
			return nil, err
		}
		if seen[e.Key] {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate step key %q", e.Key)
		}
		seen[e.Key] = true
		if e.Step == nil {
			return nil, errors.New(errors.ErrCodeInvalidStep, "step %q is nil", e.Key)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = report.NewRecorder()
	}

	return &Runner{
		client:   c,
		steps:    steps,
		state:    state.New(cfg.State),
		sessions: cfg.Sessions,
		suite:    cfg.Suite,
		logger:   logger,
		recorder: recorder,
	}, nil
}

// Steps returns the runner's step sequence.
func (r *Runner) Steps() step.Sequence {
	return r.steps
}

// State returns the run's shared state context.
func (r *Runner) State() *state.Context {
	return r.state
}

// Step returns the step with the given key.
func (r *Runner) Step(key string) (step.Step, bool) {
	return r.steps.Get(key)
}

// Run executes all steps in order and returns the run transcript.
//
// The transcript is returned even on failure so callers can inspect what
// happened; the error is a REQUEST_FAILED or VALIDATION_FAILED describing
// why the run stopped.
func (r *Runner) Run(ctx context.Context) (*report.Transcript, error) {
	return r.RunWith(ctx, nil)
}

// RunWith is like Run but additionally reports validation failures to rep
// as they happen. Passing a *testing.T makes failures show up as test
// errors directly.
func (r *Runner) RunWith(ctx context.Context, rep validator.Reporter) (*report.Transcript, error) {
	runID := uuid.NewString()
	started := time.Now()

	r.logger.Info("starting run", "run", runID, "suite", r.suite, "steps", len(r.steps))
	observability.Runner().OnRunStart(ctx, runID, len(r.steps))
	r.recorder.Begin(runID, r.suite)

	var runErr error
	for i, entry := range r.steps {
		if err := ctx.Err(); err != nil {
			runErr = errors.Wrap(errors.ErrCodeTimeout, err, "run cancelled before step %q", entry.Key)
			break
		}
		if r.runStep(ctx, i, entry, rep, &runErr) {
			break
		}
	}

	transcript := r.recorder.Finish()
	passed := runErr == nil
	duration := time.Since(started)

	observability.Runner().OnRunComplete(ctx, runID, passed, duration)
	if passed {
		r.logger.Info("run passed", "run", runID, "duration", duration)
	} else {
		r.logger.Error("run failed", "run", runID, "duration", duration,
			"error", errors.UserMessage(runErr))
	}
	return transcript, runErr
}

// runStep executes one step and returns true when the run must stop.
func (r *Runner) runStep(ctx context.Context, index int, entry step.Entry, rep validator.Reporter, runErr *error) bool {
	key := entry.Key
	s := entry.Step

	s.Init(step.Binding{
		Client:   r.client,
		Steps:    r.steps,
		Index:    index,
		Key:      key,
		State:    r.state,
		Routes:   r.client.Routes(),
		Sessions: r.sessions,
	})

	name := describe(s, key)
	r.logger.Debug("running step", "key", key, "step", name)
	observability.Runner().OnStepStart(ctx, key, name)

	started := time.Now()
	resp, err := s.Request(ctx)
	if err != nil {
		duration := time.Since(started)
		r.recorder.Record(report.StepRecord{
			Key:      key,
			Step:     name,
			Duration: duration,
			Error:    err.Error(),
		})
		observability.Runner().OnStepComplete(ctx, key, 0, 0, duration, err)
		*runErr = err
		return true
	}

	rec := &validator.Recorder{}
	s.Validate(validator.Tee(rec, rep))
	duration := time.Since(started)

	r.recorder.Record(report.StepRecord{
		Key:          key,
		Step:         name,
		Method:       resp.Request.Method,
		URL:          resp.URL,
		StatusCode:   resp.StatusCode,
		Duration:     duration,
		Failures:     rec.Failures,
		RequestBody:  report.TruncateBody(resp.RequestBody),
		ResponseBody: report.TruncateBody(resp.Body),
	})
	observability.Runner().OnStepComplete(ctx, key, resp.StatusCode, len(rec.Failures), duration, nil)

	if len(rec.Failures) > 0 {
		r.logger.Warn("step failed validation", "key", key, "step", name,
			"failures", len(rec.Failures))
		*runErr = errors.New(errors.ErrCodeValidationFailed,
			"step {%s:%s} failed %d validation(s)", key, name, len(rec.Failures))
		return true
	}

	r.logger.Debug("step passed", "key", key, "step", name, "status", resp.StatusCode)
	return false
}

// describe returns a human-readable step name.
func describe(s step.Step, key string) string {
	if d, ok := s.(interface{ Describe() string }); ok {
		if name := d.Describe(); name != "" {
			return name
		}
	}
	return key
}
