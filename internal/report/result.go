package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/psantana5/steward-action/internal/observe"
	"github.com/psantana5/steward-action/pkg/logging"
)

// Status is the outcome of a step
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepRecord is the immutable outcome of one pipeline step
type StepRecord struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Run collects step records for one pipeline execution
type Run struct {
	ID     string
	clock  observe.Clock
	timing *observe.Timing

	mu    sync.Mutex
	steps []StepRecord
}

// NewRun starts a run with a fresh ID
func NewRun() *Run {
	return NewRunWithClock(time.Now)
}

// NewRunWithClock starts a run whose timings come from clock
func NewRunWithClock(clock observe.Clock) *Run {
	return &Run{
		ID:     uuid.NewString(),
		clock:  clock,
		timing: observe.NewTimingWithClock(clock),
	}
}

// Step times fn and records its outcome under name. A panicking fn is
// recorded as failed before the panic continues.
func (r *Run) Step(name string, fn func() error) (err error) {
	t := observe.NewTimingWithClock(r.clock)
	defer func() {
		p := recover()
		t.Complete()

		rec := StepRecord{
			Name:      name,
			Status:    StatusOK,
			StartTime: t.StartedAt,
			EndTime:   t.CompletedAt,
			Duration:  t.Duration(),
		}
		switch {
		case p != nil:
			rec.Status = StatusFailed
			rec.Error = fmt.Sprint(p)
		case err != nil:
			rec.Status = StatusFailed
			rec.Error = err.Error()
		}
		r.append(rec)

		if p != nil {
			panic(p)
		}
	}()
	return fn()
}

// Skip records names as not run
func (r *Run) Skip(names ...string) {
	for _, name := range names {
		r.append(StepRecord{Name: name, Status: StatusSkipped})
	}
}

// SkipPending records as skipped every name that has no record yet
func (r *Run) SkipPending(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(r.steps))
	for _, s := range r.steps {
		seen[s.Name] = true
	}
	for _, name := range names {
		if !seen[name] {
			r.steps = append(r.steps, StepRecord{Name: name, Status: StatusSkipped})
		}
	}
}

func (r *Run) append(rec StepRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, rec)
}

// Finish stamps the end of the run. Later calls are no-ops.
func (r *Run) Finish() {
	r.timing.Complete()
}

// Duration is the run's wall time so far, or in total once finished
func (r *Run) Duration() time.Duration {
	return r.timing.Duration()
}

// Steps returns a copy of the records in execution order
func (r *Run) Steps() []StepRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StepRecord(nil), r.steps...)
}

// Succeeded reports whether no step failed
func (r *Run) Succeeded() bool {
	for _, s := range r.Steps() {
		if s.Status == StatusFailed {
			return false
		}
	}
	return true
}

// LogSummary emits a one-line summary of the run
func (r *Run) LogSummary(logger *logging.Logger) {
	var parts []string
	for _, s := range r.Steps() {
		parts = append(parts, s.Name+"="+string(s.Status))
	}

	outcome := "SUCCESS"
	if !r.Succeeded() {
		outcome = "FAILURE"
	}
	logger.Info(fmt.Sprintf("RUN %s | %s | runtime=%.0fs | %s",
		r.ID, outcome, r.Duration().Seconds(), strings.Join(parts, " ")))
}

// RenderTable writes the step records as a table
func (r *Run) RenderTable(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header("Step", "Status", "Duration", "Error")
	for _, s := range r.Steps() {
		duration := "-"
		if s.Status != StatusSkipped {
			duration = s.Duration.Round(time.Millisecond).String()
		}
		if err := table.Append([]string{s.Name, string(s.Status), duration, s.Error}); err != nil {
			return err
		}
	}
	return table.Render()
}
