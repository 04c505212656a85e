package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/steward-action/pkg/logging"
)

// tickingClock advances one second per call
func tickingClock() func() time.Time {
	now := time.Unix(1_700_000_000, 0)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func sampleRun(t *testing.T) *Run {
	t.Helper()
	run := NewRunWithClock(tickingClock())
	require.NoError(t, run.Step("health-check", func() error { return nil }))
	err := run.Step("install", func() error { return errors.New("Unable to install Coursier") })
	require.Error(t, err)
	run.Skip("launch")
	run.Finish()
	return run
}

func TestRunRecordsSteps(t *testing.T) {
	run := sampleRun(t)

	steps := run.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, StatusOK, steps[0].Status)
	assert.Equal(t, time.Second, steps[0].Duration)
	assert.Equal(t, StatusFailed, steps[1].Status)
	assert.Equal(t, "Unable to install Coursier", steps[1].Error)
	assert.Equal(t, StatusSkipped, steps[2].Status)
	assert.False(t, run.Succeeded())
	assert.NotEmpty(t, run.ID)
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleRun(t).RenderTable(&buf))

	out := buf.String()
	for _, want := range []string{"health-check", "install", "launch", "skipped", "Unable to install Coursier"} {
		assert.Contains(t, out, want)
	}
}

func TestLogSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.INFO, false)
	logger.SetOutput(&buf)

	sampleRun(t).LogSummary(logger)
	assert.Contains(t, buf.String(), "FAILURE")
	assert.Contains(t, buf.String(), "install=failed")
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	rec.RecordRun(sampleRun(t))
	rec.RecordLaunchExit(3)

	var buf bytes.Buffer
	require.NoError(t, rec.WriteText(&buf))
	out := buf.String()

	for _, want := range []string{
		`steward_action_steps_total{status="failed",step="install"} 1`,
		`steward_action_steps_total{status="skipped",step="launch"} 1`,
		`steward_action_step_duration_seconds{step="health-check"} 1`,
		"steward_action_run_success 0",
		"steward_action_launch_exit_code 3",
		"# TYPE steward_action_steps_total counter",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, `steward_action_step_duration_seconds{step="launch"}`)
}

func TestWriteFile(t *testing.T) {
	rec := NewRecorder()
	rec.RecordRun(sampleRun(t))

	path := filepath.Join(t.TempDir(), "textfile", "steward.prom")
	require.NoError(t, rec.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `steward_action_steps_total{status="ok",step="health-check"} 1`)
	assert.Contains(t, string(data), "steward_action_run_success 0")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be renamed away")
}

func TestStepRecordsPanicAsFailed(t *testing.T) {
	run := NewRunWithClock(tickingClock())

	assert.PanicsWithValue(t, "boom", func() {
		_ = run.Step("auth-user", func() error { panic("boom") })
	})
	run.SkipPending("auth-user", "launch", "save-cache")

	steps := run.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, StatusFailed, steps[0].Status)
	assert.Equal(t, "boom", steps[0].Error)
	assert.Equal(t, "launch", steps[1].Name)
	assert.Equal(t, StatusSkipped, steps[2].Status)
	assert.False(t, run.Succeeded())
}

func TestRecorderLaunchExitDefaultsToNotStarted(t *testing.T) {
	rec := NewRecorder()
	rec.RecordRun(sampleRun(t))

	var buf bytes.Buffer
	require.NoError(t, rec.WriteText(&buf))
	assert.Contains(t, buf.String(), "steward_action_launch_exit_code -1")
}
