package wrapper

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		exitCode int
		output   string
	}{
		{"success", "echo hello", 0, "hello"},
		{"failure", "echo oops >&2; exit 3", 3, "oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			result, err := Run(context.Background(), Spec{
				Command: "sh",
				Args:    []string{"-c", tt.script},
				Stdout:  &out,
				Stderr:  &out,
			})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if result.ExitCode != tt.exitCode {
				t.Errorf("ExitCode = %d, expected %d", result.ExitCode, tt.exitCode)
			}
			if result.Success() != (tt.exitCode == 0) {
				t.Errorf("Success() = %v for exit %d", result.Success(), tt.exitCode)
			}
			if !strings.Contains(out.String(), tt.output) {
				t.Errorf("Output %q does not contain %q", out.String(), tt.output)
			}
			if result.PID <= 0 {
				t.Errorf("Expected a PID, got %d", result.PID)
			}
		})
	}
}

func TestRunPassesEnvironment(t *testing.T) {
	var out bytes.Buffer
	_, err := Run(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "echo $LOG_LEVEL"},
		Env:     []string{"LOG_LEVEL=TRACE"},
		Stdout:  &out,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.TrimSpace(out.String()) != "TRACE" {
		t.Errorf("Expected TRACE, got %q", out.String())
	}
}

func TestRunMissingBinary(t *testing.T) {
	_, err := Run(context.Background(), Spec{Command: "/nonexistent/steward-binary"})
	if err == nil {
		t.Fatal("Expected start error")
	}
	if !strings.Contains(err.Error(), "failed to start") {
		t.Errorf("Unexpected error %v", err)
	}
}

func TestRunCancelledContextStopsProcessGroup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := Run(ctx, Spec{Command: "sh", Args: []string{"-c", "sleep 30"}})
	if time.Since(start) > 5*time.Second {
		t.Fatalf("Cancelled process kept running for %v", time.Since(start))
	}
	if err == nil && result.Success() {
		t.Error("Expected cancelled process to fail")
	}
}
