// Package actions is the runner's view of the GitHub Actions host: workflow
// commands for failures, debug notes, log groups and secret masking.
package actions

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/sethvargo/go-githubactions"
)

// FailureGlyph prefixes every reported failure
const FailureGlyph = " ✕ "

// Host reports to the workflow run
type Host struct {
	action *githubactions.Action
	getenv func(string) string
	failed atomic.Bool
}

// Option configures a Host
type Option func(*hostOptions)

type hostOptions struct {
	w      io.Writer
	getenv func(string) string
}

// WithWriter sends workflow commands to w instead of stdout
func WithWriter(w io.Writer) Option {
	return func(o *hostOptions) { o.w = w }
}

// WithGetenv replaces environment lookup, e.g. for RUNNER_DEBUG
func WithGetenv(getenv func(string) string) Option {
	return func(o *hostOptions) { o.getenv = getenv }
}

// New creates a host bound to the current workflow run
func New(opts ...Option) *Host {
	o := hostOptions{w: os.Stdout, getenv: os.Getenv}
	for _, opt := range opts {
		opt(&o)
	}
	return &Host{
		action: githubactions.New(
			githubactions.WithWriter(o.w),
			githubactions.WithGetenv(o.getenv),
		),
		getenv: o.getenv,
	}
}

// SetFailed reports msg as the run's failure
func (h *Host) SetFailed(msg string) {
	h.failed.Store(true)
	h.action.Errorf("%s", msg)
}

// Failed reports whether SetFailed was called
func (h *Host) Failed() bool {
	return h.failed.Load()
}

// Debugf writes a debug note, shown only when step debugging is enabled
func (h *Host) Debugf(format string, args ...any) {
	h.action.Debugf(format, args...)
}

// Warningf writes a warning annotation
func (h *Host) Warningf(format string, args ...any) {
	h.action.Warningf(format, args...)
}

// Group starts a collapsible log group
func (h *Host) Group(title string) {
	h.action.Group(title)
}

// EndGroup closes the current log group
func (h *Host) EndGroup() {
	h.action.EndGroup()
}

// AddMask hides secret from all further log output. Multi-line secrets
// such as PEM keys are masked line by line.
func (h *Host) AddMask(secret string) {
	for _, line := range strings.Split(secret, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			h.action.AddMask(line)
		}
	}
}

// IsDebug reports whether the workflow runs with step debugging enabled
func (h *Host) IsDebug() bool {
	return h.getenv("RUNNER_DEBUG") != ""
}
