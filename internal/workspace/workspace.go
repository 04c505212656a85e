// Package workspace prepares the directory Scala Steward works in and
// persists its state between runs as a compressed cache blob.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/psantana5/steward-action/pkg/logging"
)

// Handle identifies a prepared workspace. It is the workspace root path.
type Handle string

// Dir returns the workspace root
func (h Handle) Dir() string { return string(h) }

// WorkspaceDir is the directory Scala Steward keeps its state in
func (h Handle) WorkspaceDir() string { return filepath.Join(string(h), "workspace") }

// ReposFile lists the repositories to update
func (h Handle) ReposFile() string { return filepath.Join(string(h), "repos.md") }

// AskPassFile is the git askpass helper that prints the token
func (h Handle) AskPassFile() string { return filepath.Join(string(h), "askpass.sh") }

// AppKeyFile holds the GitHub App private key
func (h Handle) AppKeyFile() string { return filepath.Join(string(h), "app.pem") }

// Manager creates workspaces and moves their state in and out of the cache
type Manager struct {
	dir      string
	cacheDir string
	keep     int
	now      func() time.Time
	logger   *logging.Logger
}

// Config configures a Manager
type Config struct {
	// Dir is the workspace root
	Dir string
	// CacheDir holds the cache blobs
	CacheDir string
	// Keep is how many blobs per repos hash survive pruning. Defaults to 3.
	Keep int
}

// NewManager creates a workspace manager
func NewManager(cfg Config, logger *logging.Logger) *Manager {
	keep := cfg.Keep
	if keep <= 0 {
		keep = 3
	}
	return &Manager{
		dir:      cfg.Dir,
		cacheDir: cfg.CacheDir,
		keep:     keep,
		now:      time.Now,
		logger:   logger.WithField("component", "workspace"),
	}
}

// Prepare writes repos.md, the askpass helper and, when appKey is set, the
// GitHub App key into the workspace root.
func (m *Manager) Prepare(ctx context.Context, repos, token, appKey string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h := Handle(m.dir)
	if err := os.MkdirAll(h.Dir(), 0o755); err != nil {
		return "", fmt.Errorf("creating workspace %s: %w", h.Dir(), err)
	}

	if err := os.WriteFile(h.ReposFile(), []byte(repos), 0o644); err != nil {
		return "", fmt.Errorf("writing repos file: %w", err)
	}

	if err := writeExecutable(h.AskPassFile(), askPassScript(token)); err != nil {
		return "", fmt.Errorf("writing askpass helper: %w", err)
	}

	if appKey != "" {
		if err := os.WriteFile(h.AppKeyFile(), []byte(appKey), 0o600); err != nil {
			return "", fmt.Errorf("writing GitHub App key: %w", err)
		}
	}

	m.logger.Info("✓ Scala Steward workspace created", map[string]interface{}{"dir": h.Dir()})
	return h, nil
}

func askPassScript(token string) string {
	quoted := strings.ReplaceAll(token, `'`, `'\''`)
	return "#!/bin/sh\n\necho '" + quoted + "'\n"
}

func writeExecutable(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return err
	}
	// WriteFile honours the umask
	return os.Chmod(path, 0o755)
}
