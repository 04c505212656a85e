// Package coursier installs JVM tools with Coursier and launches Scala
// Steward through it.
package coursier

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/psantana5/steward-action/internal/toolcache"
	"github.com/psantana5/steward-action/internal/wrapper"
	"github.com/psantana5/steward-action/pkg/logging"
)

// DefaultLauncherURL serves the coursier bootstrap launcher
const DefaultLauncherURL = "https://github.com/coursier/launchers/raw/master/coursier"

// LaunchError reports an application that did not exit cleanly
type LaunchError struct {
	App      string
	ExitCode int
	Err      error
}

func (e *LaunchError) Error() string { return fmt.Sprintf("Launching %s failed", e.App) }
func (e *LaunchError) Unwrap() error { return e.Err }

// Runner starts a process and waits for it
type Runner func(ctx context.Context, spec wrapper.Spec) (*wrapper.Result, error)

// Config configures a Coursier
type Config struct {
	LauncherURL string
	// Runner defaults to wrapper.Run
	Runner Runner
	// Environ defaults to os.Environ
	Environ func() []string
}

// Coursier drives the cs binary
type Coursier struct {
	cache       *toolcache.Cache
	launcherURL string
	run         Runner
	environ     func() []string
	logger      *logging.Logger
	cs          string
}

// New creates a Coursier that installs into cache
func New(cfg Config, cache *toolcache.Cache, logger *logging.Logger) *Coursier {
	c := &Coursier{
		cache:       cache,
		launcherURL: cfg.LauncherURL,
		run:         cfg.Runner,
		environ:     cfg.Environ,
		logger:      logger.WithField("component", "coursier"),
		cs:          "cs",
	}
	if c.launcherURL == "" {
		c.launcherURL = DefaultLauncherURL
	}
	if c.run == nil {
		c.run = wrapper.Run
	}
	if c.environ == nil {
		c.environ = os.Environ
	}
	return c
}

// SelfInstall downloads the bootstrap launcher and uses it to install a
// native cs binary into the tools bin directory.
func (c *Coursier) SelfInstall(ctx context.Context) error {
	launcher, err := c.cache.Fetch(ctx, c.launcherURL, "coursier", "launcher", "coursier")
	if err != nil {
		c.logger.Debug(err.Error())
		return &toolcache.InstallError{Tool: "Coursier", Err: err}
	}

	if _, err := c.exec(ctx, launcher, "install", "cs", "--install-dir", c.cache.BinDir()); err != nil {
		return &toolcache.InstallError{Tool: "Coursier", Err: err}
	}
	c.cs = filepath.Join(c.cache.BinDir(), "cs")

	version, err := c.exec(ctx, c.cs, "version")
	if err != nil {
		return &toolcache.InstallError{Tool: "Coursier", Err: err}
	}
	c.logger.Info(fmt.Sprintf("✓ Coursier (%s) installed", version))
	return nil
}

// Install installs app into the tools bin directory
func (c *Coursier) Install(ctx context.Context, app string) error {
	if _, err := c.exec(ctx, c.cs, "install", app, "--install-dir", c.cache.BinDir()); err != nil {
		return &toolcache.InstallError{Tool: app, Err: err}
	}
	c.logger.Info(fmt.Sprintf("✓ %s installed", app))
	return nil
}

// Launch runs app at version with args, streaming its output. env is
// added on top of the inherited environment.
func (c *Coursier) Launch(ctx context.Context, app, version string, args []string, env map[string]string) error {
	launchArgs := append([]string{
		"launch", "--contrib",
		"-r", "sonatype:snapshots",
		app + ":" + version,
		"--",
	}, args...)

	c.logger.Info(fmt.Sprintf("Launching %s %s", app, version))
	result, err := c.run(ctx, wrapper.Spec{
		Command: c.cs,
		Args:    launchArgs,
		Env:     c.childEnv(env),
	})
	if err != nil {
		return &LaunchError{App: app, ExitCode: -1, Err: err}
	}
	if !result.Success() {
		return &LaunchError{App: app, ExitCode: result.ExitCode}
	}

	c.logger.Info(fmt.Sprintf("✓ %s finished", app), map[string]interface{}{
		"duration": result.Duration.String(),
	})
	return nil
}

// exec runs a short cs command and returns its trimmed output
func (c *Coursier) exec(ctx context.Context, command string, args ...string) (string, error) {
	var out bytes.Buffer
	result, err := c.run(ctx, wrapper.Spec{
		Command: command,
		Args:    args,
		Env:     c.childEnv(nil),
		Stdout:  &out,
		Stderr:  &out,
	})
	if err != nil {
		return "", err
	}
	if !result.Success() {
		c.logger.Debug(out.String())
		return "", fmt.Errorf("%s %s exited with code %d", filepath.Base(command), strings.Join(args, " "), result.ExitCode)
	}
	return strings.TrimSpace(out.String()), nil
}

// childEnv is our environment with the tools bin dir first on PATH and
// extra applied last.
func (c *Coursier) childEnv(extra map[string]string) []string {
	vars := make(map[string]string)
	var order []string
	for _, kv := range c.environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, seen := vars[k]; !seen {
			order = append(order, k)
		}
		vars[k] = v
	}

	path := c.cache.BinDir()
	if existing := vars["PATH"]; existing != "" {
		path += string(os.PathListSeparator) + existing
	}
	if _, seen := vars["PATH"]; !seen {
		order = append(order, "PATH")
	}
	vars["PATH"] = path

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, seen := vars[k]; !seen {
			order = append(order, k)
		}
		vars[k] = extra[k]
	}

	env := make([]string, 0, len(order))
	for _, k := range order {
		env = append(env, k+"="+vars[k])
	}
	return env
}
