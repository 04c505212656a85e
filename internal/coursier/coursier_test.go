package coursier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/steward-action/internal/toolcache"
	"github.com/psantana5/steward-action/internal/wrapper"
	"github.com/psantana5/steward-action/pkg/logging"
)

type fakeRunner struct {
	specs []wrapper.Spec
	exit  map[string]int
}

func (f *fakeRunner) run(_ context.Context, spec wrapper.Spec) (*wrapper.Result, error) {
	f.specs = append(f.specs, spec)
	if spec.Stdout != nil {
		io.WriteString(spec.Stdout, "2.1.10\n")
	}
	key := filepath.Base(spec.Command)
	if len(spec.Args) > 0 {
		key += " " + spec.Args[0]
	}
	return &wrapper.Result{PID: 1, ExitCode: f.exit[key]}, nil
}

func newTestCoursier(t *testing.T, runner *fakeRunner) (*Coursier, *toolcache.Cache) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#!/bin/sh\n")
	}))
	t.Cleanup(srv.Close)

	cache := toolcache.New(t.TempDir(), srv.Client())
	c := New(Config{
		LauncherURL: srv.URL + "/coursier",
		Runner:      runner.run,
		Environ:     func() []string { return []string{"HOME=/home/runner", "PATH=/usr/bin"} },
	}, cache, logging.Discard())
	return c, cache
}

func TestSelfInstallThenInstall(t *testing.T) {
	runner := &fakeRunner{}
	c, cache := newTestCoursier(t, runner)
	ctx := context.Background()

	require.NoError(t, c.SelfInstall(ctx))
	require.NoError(t, c.Install(ctx, "scalafmt"))

	require.Len(t, runner.specs, 3)
	assert.Equal(t, []string{"install", "cs", "--install-dir", cache.BinDir()}, runner.specs[0].Args)
	assert.Equal(t, []string{"version"}, runner.specs[1].Args)
	assert.Equal(t, filepath.Join(cache.BinDir(), "cs"), runner.specs[2].Command)
	assert.Equal(t, []string{"install", "scalafmt", "--install-dir", cache.BinDir()}, runner.specs[2].Args)
}

func TestInstallFailure(t *testing.T) {
	runner := &fakeRunner{exit: map[string]int{"cs install": 1}}
	c, _ := newTestCoursier(t, runner)

	err := c.Install(context.Background(), "scalafix")
	require.Error(t, err)
	assert.Equal(t, "Unable to install scalafix", err.Error())

	var installErr *toolcache.InstallError
	assert.True(t, errors.As(err, &installErr))
	assert.Equal(t, "scalafix", installErr.Tool)
}

func TestSelfInstallDownloadFailure(t *testing.T) {
	cache := toolcache.New(t.TempDir(), nil)
	c := New(Config{LauncherURL: "http://127.0.0.1:1/coursier", Runner: (&fakeRunner{}).run}, cache, logging.Discard())

	err := c.SelfInstall(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Unable to install Coursier", err.Error())
}

func TestLaunchBuildsCommandAndEnvironment(t *testing.T) {
	runner := &fakeRunner{}
	c, cache := newTestCoursier(t, runner)

	err := c.Launch(context.Background(), "scala-steward", "0.30.2",
		[]string{"--workspace", "/ws", "--do-not-fork"},
		map[string]string{"LOG_LEVEL": "TRACE", "ROOT_LOG_LEVEL": "TRACE"})
	require.NoError(t, err)

	require.Len(t, runner.specs, 1)
	spec := runner.specs[0]
	assert.Equal(t, "cs", spec.Command)
	assert.Equal(t, []string{
		"launch", "--contrib", "-r", "sonatype:snapshots", "scala-steward:0.30.2", "--",
		"--workspace", "/ws", "--do-not-fork",
	}, spec.Args)
	assert.Equal(t, []string{
		"HOME=/home/runner",
		"PATH=" + cache.BinDir() + ":/usr/bin",
		"LOG_LEVEL=TRACE",
		"ROOT_LOG_LEVEL=TRACE",
	}, spec.Env)
}

func TestLaunchFailure(t *testing.T) {
	runner := &fakeRunner{exit: map[string]int{"cs launch": 2}}
	c, _ := newTestCoursier(t, runner)

	err := c.Launch(context.Background(), "scala-steward", "0.30.2", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "Launching scala-steward failed", err.Error())

	var launchErr *LaunchError
	require.True(t, errors.As(err, &launchErr))
	assert.Equal(t, 2, launchErr.ExitCode)
}

func TestChildEnvWithoutPath(t *testing.T) {
	c := New(Config{Environ: func() []string { return []string{"A=1", "BROKEN"} }},
		toolcache.New("/tools", nil), logging.Discard())

	env := c.childEnv(map[string]string{"A": "2"})
	assert.Equal(t, []string{"A=2", "PATH=/tools/bin"}, env)
	assert.False(t, strings.Contains(strings.Join(env, " "), "BROKEN"))
}
