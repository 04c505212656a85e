// Package pipeline runs the action: pre-flight checks, tool installs,
// identity lookup, workspace setup, then Scala Steward itself with the
// workspace persisted afterwards on every outcome.
package pipeline

import (
	"context"
	"errors"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/psantana5/steward-action/internal/args"
	"github.com/psantana5/steward-action/internal/coursier"
	"github.com/psantana5/steward-action/internal/github"
	"github.com/psantana5/steward-action/internal/healthcheck"
	"github.com/psantana5/steward-action/internal/input"
	"github.com/psantana5/steward-action/internal/report"
	"github.com/psantana5/steward-action/internal/workspace"
	"github.com/psantana5/steward-action/pkg/logging"
	"github.com/psantana5/steward-action/pkg/tracing"
)

// App is the application launched through Coursier
const App = "scala-steward"

// Step names, in execution order
const (
	StepHealthCheck      = "health-check"
	StepInstallCoursier  = "install-coursier"
	StepInstallScalafmt  = "install-scalafmt"
	StepInstallScalafix  = "install-scalafix"
	StepInstallMill      = "install-mill"
	StepAuthUser         = "auth-user"
	StepPrepareWorkspace = "prepare-workspace"
	StepRestoreCache     = "restore-cache"
	StepDiagnosticMode   = "diagnostic-mode"
	StepBuildCommand     = "build-command"
	StepLaunch           = "launch"
	StepSaveCache        = "save-cache"
)

var stepOrder = []string{
	StepHealthCheck, StepInstallCoursier, StepInstallScalafmt, StepInstallScalafix,
	StepInstallMill, StepAuthUser, StepPrepareWorkspace, StepRestoreCache,
	StepDiagnosticMode, StepBuildCommand, StepLaunch, StepSaveCache,
}

// HealthChecker runs pre-flight probes
type HealthChecker interface {
	MavenCentral(ctx context.Context) error
	HostCapacity() healthcheck.HealthStatus
}

// Installer installs tools and launches applications
type Installer interface {
	SelfInstall(ctx context.Context) error
	Install(ctx context.Context, app string) error
	Launch(ctx context.Context, app, version string, args []string, env map[string]string) error
}

// BuildTool installs an extra build tool
type BuildTool interface {
	Install(ctx context.Context) error
}

// Identity resolves the user behind a token
type Identity interface {
	GetAuthUser(ctx context.Context, token string) (*github.User, error)
}

// Workspace prepares and persists Scala Steward's working directory
type Workspace interface {
	Prepare(ctx context.Context, repos, token, appKey string) (workspace.Handle, error)
	RestoreCache(ctx context.Context, h workspace.Handle) error
	SaveCache(ctx context.Context, h workspace.Handle) error
}

// Host is the failure sink and debug channel of the invoking runner
type Host interface {
	SetFailed(msg string)
	Debugf(format string, args ...any)
	Warningf(format string, args ...any)
	Group(title string)
	EndGroup()
	AddMask(secret string)
	IsDebug() bool
}

// Deps are the orchestrator's collaborators. Tracer, Recorder and
// SummaryOut are optional.
type Deps struct {
	Health    HealthChecker
	Installer Installer
	BuildTool BuildTool
	Identity  Identity
	Workspace Workspace
	Host      Host
	Logger    *logging.Logger

	Tracer      trace.Tracer
	Run         *report.Run
	Recorder    *report.Recorder
	MetricsFile string
	SummaryOut  io.Writer
}

// Orchestrator runs the pipeline once
type Orchestrator struct {
	health    HealthChecker
	installer Installer
	buildTool BuildTool
	identity  Identity
	workspace Workspace
	host      Host
	logger    *logging.Logger

	tracer      trace.Tracer
	run         *report.Run
	recorder    *report.Recorder
	metricsFile string
	summaryOut  io.Writer
}

// New creates an orchestrator
func New(deps Deps) *Orchestrator {
	o := &Orchestrator{
		health:      deps.Health,
		installer:   deps.Installer,
		buildTool:   deps.BuildTool,
		identity:    deps.Identity,
		workspace:   deps.Workspace,
		host:        deps.Host,
		logger:      deps.Logger,
		tracer:      deps.Tracer,
		run:         deps.Run,
		recorder:    deps.Recorder,
		metricsFile: deps.MetricsFile,
		summaryOut:  deps.SummaryOut,
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	if o.tracer == nil {
		o.tracer = noop.NewTracerProvider().Tracer("steward-action")
	}
	if o.run == nil {
		o.run = report.NewRun()
	}
	if o.summaryOut == nil {
		o.summaryOut = os.Stdout
	}
	o.logger = o.logger.WithField("run_id", o.run.ID)
	return o
}

// Run returns the step records of this orchestrator's run
func (o *Orchestrator) Run() *report.Run {
	return o.run
}

// Execute runs the pipeline and reports a failure, if any, exactly once
// through the host. The returned error is the reported one.
func (o *Orchestrator) Execute(ctx context.Context, cfg *input.Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(err, NewStepError(UnclassifiedFailure, "pipeline", &panicError{value: r}))
			o.run.SkipPending(stepOrder...)
		}
		o.finish()
		if err != nil {
			Report(o.host, err)
		}
	}()

	return o.execute(ctx, cfg)
}

// Report sends err to the host's failure sink
func Report(host Host, err error) {
	host.SetFailed(Message(err))
}

type step struct {
	name string
	kind Kind
	fn   func(ctx context.Context) error
}

func (o *Orchestrator) execute(ctx context.Context, cfg *input.Config) error {
	o.host.AddMask(cfg.GitHub.Token)
	if cfg.GitHub.App != nil {
		o.host.AddMask(cfg.GitHub.App.Key)
	}

	var (
		user    *github.User
		handle  workspace.Handle
		env     map[string]string
		cmdline []string
	)

	steps := []step{
		{StepHealthCheck, PreconditionFailure, func(ctx context.Context) error {
			if err := o.health.MavenCentral(ctx); err != nil {
				return err
			}
			if o.health.HostCapacity() != healthcheck.HealthStatusHealthy {
				o.host.Warningf("This runner is low on resources, Scala Steward may run slowly or out of memory")
			}
			return nil
		}},
		{StepInstallCoursier, InstallFailure, o.installer.SelfInstall},
		{StepInstallScalafmt, InstallFailure, func(ctx context.Context) error {
			return o.installer.Install(ctx, "scalafmt")
		}},
		{StepInstallScalafix, InstallFailure, func(ctx context.Context) error {
			return o.installer.Install(ctx, "scalafix")
		}},
		{StepInstallMill, InstallFailure, o.buildTool.Install},
		{StepAuthUser, IdentityFailure, func(ctx context.Context) (err error) {
			user, err = o.identity.GetAuthUser(ctx, cfg.GitHub.Token)
			return err
		}},
		{StepPrepareWorkspace, WorkspacePrepareFailure, func(ctx context.Context) (err error) {
			var appKey string
			if cfg.GitHub.App != nil {
				appKey = cfg.GitHub.App.Key
			}
			handle, err = o.workspace.Prepare(ctx, cfg.Steward.Repos, cfg.GitHub.Token, appKey)
			return err
		}},
		{StepRestoreCache, WorkspaceCacheFailure, func(ctx context.Context) error {
			return o.workspace.RestoreCache(ctx, handle)
		}},
		{StepDiagnosticMode, UnclassifiedFailure, func(context.Context) error {
			env = o.diagnosticEnv()
			return nil
		}},
		{StepBuildCommand, UnclassifiedFailure, func(context.Context) error {
			cmdline = args.Steward(cfg, handle, user)
			return nil
		}},
	}

	for i, s := range steps {
		if err := o.step(ctx, s); err != nil {
			o.skipFrom(steps[i+1:])
			return err
		}
	}

	return o.launch(ctx, cfg.Steward.Version, handle, cmdline, env)
}

// launch runs Scala Steward and then persists the workspace, whatever the
// launch outcome, including cancellation. A save failure is joined to the
// launch failure.
func (o *Orchestrator) launch(ctx context.Context, version string, h workspace.Handle, cmdline []string, env map[string]string) (err error) {
	defer func() {
		saveErr := o.step(context.WithoutCancel(ctx), step{StepSaveCache, WorkspaceCacheFailure, func(ctx context.Context) error {
			return o.workspace.SaveCache(ctx, h)
		}})
		err = errors.Join(err, saveErr)
	}()

	return o.step(ctx, step{StepLaunch, LaunchFailure, func(ctx context.Context) error {
		err := o.installer.Launch(ctx, App, version, cmdline, env)
		o.recordExit(err)
		return err
	}})
}

// step runs one step inside a span and a log group and records it
func (o *Orchestrator) step(ctx context.Context, s step) error {
	ctx, span := o.tracer.Start(ctx, s.name, trace.WithAttributes(attribute.String("steward.step", s.name)))
	defer span.End()

	o.host.Group(s.name)
	defer o.host.EndGroup()

	o.logger.Debug("Step started", map[string]interface{}{"step": s.name})
	err := o.run.Step(s.name, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &panicError{value: r}
			}
		}()
		return s.fn(ctx)
	})
	if err == nil {
		return nil
	}

	kind := s.kind
	var p *panicError
	if errors.As(err, &p) {
		kind = UnclassifiedFailure
	}
	stepErr := NewStepError(kind, s.name, err)
	tracing.SetError(span, stepErr)
	span.SetAttributes(attribute.String("steward.failure", kind.String()))
	o.logger.Debug("Step failed", map[string]interface{}{
		"step":  s.name,
		"kind":  kind.String(),
		"error": err.Error(),
	})
	return stepErr
}

// skipFrom records the steps that will not run after a failure, including
// the launch and its cache save
func (o *Orchestrator) skipFrom(rest []step) {
	names := make([]string, 0, len(rest)+2)
	for _, s := range rest {
		names = append(names, s.name)
	}
	o.run.Skip(append(names, StepLaunch, StepSaveCache)...)
}

// diagnosticEnv returns the variables that make Scala Steward log at its
// most verbose level when the runner has step debugging on
func (o *Orchestrator) diagnosticEnv() map[string]string {
	if !o.host.IsDebug() {
		return nil
	}
	o.host.Debugf("Debug mode activated for Scala Steward")
	return map[string]string{
		"LOG_LEVEL":      "TRACE",
		"ROOT_LOG_LEVEL": "TRACE",
	}
}

func (o *Orchestrator) recordExit(err error) {
	if o.recorder == nil {
		return
	}
	code := 0
	var launchErr *coursier.LaunchError
	switch {
	case errors.As(err, &launchErr):
		code = launchErr.ExitCode
	case err != nil:
		code = -1
	}
	o.recorder.RecordLaunchExit(code)
}

// finish logs the run summary and writes metrics. Neither can fail the run.
func (o *Orchestrator) finish() {
	o.run.Finish()
	o.run.LogSummary(o.logger)

	o.host.Group("Summary")
	if err := o.run.RenderTable(o.summaryOut); err != nil {
		o.logger.Warn("Rendering run summary failed", map[string]interface{}{"error": err.Error()})
	}
	o.host.EndGroup()

	if o.recorder == nil {
		return
	}
	o.recorder.RecordRun(o.run)
	if o.metricsFile == "" {
		return
	}
	if err := o.recorder.WriteFile(o.metricsFile); err != nil {
		o.logger.Warn("Writing metrics file failed", map[string]interface{}{
			"path":  o.metricsFile,
			"error": err.Error(),
		})
		return
	}
	o.logger.Debug("Metrics written", map[string]interface{}{"path": o.metricsFile})
}
