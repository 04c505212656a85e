package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/steward-action/internal/actions"
	"github.com/psantana5/steward-action/internal/coursier"
	"github.com/psantana5/steward-action/internal/github"
	"github.com/psantana5/steward-action/internal/healthcheck"
	"github.com/psantana5/steward-action/internal/input"
	"github.com/psantana5/steward-action/internal/mill"
	"github.com/psantana5/steward-action/internal/pipeline"
	"github.com/psantana5/steward-action/internal/report"
	"github.com/psantana5/steward-action/internal/toolcache"
	"github.com/psantana5/steward-action/internal/workspace"
	"github.com/psantana5/steward-action/pkg/logging"
	"github.com/psantana5/steward-action/pkg/tracing"
)

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host := actions.New()
	logger := newLogger(os.Stdout, host.IsDebug())

	cfg, err := resolveInputs(viper.GetViper(), host, logger)
	if err != nil {
		return err
	}

	run := report.NewRun()
	logger = logger.WithField("run_id", run.ID)

	provider, err := tracing.New(ctx, tracing.Config{
		ServiceName:    "steward-action",
		ServiceVersion: Version,
		RunID:          run.ID,
		OTLPEndpoint:   cfg.Runner.OTLPEndpoint,
		Insecure:       true,
	})
	if err != nil {
		pipeline.Report(host, pipeline.NewStepError(pipeline.InputFailure, "tracing", err))
		return ErrReported
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Flushing traces failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	tools := toolcache.New(cfg.Runner.ToolsDir, &http.Client{Timeout: 5 * time.Minute})

	orch := pipeline.New(pipeline.Deps{
		Health:    healthcheck.New(cfg.Runner.MavenCentralURL, logger),
		Installer: coursier.New(coursier.Config{}, tools, logger),
		BuildTool: mill.New(tools, cfg.Runner.MillVersion, "", logger),
		Identity:  github.NewClient(cfg.GitHub.APIURL, &http.Client{Timeout: 30 * time.Second}, logger),
		Workspace: workspace.NewManager(workspace.Config{
			Dir:      cfg.Runner.WorkspaceDir,
			CacheDir: cfg.Runner.CacheDir,
		}, logger),
		Host:        host,
		Logger:      logger,
		Tracer:      provider.Tracer(),
		Run:         run,
		Recorder:    report.NewRecorder(),
		MetricsFile: cfg.Runner.MetricsFile,
		SummaryOut:  os.Stdout,
	})

	if err := orch.Execute(ctx, cfg); err != nil {
		return ErrReported
	}
	return nil
}

// resolveInputs reads the action inputs from v. A bad input is reported
// once through host and turned into ErrReported.
func resolveInputs(v *viper.Viper, host pipeline.Host, logger *logging.Logger) (*input.Config, error) {
	cfg, err := input.Resolve(v, input.OSFiles{}, logger)
	if err != nil {
		pipeline.Report(host, pipeline.NewStepError(pipeline.InputFailure, "resolve-inputs", err))
		return nil, ErrReported
	}
	return cfg, nil
}
