package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/steward-action/internal/input"
	"github.com/psantana5/steward-action/pkg/logging"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=..."
var Version = "dev"

// ErrReported means the failure already went to the workflow run
var ErrReported = errors.New("run failed")

var (
	cfgFile      string
	outputFormat string
)

// rootCmd runs the action
var rootCmd = &cobra.Command{
	Use:   "steward-action",
	Short: "Run Scala Steward from a GitHub Actions workflow",
	Long: `steward-action checks Maven Central, installs Coursier, scalafmt, scalafix
and Mill, prepares a Scala Steward workspace from the action inputs and
launches Scala Steward. The workspace is cached between runs.

Inputs are read from INPUT_<NAME> environment variables, as GitHub Actions
provides them, and can be overridden with flags.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
	RunE:              runPipeline,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML file with input values")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table, json or yaml")

	for _, in := range input.Inputs {
		rootCmd.PersistentFlags().String(in.Key, "", in.Description)
		_ = viper.BindPFlag(in.Key, rootCmd.PersistentFlags().Lookup(in.Key))
	}
}

// initConfig reads in config file and ENV variables if set
func initConfig(cmd *cobra.Command, _ []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("finding home directory: %w", err)
	}
	input.Bind(viper.GetViper(), home)

	if cfgFile == "" {
		return nil
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %s: %w", cfgFile, err)
	}
	return nil
}

// newLogger builds the logger from the log inputs. debug forces DEBUG.
func newLogger(w io.Writer, debug bool) *logging.Logger {
	level := logging.ParseLevel(viper.GetString(input.KeyLogLevel))
	if debug {
		level = logging.DEBUG
	}
	logger := logging.NewLogger(level, strings.EqualFold(viper.GetString(input.KeyLogFormat), "json"))
	logger.SetOutput(w)
	return logger
}

// resolve reads the inputs into a Config
func resolve(logger *logging.Logger) (*input.Config, error) {
	return input.Resolve(viper.GetViper(), input.OSFiles{}, logger)
}
