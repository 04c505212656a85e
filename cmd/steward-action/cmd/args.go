package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/steward-action/internal/args"
	"github.com/psantana5/steward-action/internal/github"
	"github.com/psantana5/steward-action/internal/input"
	"github.com/psantana5/steward-action/internal/pipeline"
	"github.com/psantana5/steward-action/internal/workspace"
)

// argsCmd prints the Scala Steward command line without running anything
var argsCmd = &cobra.Command{
	Use:   "args",
	Short: "Print the Scala Steward command line the inputs produce",
	Long: `Resolves the inputs and prints the arguments Scala Steward would be launched
with. Nothing is installed or written and GitHub is not contacted, so the
commit author falls back to <login>, <name> and <email> placeholders.
Use --output text for a single shell line.`,
	RunE: runArgs,
}

func init() {
	rootCmd.AddCommand(argsCmd)
}

func runArgs(cmd *cobra.Command, _ []string) error {
	cfg, err := resolve(newLogger(cmd.ErrOrStderr(), false))
	if err != nil {
		return err
	}
	return printArgs(cmd.OutOrStdout(), cfg, outputFormat)
}

func printArgs(w io.Writer, cfg *input.Config, format string) error {
	placeholder := github.NewUser(0, "<login>", "<name>", "<email>")
	tokens := args.Steward(cfg, workspace.Handle(cfg.Runner.WorkspaceDir), placeholder)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tokens)
	case "yaml":
		return yaml.NewEncoder(w).Encode(tokens)
	case "text":
		fmt.Fprintf(w, "cs launch --contrib -r sonatype:snapshots %s:%s -- %s\n",
			pipeline.App, cfg.Steward.Version, strings.Join(tokens, " "))
		return nil
	case "table":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Option", "Value")
	for _, pair := range pairs(tokens) {
		if err := table.Append(pair); err != nil {
			return err
		}
	}
	return table.Render()
}

// pairs groups an option with its value. Flags get an empty value.
func pairs(tokens []string) [][]string {
	var out [][]string
	for i := 0; i < len(tokens); i++ {
		row := []string{tokens[i], ""}
		if strings.HasPrefix(tokens[i], "--") && i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "--") {
			row[1] = tokens[i+1]
			i++
		}
		out = append(out, row)
	}
	return out
}
