package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/steward-action/internal/input"
)

// configCmd prints the resolved configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	Long:  `Resolves the inputs exactly as a run would and prints the result with secrets redacted.`,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := resolve(newLogger(cmd.ErrOrStderr(), false))
	if err != nil {
		return err
	}
	return printConfig(cmd.OutOrStdout(), cfg.Redacted(), outputFormat)
}

func printConfig(w io.Writer, cfg input.Config, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	case "table":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	// Flatten through JSON so the table keys match the json output
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return err
	}
	flat := map[string]string{}
	flatten("", tree, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(w)
	table.Header("Key", "Value")
	for _, k := range keys {
		if err := table.Append([]string{k, flat[k]}); err != nil {
			return err
		}
	}
	return table.Render()
}

func flatten(prefix string, node map[string]interface{}, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]interface{}); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = fmt.Sprint(v)
	}
}
