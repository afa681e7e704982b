package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tettuan/breakdown-sub016/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage workspace configuration",
	Long: `View and modify the breakdown configuration (` + config.Dir + `/` + config.FileYAML + `).

BREAKDOWN_* environment variables override file values when set.

Examples:
  breakdown config                         # List all config
  breakdown config working_dir             # Get specific value
  breakdown config platform windows
  breakdown config space_mode decoded`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	projectRoot, err := config.FindProjectRoot(cwd)
	if err != nil {
		return err
	}

	return configure(cmd.OutOrStdout(), projectRoot, args)
}

func configure(out io.Writer, projectRoot string, args []string) error {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return err
	}

	switch len(args) {
	case 0:
		return listConfig(out, cfg)
	case 1:
		value, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, value)
		return nil
	default:
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(projectRoot); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(out, "%s Set %s = %s\n", green("✓"), args[0], args[1])
		return nil
	}
}

func listConfig(out io.Writer, cfg *config.Config) error {
	if jsonOut {
		values := make(map[string]string, len(config.Keys()))
		for _, k := range config.Keys() {
			v, err := cfg.Get(k)
			if err != nil {
				return err
			}
			values[k] = v
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	}

	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(out, "%s\n", cyan("Workspace Configuration"))
	for _, k := range config.Keys() {
		v, err := cfg.Get(k)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %-20s %s\n", k+":", v)
	}
	return nil
}
