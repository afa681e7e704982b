package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tettuan/breakdown-sub016/internal/strategy"
)

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Check individual paths against the working directory",
}

var pathNormalizeCmd = &cobra.Command{
	Use:   "normalize <path>...",
	Short: "Print the normalized form of each path",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPathOp(func(s strategy.Strategy, p string) (string, error) { return s.Normalize(p) }),
}

var pathValidateCmd = &cobra.Command{
	Use:   "validate <path>...",
	Short: "Check path syntax without a containment check",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPathOp(func(s strategy.Strategy, p string) (string, error) { return s.Validate(p) }),
}

var pathResolveCmd = &cobra.Command{
	Use:   "resolve <path>...",
	Short: "Resolve paths inside the working directory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPathOp(func(s strategy.Strategy, p string) (string, error) { return s.Resolve(p) }),
}

func init() {
	pathCmd.AddCommand(pathNormalizeCmd, pathValidateCmd, pathResolveCmd)
	rootCmd.AddCommand(pathCmd)
}

type pathResult struct {
	Input  string `json:"input"`
	Path   string `json:"path,omitempty"`
	Kind   string `json:"error_kind,omitempty"`
	Error  string `json:"error,omitempty"`
	failed bool
}

var errPathsRejected = errors.New("one or more paths were rejected")

func runPathOp(op func(strategy.Strategy, string) (string, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.log.Sync()

		st, err := workingDirStrategy(s)
		if err != nil {
			return err
		}

		results := applyPaths(st, op, args)
		if err := printPaths(cmd.OutOrStdout(), results); err != nil {
			return err
		}

		for _, r := range results {
			if r.failed {
				return errPathsRejected
			}
		}
		return nil
	}
}

// workingDirStrategy returns the strategy rooted at the configured working
// directory.
func workingDirStrategy(s *session) (strategy.Strategy, error) {
	base, err := s.workingDir()
	if err != nil {
		return nil, err
	}

	st, err := strategy.New(s.platform, base, strategy.WithSpaceMode(s.cfg.Spaces()))
	if err != nil {
		return nil, strategy.Legacy(err)
	}
	return st, nil
}

func applyPaths(st strategy.Strategy, op func(strategy.Strategy, string) (string, error), paths []string) []pathResult {
	results := make([]pathResult, 0, len(paths))
	for _, p := range paths {
		r := pathResult{Input: p}

		out, err := op(st, p)
		if err != nil {
			r.failed = true
			r.Error = err.Error()

			var serr *strategy.Error
			if errors.As(err, &serr) {
				r.Kind = serr.Kind.String()
			}
		} else {
			r.Path = out
		}

		results = append(results, r)
	}
	return results
}

func printPaths(out io.Writer, results []pathResult) error {
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, r := range results {
		if r.failed {
			fmt.Fprintf(out, "%s %s  %s\n", red("✗"), r.Input, r.Error)
			continue
		}
		fmt.Fprintf(out, "%s %s\n", green("✓"), r.Path)
	}

	return nil
}
