package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tettuan/breakdown-sub016/internal/layer"
	"github.com/tettuan/breakdown-sub016/internal/workspace"
)

var checkFix bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the layer directories of the working directory",
	Long: `Verify that every required layer directory exists under the working
directory. With --fix missing directories are created.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkFix, "fix", false, "create missing layer directories")
	rootCmd.AddCommand(checkCmd)
}

type checkResult struct {
	WorkingDir string            `json:"working_dir"`
	OK         bool              `json:"ok"`
	Layers     map[string]string `json:"layers,omitempty"`
	Layer      string            `json:"failed_layer,omitempty"`
	Problem    string            `json:"problem,omitempty"`
	Hint       string            `json:"hint,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.log.Sync()

	dir, err := s.workingDir()
	if err != nil {
		return err
	}

	b := workspace.NewBuilder(afero.NewOsFs(), workspace.WithLogger(s.log))
	res := checkWorkspace(b, dir, checkFix)

	if err := printCheck(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("workspace check failed: %s", res.Problem)
	}
	return nil
}

func checkWorkspace(b *workspace.Builder, dir string, fix bool) *checkResult {
	res := &checkResult{WorkingDir: dir}

	var (
		st  workspace.Structure
		err error
	)
	if fix {
		st, err = b.Create(dir, layer.Required())
	} else {
		st, err = b.Validate(dir, layer.Required())
	}

	if err != nil {
		res.Problem = err.Error()

		var lerr *workspace.LayerError
		if errors.As(err, &lerr) {
			res.Layer = lerr.Layer.String()
		}

		switch {
		case errors.Is(err, workspace.ErrPermissionDenied):
			res.Hint = "check the permissions of the working directory"
		case errors.Is(err, workspace.ErrLayerMissing):
			res.Hint = "run 'breakdown check --fix' to create missing directories"
		case errors.Is(err, workspace.ErrNotDirectory):
			res.Hint = "move the file out of the way and run 'breakdown check --fix'"
		}
		return res
	}

	res.OK = true
	res.Layers = make(map[string]string, len(st))
	for lt, p := range st {
		res.Layers[lt.String()] = p
	}
	return res
}

func printCheck(out io.Writer, res *checkResult) error {
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if !res.OK {
		fmt.Fprintf(out, "%s %s\n", red("✗"), res.Problem)
		if res.Hint != "" {
			fmt.Fprintf(out, "  %s\n", yellow(res.Hint))
		}
		return nil
	}

	fmt.Fprintf(out, "%s %s\n", green("✓"), res.WorkingDir)
	for _, lt := range layer.Required() {
		fmt.Fprintf(out, "  %s %s\n", green("✓"), res.Layers[lt.String()])
	}
	return nil
}
