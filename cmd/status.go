package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tettuan/breakdown-sub016/internal/db"
	"github.com/tettuan/breakdown-sub016/internal/layer"
	"github.com/tettuan/breakdown-sub016/internal/workspace"
)

var statusPattern string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace status",
	Long: `Show the working directory, its layer directories and the documents
each layer holds.

Examples:
  breakdown status
  breakdown status --pattern '**/*.json'`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPattern, "pattern", workspace.DefaultPattern, "glob for counted files")
	rootCmd.AddCommand(statusCmd)
}

type layerStatus struct {
	Layer  string   `json:"layer"`
	Path   string   `json:"path"`
	Status string   `json:"status"` // ok, missing, invalid
	Files  []string `json:"files,omitempty"`
}

type statusReport struct {
	ProjectRoot   string        `json:"project_root"`
	WorkingDir    string        `json:"working_dir"`
	Platform      string        `json:"platform"`
	InitializedAt string        `json:"initialized_at,omitempty"`
	Layers        []layerStatus `json:"layers"`
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	report, err := collectStatus(b, dir, statusPattern)
	if err != nil {
		return err
	}
	report.ProjectRoot = s.root
	report.Platform = s.platform.String()

	if _, err := os.Stat(db.Path(s.root)); err == nil {
		database, err := db.Open(s.root)
		if err != nil {
			return err
		}
		defer database.Close()

		ws, err := database.GetWorkspace()
		if err != nil {
			return err
		}
		if ws != nil {
			report.InitializedAt = ws.CreatedAt.Format("2006-01-02 15:04:05")
		}
	}

	return printStatus(cmd.OutOrStdout(), report)
}

// collectStatus checks every known layer on its own so that one missing
// layer does not hide the others.
func collectStatus(b *workspace.Builder, dir, pattern string) (*statusReport, error) {
	report := &statusReport{WorkingDir: dir}

	for _, lt := range layer.All() {
		ls := layerStatus{Layer: lt.String(), Path: filepath.Join(dir, lt.Dir()), Status: "ok"}

		st, err := b.Validate(dir, []layer.Type{lt})
		switch {
		case errors.Is(err, workspace.ErrLayerMissing):
			ls.Status = "missing"
		case err != nil:
			ls.Status = "invalid"
		default:
			files, err := b.ListLayerFiles(st, lt, pattern)
			if err != nil {
				return nil, err
			}
			ls.Files = files
		}

		report.Layers = append(report.Layers, ls)
	}

	return report, nil
}

func printStatus(out io.Writer, report *statusReport) error {
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(out, "Working directory: %s %s\n", cyan(report.WorkingDir), dim("("+report.Platform+")"))
	if report.InitializedAt != "" {
		fmt.Fprintf(out, "Initialized:       %s\n", dim(report.InitializedAt))
	}
	fmt.Fprintln(out)

	for _, ls := range report.Layers {
		var mark string
		switch ls.Status {
		case "ok":
			mark = green("✓")
		case "missing":
			mark = yellow("?")
		default:
			mark = red("✗")
		}

		fmt.Fprintf(out, "  %s %-8s %s", mark, ls.Layer, dim(ls.Path))
		if ls.Status == "ok" {
			fmt.Fprintf(out, "  %d file(s)", len(ls.Files))
		} else {
			fmt.Fprintf(out, "  %s", ls.Status)
		}
		fmt.Fprintln(out)

		if verbose {
			for _, f := range ls.Files {
				rel, err := filepath.Rel(ls.Path, f)
				if err != nil {
					rel = f
				}
				fmt.Fprintf(out, "      %s\n", rel)
			}
		}
	}

	return nil
}
