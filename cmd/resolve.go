package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tettuan/breakdown-sub016/internal/db"
	"github.com/tettuan/breakdown-sub016/internal/layer"
	"github.com/tettuan/breakdown-sub016/internal/resolver"
)

var (
	resolveFrom        string
	resolveFromLayer   string
	resolveDestination string
	resolveNoRecord    bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <layer>",
	Short: "Resolve the input and output paths of a processing step",
	Long: `Resolve the input and output file paths for a layer.

Without --destination a new output name (YYYYMMDD_xxxxxxx.md) is generated
in the layer directory. Generated output paths are recorded so they are not
handed out twice.

Examples:
  breakdown resolve task
  breakdown resolve task --from issue.md --from-layer issue
  breakdown resolve issue --destination report
  breakdown resolve issue --destination report.md`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveFrom, "from", "f", "", "source file")
	resolveCmd.Flags().StringVar(&resolveFromLayer, "from-layer", "", "layer of the source file")
	resolveCmd.Flags().StringVarP(&resolveDestination, "destination", "o", "", "destination file or directory")
	resolveCmd.Flags().BoolVar(&resolveNoRecord, "no-record", false, "do not record the result in the ledger")
	rootCmd.AddCommand(resolveCmd)
}

type resolveResult struct {
	Layer  string `json:"layer"`
	Input  string `json:"input,omitempty"`
	Output string `json:"output"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.log.Sync()

	opts := resolver.Options{FromFile: resolveFrom, DestinationFile: resolveDestination}
	if resolveFromLayer != "" {
		lt, err := layer.Parse(resolveFromLayer)
		if err != nil {
			return err
		}
		opts.FromLayerType = lt
	}

	res, err := resolvePaths(s, args[0], opts, !resolveNoRecord)
	if err != nil {
		return err
	}

	return printResolve(cmd.OutOrStdout(), res)
}

func resolvePaths(s *session, layerName string, opts resolver.Options, record bool) (*resolveResult, error) {
	lt, err := layer.Parse(layerName)
	if err != nil {
		return nil, err
	}

	options := []resolver.Option{
		resolver.WithAnchor(s.root),
		resolver.WithPlatform(s.platform),
		resolver.WithLogger(s.log),
		resolver.WithSpaceMode(s.cfg.Spaces()),
	}

	var database *db.DB
	if record {
		database, err = db.Initialize(s.root)
		if err != nil {
			return nil, err
		}
		defer database.Close()
		options = append(options, resolver.WithReservations(database))
	}

	r, err := resolver.New(s.cfg.WorkingDir, lt, opts, options...)
	if err != nil {
		return nil, err
	}

	input, err := r.InputPath()
	if err != nil {
		return nil, err
	}
	output, err := r.OutputPath()
	if err != nil {
		return nil, err
	}

	if database != nil {
		if input != "" {
			if _, err := database.RecordResolution(db.KindInput, lt.String(), input); err != nil {
				return nil, err
			}
		}
		if _, err := database.RecordResolution(db.KindOutput, lt.String(), output); err != nil {
			return nil, err
		}
	}

	return &resolveResult{Layer: lt.String(), Input: input, Output: output}, nil
}

func printResolve(out io.Writer, res *resolveResult) error {
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	dim := color.New(color.Faint).SprintFunc()

	if res.Input != "" {
		fmt.Fprintf(out, "%s  %s\n", dim("input: "), res.Input)
	}
	fmt.Fprintf(out, "%s  %s\n", dim("output:"), res.Output)

	return nil
}
