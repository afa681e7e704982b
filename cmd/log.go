package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tettuan/breakdown-sub016/internal/db"
	"github.com/tettuan/breakdown-sub016/internal/layer"
)

var (
	historyLimit int
	historyLayer string
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"log"},
	Short:   "Show resolved paths",
	Long:    `Display the input and output paths handed out by 'breakdown resolve', newest first.`,
	Args:    cobra.NoArgs,
	RunE:    runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of entries to show")
	historyCmd.Flags().StringVarP(&historyLayer, "layer", "l", "", "filter by layer")
	rootCmd.AddCommand(historyCmd)
}

type historyEntry struct {
	Kind      string `json:"kind"`
	Layer     string `json:"layer"`
	Path      string `json:"path"`
	CreatedAt string `json:"created_at"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.log.Sync()

	database, err := db.Initialize(s.root)
	if err != nil {
		return err
	}
	defer database.Close()

	return showHistory(cmd.OutOrStdout(), database, historyLimit, historyLayer)
}

func showHistory(out io.Writer, database *db.DB, limit int, layerName string) error {
	if layerName != "" {
		lt, err := layer.Parse(layerName)
		if err != nil {
			return err
		}
		layerName = lt.String()
	}

	results, err := database.ListResolutions(limit, layerName)
	if err != nil {
		return err
	}

	if jsonOut {
		entries := make([]historyEntry, 0, len(results))
		for _, r := range results {
			entries = append(entries, historyEntry{
				Kind:      r.Kind,
				Layer:     r.Layer,
				Path:      r.Path,
				CreatedAt: r.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No resolutions yet.")
		return nil
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for _, r := range results {
		fmt.Fprintf(out, "%s %-6s %s\n", cyan(r.Layer), yellow(r.Kind), r.Path)
		fmt.Fprintf(out, "    %s\n", dim(r.CreatedAt.Format("2006-01-02 15:04:05")))
	}

	return nil
}
