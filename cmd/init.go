package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tettuan/breakdown-sub016/internal/config"
	"github.com/tettuan/breakdown-sub016/internal/db"
	"github.com/tettuan/breakdown-sub016/internal/layer"
	"github.com/tettuan/breakdown-sub016/internal/resolver"
	"github.com/tettuan/breakdown-sub016/internal/workspace"
)

var initWorkingDir string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a breakdown workspace",
	Long: `Creates the breakdown configuration, the layer directories of the working
directory and the prompt and schema directories in the current directory.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initWorkingDir, "working-dir", "", "working directory relative to the project root")
	rootCmd.AddCommand(initCmd)
}

type initResult struct {
	ProjectRoot string            `json:"project_root"`
	WorkingDir  string            `json:"working_dir"`
	Platform    string            `json:"platform"`
	Layers      map[string]string `json:"layers"`
	PromptDir   string            `json:"prompt_dir"`
	SchemaDir   string            `json:"schema_dir"`
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	res, err := initProject(cwd, initWorkingDir)
	if err != nil {
		return err
	}

	return printInit(cmd.OutOrStdout(), res)
}

func initProject(projectRoot, workingDir string) (*initResult, error) {
	configDir := config.DirPath(projectRoot)
	if _, err := os.Stat(configDir); err == nil {
		return nil, fmt.Errorf("workspace already initialized in %s", projectRoot)
	}

	cfg := config.Default()
	if workingDir != "" {
		cfg.WorkingDir = workingDir
	}
	if platformFlag != "" {
		cfg.Platform = platformFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Save(projectRoot); err != nil {
		return nil, err
	}

	s, err := newSession(projectRoot)
	if err != nil {
		return nil, err
	}
	defer s.log.Sync()

	database, err := db.Initialize(projectRoot)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	r, err := resolver.New(s.cfg.WorkingDir, layer.Project, resolver.Options{},
		resolver.WithAnchor(projectRoot),
		resolver.WithPlatform(s.platform),
		resolver.WithLogger(s.log),
	)
	if err != nil {
		return nil, err
	}

	if err := r.ValidateDirectoryStructure(); err != nil {
		if errors.Is(err, workspace.ErrPermissionDenied) {
			return nil, fmt.Errorf("%w\ncheck that you can write to %s", err, r.WorkingDir())
		}
		return nil, err
	}

	res := &initResult{
		ProjectRoot: projectRoot,
		WorkingDir:  r.WorkingDir(),
		Platform:    s.platform.String(),
		Layers:      make(map[string]string),
	}
	for _, lt := range layer.Required() {
		res.Layers[lt.String()] = filepath.Join(r.WorkingDir(), lt.Dir())
	}

	for _, d := range []struct {
		rel string
		dst *string
	}{
		{s.cfg.AppPrompt.BaseDir, &res.PromptDir},
		{s.cfg.AppSchema.BaseDir, &res.SchemaDir},
	} {
		dir, err := safeProjectPath(projectRoot, d.rel, s.platform)
		if err != nil {
			return nil, fmt.Errorf("invalid base directory %q: %w", d.rel, err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		*d.dst = dir
	}

	gitignorePath := filepath.Join(configDir, ".gitignore")
	gitignoreContent := "# breakdown resolution ledger\n" + db.DBFile + "\n"
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644); err != nil {
		return nil, fmt.Errorf("failed to write .gitignore: %w", err)
	}

	if _, err := database.CreateWorkspace(res.WorkingDir, res.Platform); err != nil {
		return nil, err
	}

	return res, nil
}

func printInit(out io.Writer, res *initResult) error {
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(out, "%s Initialized breakdown workspace in %s\n", green("✓"), cyan(res.WorkingDir))
	fmt.Fprintf(out, "\nCreated:\n")
	fmt.Fprintf(out, "  %s/\n", config.Dir)
	for _, lt := range layer.Required() {
		fmt.Fprintf(out, "  %s\n", res.Layers[lt.String()])
	}
	fmt.Fprintf(out, "  %s\n", res.PromptDir)
	fmt.Fprintf(out, "  %s\n", res.SchemaDir)
	fmt.Fprintf(out, "\nNext steps:\n")
	fmt.Fprintf(out, "  1. Put project documents in %s\n", res.Layers[layer.Project.String()])
	fmt.Fprintf(out, "  2. Run %s to get an output path\n", cyan("breakdown resolve task --from <file>"))

	return nil
}
