package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/tettuan/breakdown-sub016/internal/config"
	"github.com/tettuan/breakdown-sub016/internal/logging"
	"github.com/tettuan/breakdown-sub016/internal/pathvalue"
)

var (
	verbose      bool
	jsonOut      bool
	logLevel     string
	logDev       bool
	platformFlag string
)

var rootCmd = &cobra.Command{
	Use:   "breakdown",
	Short: "Layered workspace paths for breakdown workflows",
	Long: `Breakdown keeps project, issue and task documents in layer directories
under a sandboxed working directory and resolves the input and output paths
of each processing step.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			color.NoColor = true
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logDev, "log-dev", false, "human-readable development logs")
	rootCmd.PersistentFlags().StringVar(&platformFlag, "platform", "", "path platform (posix, windows, auto)")
}

// session is the state every project command starts from.
type session struct {
	root     string
	cfg      *config.Config
	log      *zap.Logger
	platform pathvalue.Platform
}

func openSession() (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		return nil, err
	}

	return newSession(root)
}

func newSession(root string) (*session, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if platformFlag != "" {
		cfg.Platform = platformFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	platform, err := cfg.ResolvePlatform(runtime.GOOS)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	return &session{root: root, cfg: cfg, log: log, platform: platform}, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Development = cfg.Log.Development || logDev

	switch {
	case logLevel != "":
		if _, err := zapcore.ParseLevel(logLevel); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
		lc.Level = logLevel
	case verbose:
		lc.Level = "debug"
	}

	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// workingDir returns the absolute working directory. A relative setting is
// taken relative to the project root.
func (s *session) workingDir() (string, error) {
	if pathvalue.IsAbs(s.cfg.WorkingDir, s.platform) {
		return s.cfg.WorkingDir, nil
	}

	dir, err := safeProjectPath(s.root, s.cfg.WorkingDir, s.platform)
	if err != nil {
		return "", fmt.Errorf("invalid working directory %q: %w", s.cfg.WorkingDir, err)
	}
	return dir, nil
}
