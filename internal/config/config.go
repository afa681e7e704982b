// Package config loads the project configuration. A *Config is built once
// by the command layer and passed to whatever needs it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
	"github.com/tidwall/gjson"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/tettuan/breakdown-sub016/internal/pathvalue"
	"github.com/tettuan/breakdown-sub016/internal/strategy"
)

const (
	// Dir is the configuration directory relative to the project root.
	Dir       = ".agent/breakdown/config"
	FileYAML  = "app.yml"
	FileJSON  = "app.json"
	EnvPrefix = "BREAKDOWN"

	PlatformAuto = "auto"

	DefaultWorkingDir = ".agent/breakdown"
)

var ErrNotFound = errors.New("not a breakdown project (or any parent): " + Dir + " not found")

type Config struct {
	WorkingDir string        `yaml:"working_dir"`
	Platform   string        `yaml:"platform"`
	SpaceMode  string        `yaml:"space_mode"`
	AppPrompt  BaseDirConfig `yaml:"app_prompt"`
	AppSchema  BaseDirConfig `yaml:"app_schema"`
	Log        LogConfig     `yaml:"log"`
}

type BaseDirConfig struct {
	BaseDir string `yaml:"base_dir"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// env holds the BREAKDOWN_* overrides. Only variables that are set replace
// file values.
type env struct {
	WorkingDir     string `envconfig:"WORKING_DIR"`
	Platform       string `envconfig:"PLATFORM"`
	SpaceMode      string `envconfig:"SPACE_MODE"`
	PromptBaseDir  string `envconfig:"PROMPT_BASE_DIR"`
	SchemaBaseDir  string `envconfig:"SCHEMA_BASE_DIR"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	LogDevelopment *bool  `envconfig:"LOG_DEV"`
}

func Default() *Config {
	return &Config{
		WorkingDir: DefaultWorkingDir,
		Platform:   PlatformAuto,
		SpaceMode:  strategy.SpacesLiteral.String(),
		AppPrompt:  BaseDirConfig{BaseDir: "prompts"},
		AppSchema:  BaseDirConfig{BaseDir: "schema"},
		Log:        LogConfig{Level: "info"},
	}
}

// DirPath returns the configuration directory of projectRoot.
func DirPath(projectRoot string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(Dir))
}

// Load reads app.yml (or app.json when no YAML file exists) from the
// project configuration directory, then applies environment overrides.
// Missing files leave the defaults in place.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()
	dir := DirPath(projectRoot)

	data, err := os.ReadFile(filepath.Join(dir, FileYAML))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", FileYAML, err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err := loadJSON(filepath.Join(dir, FileJSON), cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("failed to parse %s: invalid JSON", FileJSON)
	}

	for key, dst := range map[string]*string{
		"working_dir":         &cfg.WorkingDir,
		"platform":            &cfg.Platform,
		"space_mode":          &cfg.SpaceMode,
		"app_prompt.base_dir": &cfg.AppPrompt.BaseDir,
		"app_schema.base_dir": &cfg.AppSchema.BaseDir,
		"log.level":           &cfg.Log.Level,
	} {
		if r := gjson.GetBytes(data, key); r.Exists() {
			*dst = r.String()
		}
	}
	if r := gjson.GetBytes(data, "log.development"); r.Exists() {
		cfg.Log.Development = r.Bool()
	}

	return nil
}

func (c *Config) applyEnv() error {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.WorkingDir, e.WorkingDir)
	set(&c.Platform, e.Platform)
	set(&c.SpaceMode, e.SpaceMode)
	set(&c.AppPrompt.BaseDir, e.PromptBaseDir)
	set(&c.AppSchema.BaseDir, e.SchemaBaseDir)
	set(&c.Log.Level, e.LogLevel)
	if e.LogDevelopment != nil {
		c.Log.Development = *e.LogDevelopment
	}

	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var merr error

	checkDir := func(key, v string) {
		switch {
		case strings.TrimSpace(v) == "":
			merr = multierror.Append(merr, fmt.Errorf("%s must not be empty", key))
		case pathvalue.HasTraversal(v):
			merr = multierror.Append(merr, fmt.Errorf("%s %q must not contain '..'", key, v))
		}
	}
	checkDir("working_dir", c.WorkingDir)
	checkDir("app_prompt.base_dir", c.AppPrompt.BaseDir)
	checkDir("app_schema.base_dir", c.AppSchema.BaseDir)

	if c.Platform != "" && c.Platform != PlatformAuto {
		if _, err := strategy.PlatformFor(c.Platform); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("platform: %w", err))
		}
	}
	if _, ok := strategy.ParseSpaceMode(c.SpaceMode); !ok {
		merr = multierror.Append(merr, fmt.Errorf("space_mode %q must be literal or decoded", c.SpaceMode))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("log.level: %w", err))
	}

	return merr
}

// ResolvePlatform returns the configured platform. "auto" (or empty) maps
// goos to a platform.
func (c *Config) ResolvePlatform(goos string) (pathvalue.Platform, error) {
	if c.Platform == "" || c.Platform == PlatformAuto {
		if goos == "windows" {
			return pathvalue.Windows, nil
		}
		return pathvalue.POSIX, nil
	}
	return strategy.PlatformFor(c.Platform)
}

func (c *Config) Spaces() strategy.SpaceMode {
	m, _ := strategy.ParseSpaceMode(c.SpaceMode)
	return m
}

// Save writes the configuration as app.yml.
func (c *Config) Save(projectRoot string) error {
	dir := DirPath(projectRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, FileYAML), data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{
		"working_dir",
		"platform",
		"space_mode",
		"app_prompt.base_dir",
		"app_schema.base_dir",
		"log.level",
		"log.development",
	}
}

func (c *Config) Get(key string) (string, error) {
	switch key {
	case "working_dir":
		return c.WorkingDir, nil
	case "platform":
		return c.Platform, nil
	case "space_mode":
		return c.SpaceMode, nil
	case "app_prompt.base_dir":
		return c.AppPrompt.BaseDir, nil
	case "app_schema.base_dir":
		return c.AppSchema.BaseDir, nil
	case "log.level":
		return c.Log.Level, nil
	case "log.development":
		return strconv.FormatBool(c.Log.Development), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// Set changes one key. The configuration is left untouched when the result
// does not validate.
func (c *Config) Set(key, value string) error {
	next := *c
	if err := next.set(key, value); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}

	*c = next

	return nil
}

func (c *Config) set(key, value string) error {
	switch key {
	case "working_dir":
		c.WorkingDir = value
	case "platform":
		c.Platform = strings.ToLower(value)
	case "space_mode":
		c.SpaceMode = strings.ToLower(value)
	case "app_prompt.base_dir":
		c.AppPrompt.BaseDir = value
	case "app_schema.base_dir":
		c.AppSchema.BaseDir = value
	case "log.level":
		c.Log.Level = value
	case "log.development":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", value)
		}
		c.Log.Development = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return nil
}

// FindProjectRoot walks up from start until it finds a directory holding
// the configuration directory.
func FindProjectRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		if info, err := os.Stat(DirPath(dir)); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}
