// Package workspace verifies and creates the layer subdirectories of a
// working directory.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tettuan/breakdown-sub016/internal/layer"
	"github.com/tettuan/breakdown-sub016/internal/pathvalue"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrLayerMissing     = errors.New("layer directory does not exist")
	ErrNotDirectory     = errors.New("layer path is not a directory")
)

// probeName is the sentinel file written to test write access.
const probeName = ".breakdown-write-probe"

// DefaultPattern matches every markdown file below a layer directory.
const DefaultPattern = "**/*.md"

// Structure maps each verified layer to its directory.
type Structure map[layer.Type]string

// LayerError names the layer that failed verification.
type LayerError struct {
	Layer layer.Type
	Path  string
	Err   error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("layer %q at %s: %v", e.Layer, e.Path, e.Err)
}

func (e *LayerError) Unwrap() error {
	return e.Err
}

type Option func(*Builder)

func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithPlatform joins layer paths with the platform's separator instead of
// the host's.
func WithPlatform(p pathvalue.Platform) Option {
	return func(b *Builder) {
		b.sep = string(p.Separator())
	}
}

// Builder checks and creates layer directories on an afero filesystem.
type Builder struct {
	fs  afero.Fs
	log *zap.Logger
	sep string
}

func NewBuilder(fsys afero.Fs, opts ...Option) *Builder {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	b := &Builder{fs: fsys, log: zap.NewNop(), sep: string(filepath.Separator)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Validate stats every layer directory under workingDir and stops at the
// first one that is missing or not a directory. The result is rebuilt on
// every call.
func (b *Builder) Validate(workingDir string, layers []layer.Type) (Structure, error) {
	s := make(Structure, len(layers))

	for _, lt := range layers {
		dir := b.join(workingDir, lt.Dir())

		info, err := b.fs.Stat(dir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, &LayerError{Layer: lt, Path: dir, Err: ErrLayerMissing}
		case err != nil:
			return nil, &LayerError{Layer: lt, Path: dir, Err: classify(err)}
		case !info.IsDir():
			return nil, &LayerError{Layer: lt, Path: dir, Err: ErrNotDirectory}
		}

		s[lt] = dir
	}

	return s, nil
}

// Create makes any missing layer directories and then validates the
// result. Creation is not atomic across processes.
func (b *Builder) Create(workingDir string, layers []layer.Type) (Structure, error) {
	if err := b.probe(workingDir); err != nil {
		return nil, err
	}

	for _, lt := range layers {
		dir := b.join(workingDir, lt.Dir())

		if err := b.fs.MkdirAll(dir, 0o755); err != nil {
			if isPermission(err) {
				return nil, &LayerError{Layer: lt, Path: dir, Err: fmt.Errorf("%w: %v", ErrPermissionDenied, err)}
			}
			return nil, fmt.Errorf("failed to create %s directory %s: %w", lt, dir, err)
		}

		b.log.Debug("layer directory ready", zap.String("layer", lt.String()), zap.String("path", dir))
	}

	return b.Validate(workingDir, layers)
}

// probe writes and removes a sentinel file in dir. A missing dir is not an
// error; it is created later.
func (b *Builder) probe(dir string) error {
	name := b.join(dir, probeName)

	f, err := b.fs.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if errors.Is(err, fs.ErrExist) {
		// Left behind by an interrupted run.
		b.log.Debug("removing stale probe file", zap.String("path", name))
		if err := b.removeProbe(dir, name); err != nil {
			return err
		}
		f, err = b.fs.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	}

	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		b.log.Debug("working directory does not exist yet", zap.String("path", dir))
		return nil
	case isPermission(err):
		b.log.Warn("working directory is not writable", zap.String("path", dir), zap.Error(err))
		return fmt.Errorf("%w: cannot write to %s: %v", ErrPermissionDenied, dir, err)
	default:
		return fmt.Errorf("failed to probe %s: %w", dir, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close probe file: %w", err)
	}
	return b.removeProbe(dir, name)
}

func (b *Builder) removeProbe(dir, name string) error {
	if err := b.fs.Remove(name); err != nil {
		if isPermission(err) {
			return fmt.Errorf("%w: cannot remove probe file in %s: %v", ErrPermissionDenied, dir, err)
		}
		return fmt.Errorf("failed to remove probe file: %w", err)
	}
	return nil
}

func (b *Builder) join(dir, name string) string {
	if strings.HasSuffix(dir, b.sep) {
		return dir + name
	}
	return dir + b.sep + name
}

// ListLayerFiles returns the files of one layer matching pattern, sorted.
// An empty pattern means DefaultPattern.
func (b *Builder) ListLayerFiles(s Structure, lt layer.Type, pattern string) ([]string, error) {
	dir, ok := s[lt]
	if !ok {
		return nil, &LayerError{Layer: lt, Err: ErrLayerMissing}
	}
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}

	fsys := afero.NewIOFS(afero.NewBasePathFs(b.fs, dir))

	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", lt, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, b.join(dir, strings.ReplaceAll(m, "/", b.sep)))
	}
	sort.Strings(files)

	return files, nil
}

func classify(err error) error {
	if isPermission(err) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}

func isPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}
