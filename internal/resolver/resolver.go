// Package resolver computes the input and output file paths of a
// processing operation from a working directory, a layer and optional
// file names.
//
// Methods return descriptive errors. The structured *strategy.Error behind
// a failure stays reachable with errors.As.
package resolver

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tettuan/breakdown-sub016/internal/layer"
	"github.com/tettuan/breakdown-sub016/internal/pathvalue"
	"github.com/tettuan/breakdown-sub016/internal/strategy"
	"github.com/tettuan/breakdown-sub016/internal/workspace"
)

// maxNameAttempts bounds how often a colliding generated name is redrawn.
const maxNameAttempts = 16

var ErrNameExhausted = errors.New("could not generate an unused file name")

// Options carries the optional file names of an operation. Empty fields
// are absent.
type Options struct {
	FromFile        string
	DestinationFile string
	FromLayerType   layer.Type
}

// Reservations reports whether a path has already been handed out, for
// example by an earlier run that has not written the file yet.
type Reservations interface {
	Taken(path string) (bool, error)
}

type Option func(*config)

type config struct {
	platform pathvalue.Platform
	fs       afero.Fs
	log      *zap.Logger
	now      func() time.Time
	rand     io.Reader
	reserved Reservations
	spaces   strategy.SpaceMode
	anchor   string
}

func WithPlatform(p pathvalue.Platform) Option {
	return func(c *config) { c.platform = p }
}

func WithFs(fsys afero.Fs) Option {
	return func(c *config) { c.fs = fsys }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

func WithRandom(r io.Reader) Option {
	return func(c *config) { c.rand = r }
}

func WithReservations(r Reservations) Option {
	return func(c *config) { c.reserved = r }
}

func WithSpaceMode(m strategy.SpaceMode) Option {
	return func(c *config) { c.spaces = m }
}

// WithAnchor sets the directory a relative working directory is joined to.
// It defaults to the process working directory, which is only usable when
// the platform is the host's.
func WithAnchor(dir string) Option {
	return func(c *config) { c.anchor = dir }
}

type Resolver struct {
	layer    layer.Type
	opts     Options
	strategy strategy.Strategy
	fs       afero.Fs
	log      *zap.Logger
	names    *NameGenerator
	reserved Reservations
	builder  *workspace.Builder
}

func New(workingDir string, lt layer.Type, opts Options, options ...Option) (*Resolver, error) {
	c := config{platform: pathvalue.POSIX}
	for _, o := range options {
		o(&c)
	}
	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}

	if !lt.Valid() {
		return nil, fmt.Errorf("unknown layer type %q", lt)
	}
	if opts.FromLayerType != "" && !opts.FromLayerType.Valid() {
		return nil, fmt.Errorf("unknown source layer type %q", opts.FromLayerType)
	}

	base, err := anchor(workingDir, c)
	if err != nil {
		return nil, err
	}

	s, err := strategy.New(c.platform, base, strategy.WithSpaceMode(c.spaces))
	if err != nil {
		return nil, fmt.Errorf("invalid working directory %q: %w", workingDir, strategy.Legacy(err))
	}

	return &Resolver{
		layer:    lt,
		opts:     opts,
		strategy: s,
		fs:       c.fs,
		log:      c.log,
		names:    NewNameGenerator(c.now, c.rand),
		reserved: c.reserved,
		builder:  workspace.NewBuilder(c.fs, workspace.WithLogger(c.log), workspace.WithPlatform(c.platform)),
	}, nil
}

func anchor(workingDir string, c config) (string, error) {
	if strings.TrimSpace(workingDir) == "" {
		return "", errors.New("working directory is empty")
	}
	if pathvalue.IsAbs(workingDir, c.platform) {
		return workingDir, nil
	}

	dir := c.anchor
	if dir == "" {
		if c.platform != pathvalue.Host() {
			return "", fmt.Errorf("relative working directory %q needs an anchor on the %s platform", workingDir, c.platform)
		}
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		dir = wd
	}

	return strings.TrimRight(dir, `/\`) + string(c.platform.Separator()) + workingDir, nil
}

// WorkingDir is the normalized absolute working directory.
func (r *Resolver) WorkingDir() string {
	return r.strategy.BaseDir()
}

func (r *Resolver) Layer() layer.Type {
	return r.layer
}

// InputPath returns "" when no source file was given.
func (r *Resolver) InputPath() (string, error) {
	from := r.opts.FromFile
	if from == "" {
		return "", nil
	}

	if hasSeparator(from) {
		p, err := r.strategy.Validate(from)
		if err != nil {
			return "", r.fail("input", err)
		}
		return p, nil
	}

	lt := r.layer
	if r.opts.FromLayerType != "" {
		lt = r.opts.FromLayerType
	}

	p, err := r.strategy.Resolve(r.join(lt.Dir(), from))
	if err != nil {
		return "", r.fail("input", err)
	}

	r.log.Debug("resolved input path", zap.String("layer", lt.String()), zap.String("path", p))

	return p, nil
}

// OutputPath applies the destination rules in order:
//
//  1. no destination: <workingDir>/<layer>/<generated>
//  2. destination is an existing directory: <destination>/<generated>
//  3. destination has a separator and an extension: destination as given
//  4. destination has an extension: <workingDir>/<layer>/<destination>
//  5. otherwise: <destination>/<generated>
//
// Relative destinations in rules 2 and 5 are taken relative to the working
// directory.
func (r *Resolver) OutputPath() (string, error) {
	dest := r.opts.DestinationFile

	if dest == "" {
		dir, err := r.strategy.Resolve(r.layer.Dir())
		if err != nil {
			return "", r.fail("output", err)
		}
		return r.generate(dir)
	}

	dir, err := r.destinationDir(dest)
	if err != nil {
		return "", r.fail("output", err)
	}

	info, err := r.fs.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return r.generate(dir)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("failed to inspect destination %q: %w", dir, err)
	}

	switch {
	case hasSeparator(dest) && hasExtension(dest):
		if _, err := r.strategy.Validate(dest); err != nil {
			return "", r.fail("output", err)
		}
		return dest, nil
	case hasExtension(dest):
		p, err := r.strategy.Resolve(r.join(r.layer.Dir(), dest))
		if err != nil {
			return "", r.fail("output", err)
		}
		return p, nil
	default:
		return r.generate(dir)
	}
}

// ValidateDirectoryStructure creates any missing required layer
// directories under the working directory.
func (r *Resolver) ValidateDirectoryStructure() error {
	if _, err := r.builder.Create(r.WorkingDir(), layer.Required()); err != nil {
		return fmt.Errorf("failed to prepare working directory %s: %w", r.WorkingDir(), err)
	}
	return nil
}

// destinationDir anchors a relative destination at the working directory.
// Absolute destinations are only validated.
func (r *Resolver) destinationDir(dest string) (string, error) {
	if pathvalue.IsAbs(dest, r.strategy.Platform()) {
		return r.strategy.Validate(dest)
	}
	return r.strategy.Resolve(dest)
}

// generate returns an unused generated file name inside dir.
func (r *Resolver) generate(dir string) (string, error) {
	for range maxNameAttempts {
		name, err := r.names.Next()
		if err != nil {
			return "", err
		}

		p, err := r.strategy.Normalize(r.join(dir, name))
		if err != nil {
			return "", r.fail("output", err)
		}

		taken, err := r.taken(p)
		if err != nil {
			return "", err
		}
		if !taken {
			r.log.Debug("generated output path", zap.String("path", p))
			return p, nil
		}

		r.log.Debug("generated name collides, drawing again", zap.String("path", p))
	}

	return "", fmt.Errorf("%w in %s after %d attempts", ErrNameExhausted, dir, maxNameAttempts)
}

func (r *Resolver) taken(p string) (bool, error) {
	_, err := r.fs.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("failed to check %s: %w", p, err)
	}

	if r.reserved == nil {
		return false, nil
	}

	ok, err := r.reserved.Taken(p)
	if err != nil {
		return false, fmt.Errorf("failed to check reservations for %s: %w", p, err)
	}
	return ok, nil
}

func (r *Resolver) join(dir, name string) string {
	sep := string(r.strategy.Platform().Separator())
	if strings.HasSuffix(dir, sep) {
		return dir + name
	}
	return dir + sep + name
}

func (r *Resolver) fail(what string, err error) error {
	if strategy.IsKind(err, strategy.KindSecurityViolation) {
		r.log.Warn("path rejected", zap.String("kind", what), zap.Error(err))
	}
	return strategy.Legacy(err)
}

func hasSeparator(p string) bool {
	return strings.ContainsAny(p, `/\`)
}

// hasExtension reports whether the last path segment has an extension.
func hasExtension(p string) bool {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		p = p[i+1:]
	}
	return path.Ext(p) != ""
}
