// Package strategy resolves, normalizes and validates paths against a fixed
// base directory for a single, explicitly selected platform.
//
// All errors returned from this package are *Error values; callers branch on
// Error.Kind instead of parsing messages. Use Legacy to obtain the
// descriptive message style expected by the resolver API.
package strategy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tettuan/breakdown-sub016/internal/pathvalue"
)

type Strategy interface {
	// Resolve joins candidate onto the base directory and fails unless the
	// result stays within it.
	Resolve(candidate string) (string, error)
	// Normalize is a pure syntactic transform with no containment check.
	Normalize(path string) (string, error)
	// Validate checks path syntax and returns its normalized form.
	Validate(path string) (string, error)
	BaseDir() string
	Platform() pathvalue.Platform
}

type Option func(*options)

type options struct {
	spaces SpaceMode
	anchor string
}

// WithSpaceMode selects how "%20" sequences are normalized.
func WithSpaceMode(m SpaceMode) Option {
	return func(o *options) {
		o.spaces = m
	}
}

// WithAnchor sets the directory a relative base is anchored to. Only
// NewDefault uses it.
func WithAnchor(dir string) Option {
	return func(o *options) {
		o.anchor = dir
	}
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the strategy for platform.
func New(platform pathvalue.Platform, base string, opts ...Option) (Strategy, error) {
	switch platform {
	case pathvalue.Windows:
		s, err := NewWindows(base, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case pathvalue.POSIX:
		s, err := NewPOSIX(base, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, creationFailed(fmt.Sprintf("unsupported platform %d", platform), nil)
	}
}

// PlatformFor maps a configuration token to a platform.
func PlatformFor(name string) (pathvalue.Platform, error) {
	p, err := pathvalue.ParsePlatform(name)
	if err != nil {
		return p, &Error{Kind: KindPlatformDetectionFailed, Message: err.Error()}
	}
	return p, nil
}

// POSIX treats "/" as the separator and compares paths case-sensitively.
// Backslashes are converted to "/" during normalization.
type POSIX struct {
	engine
}

func NewPOSIX(base string, opts ...Option) (*POSIX, error) {
	e, err := newEngine(pathvalue.POSIX, base, collect(opts))
	if err != nil {
		return nil, err
	}
	return &POSIX{engine: e}, nil
}

// Windows treats "\" as the separator, accepts drive-letter and UNC bases
// and compares paths case-insensitively.
type Windows struct {
	engine
}

func NewWindows(base string, opts ...Option) (*Windows, error) {
	e, err := newEngine(pathvalue.Windows, base, collect(opts))
	if err != nil {
		return nil, err
	}
	return &Windows{engine: e}, nil
}

// engine holds the shared implementation. It owns nothing but the
// normalized base string and is safe for concurrent use.
type engine struct {
	norm normalizer
	base string
}

func newEngine(platform pathvalue.Platform, base string, o options) (engine, error) {
	n := normalizer{platform: platform, spaces: o.spaces}

	if err := checkBase(base, platform); err != nil {
		return engine{}, err
	}

	normalized, err := n.normalize(base)
	if err != nil {
		return engine{}, creationFailed("failed to normalize base directory", err)
	}

	return engine{norm: n, base: normalized}, nil
}

func checkBase(base string, platform pathvalue.Platform) error {
	if strings.TrimSpace(base) == "" {
		return creationFailed("base directory is empty", pathvalue.ErrEmptyPath)
	}
	if pathvalue.HasTraversal(base) {
		return creationFailed(fmt.Sprintf("base directory %q contains '..' segments", base), pathvalue.ErrPathTraversal)
	}
	if c, ok := pathvalue.ForbiddenChar(base, platform); ok {
		return creationFailed(fmt.Sprintf("base directory %q contains invalid character %q", base, c),
			pathvalue.ErrInvalidCharacters)
	}
	if !pathvalue.IsAbs(base, platform) {
		return creationFailed(fmt.Sprintf("base directory %q is not an absolute %s path", base, platform), nil)
	}
	return nil
}

func (e engine) BaseDir() string {
	return e.base
}

func (e engine) Platform() pathvalue.Platform {
	return e.norm.platform
}

func (e engine) Normalize(path string) (string, error) {
	return e.norm.normalize(path)
}

func (e engine) Validate(path string) (string, error) {
	if _, err := pathvalue.New(path, e.norm.platform); err != nil {
		return "", invalidPath(path, reasonFor(err), err)
	}
	if e.norm.platform == pathvalue.Windows && hasStrayDoubleSeparator(path) {
		return "", invalidPath(path, "consecutive path separators", nil)
	}
	return e.norm.normalize(path)
}

func (e engine) Resolve(candidate string) (string, error) {
	pv, err := pathvalue.New(candidate, e.norm.platform)
	if err != nil {
		if errors.Is(err, pathvalue.ErrPathTraversal) {
			return "", securityViolation(candidate, "path traversal detected", err)
		}
		return "", invalidPath(candidate, reasonFor(err), err)
	}

	joined := candidate
	if !pv.IsAbs() {
		if e.norm.platform == pathvalue.Windows && hasDrive(candidate) {
			return "", invalidPath(candidate, "drive-relative paths are not supported", nil)
		}
		joined = e.norm.join(e.base, candidate)
	}

	resolved, err := e.norm.normalize(joined)
	if err != nil {
		return "", err
	}

	if !e.norm.within(e.base, resolved) {
		return "", securityViolation(candidate, "path escapes base directory", nil)
	}

	return resolved, nil
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, pathvalue.ErrEmptyPath):
		return "path is empty"
	case errors.Is(err, pathvalue.ErrPathTraversal):
		return "path traversal detected"
	case errors.Is(err, pathvalue.ErrInvalidCharacters):
		var perr *pathvalue.Error
		if errors.As(err, &perr) {
			return fmt.Sprintf("invalid character %q", perr.Char)
		}
		return "invalid characters"
	default:
		return err.Error()
	}
}
