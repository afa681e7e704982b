package strategy

import (
	"os"
	"strings"

	"github.com/tettuan/breakdown-sub016/internal/pathvalue"
)

// Default is the convenience adapter over the POSIX strategy. Unlike the
// base strategies it treats an empty candidate as the base directory
// itself, resolves batches, and hands out strategies scoped to
// subdirectories.
type Default struct {
	inner *POSIX
	opts  []Option
}

// NewDefault anchors a relative base against the WithAnchor directory (the
// process working directory when unset) before validating it.
func NewDefault(base string, opts ...Option) (*Default, error) {
	o := collect(opts)

	if strings.TrimSpace(base) != "" && !pathvalue.IsAbs(base, pathvalue.POSIX) {
		anchor := o.anchor
		if anchor == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, creationFailed("failed to determine working directory", err)
			}
			anchor = wd
		}
		base = strings.TrimSuffix(anchor, "/") + "/" + base
	}

	inner, err := NewPOSIX(base, opts...)
	if err != nil {
		return nil, err
	}

	return &Default{inner: inner, opts: opts}, nil
}

func (d *Default) Resolve(candidate string) (string, error) {
	if strings.TrimSpace(candidate) == "" || candidate == "." {
		return d.inner.BaseDir(), nil
	}
	return d.inner.Resolve(candidate)
}

// ResolveAll resolves candidates in order and stops at the first failure.
func (d *Default) ResolveAll(candidates []string) ([]string, error) {
	resolved := make([]string, 0, len(candidates))
	for _, c := range candidates {
		p, err := d.Resolve(c)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, p)
	}
	return resolved, nil
}

// Child returns a strategy whose base is sub resolved against this one.
func (d *Default) Child(sub string) (*Default, error) {
	dir, err := d.Resolve(sub)
	if err != nil {
		return nil, err
	}
	return NewDefault(dir, d.opts...)
}

func (d *Default) Normalize(path string) (string, error) {
	return d.inner.Normalize(path)
}

func (d *Default) Validate(path string) (string, error) {
	return d.inner.Validate(path)
}

func (d *Default) BaseDir() string {
	return d.inner.BaseDir()
}

func (d *Default) Platform() pathvalue.Platform {
	return d.inner.Platform()
}
