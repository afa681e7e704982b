package pathvalue

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyPath         = errors.New("path is empty")
	ErrPathTraversal     = errors.New("path traversal detected")
	ErrInvalidCharacters = errors.New("path contains invalid characters")
	ErrInvalidDrive      = errors.New("invalid drive letter")
)

// Error describes why a raw string was rejected as a path.
type Error struct {
	Path string
	Char rune
	Err  error
}

func (e *Error) Error() string {
	if errors.Is(e.Err, ErrInvalidCharacters) {
		return fmt.Sprintf("%s: %q (character %q)", e.Err, e.Path, e.Char)
	}
	return fmt.Sprintf("%s: %q", e.Err, e.Path)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Path is a validated path fragment. The zero value is not a valid path;
// use New.
type Path struct {
	raw      string
	platform Platform
}

func New(raw string, platform Platform) (Path, error) {
	if strings.TrimSpace(raw) == "" {
		return Path{}, &Error{Path: raw, Err: ErrEmptyPath}
	}
	if HasTraversal(raw) {
		return Path{}, &Error{Path: raw, Err: ErrPathTraversal}
	}
	if c, ok := ForbiddenChar(raw, platform); ok {
		return Path{}, &Error{Path: raw, Char: c, Err: ErrInvalidCharacters}
	}

	return Path{raw: raw, platform: platform}, nil
}

func (p Path) String() string {
	return p.raw
}

func (p Path) Platform() Platform {
	return p.platform
}

func (p Path) IsAbs() bool {
	return IsAbs(p.raw, p.platform)
}

// Segments returns the non-empty segments of the path, split on both
// separator styles.
func (p Path) Segments() []string {
	return splitSegments(p.raw)
}

// HasTraversal reports whether any segment of path is "..". Both "/" and
// "\" count as separators regardless of platform.
func HasTraversal(path string) bool {
	for _, seg := range strings.FieldsFunc(path, isSeparator) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// ForbiddenChar returns the first character of path that the platform does
// not allow. On Windows a colon is only accepted at index 1.
func ForbiddenChar(path string, platform Platform) (rune, bool) {
	for i, c := range path {
		if c == 0 {
			return c, true
		}
		if platform != Windows {
			continue
		}
		switch {
		case c < 0x20:
			return c, true
		case c == ':':
			if i != 1 {
				return c, true
			}
		case strings.ContainsRune(`<>"|?*`, c):
			return c, true
		}
	}
	return 0, false
}

// IsAbs reports whether path is absolute for the platform: a leading "/"
// on POSIX, a drive root ("C:\") or UNC prefix ("\\server\share") on
// Windows.
func IsAbs(path string, platform Platform) bool {
	if platform != Windows {
		return strings.HasPrefix(path, "/")
	}
	if IsUNC(path) {
		return true
	}
	return len(path) >= 3 && isDriveLetter(path[0]) && path[1] == ':' && isSeparator(rune(path[2]))
}

// IsUNC reports whether path starts with a UNC prefix followed by a server
// name.
func IsUNC(path string) bool {
	if len(path) < 3 {
		return false
	}
	return isSeparator(rune(path[0])) && isSeparator(rune(path[1])) && !isSeparator(rune(path[2]))
}

func splitSegments(path string) []string {
	return strings.FieldsFunc(path, isSeparator)
}

func isSeparator(c rune) bool {
	return c == '/' || c == '\\'
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
