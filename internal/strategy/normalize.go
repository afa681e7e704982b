package strategy

import (
	"strings"

	"github.com/tettuan/breakdown-sub016/internal/pathvalue"
)

// SpaceMode selects how URL-encoded spaces are treated during
// normalization.
type SpaceMode int

const (
	// SpacesLiteral keeps "%20" verbatim.
	SpacesLiteral SpaceMode = iota
	// SpacesDecoded turns every "%20" into a literal space.
	SpacesDecoded
)

func (m SpaceMode) String() string {
	if m == SpacesDecoded {
		return "decoded"
	}
	return "literal"
}

// ParseSpaceMode accepts "literal" (or "") and "decoded".
func ParseSpaceMode(s string) (SpaceMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "literal":
		return SpacesLiteral, true
	case "decoded":
		return SpacesDecoded, true
	default:
		return SpacesLiteral, false
	}
}

type normalizer struct {
	platform pathvalue.Platform
	spaces   SpaceMode
}

func (n normalizer) sep() string {
	return string(n.platform.Separator())
}

// normalize converts separators, collapses duplicates and drops "."
// segments. It never touches the filesystem and never checks containment.
func (n normalizer) normalize(path string) (string, error) {
	if path == "" {
		return "", &Error{Kind: KindNormalizationFailed, Path: path, Cause: pathvalue.ErrEmptyPath}
	}
	if strings.ContainsRune(path, 0) {
		return "", &Error{Kind: KindNormalizationFailed, Path: path, Cause: pathvalue.ErrInvalidCharacters}
	}

	if n.spaces == SpacesDecoded {
		path = strings.ReplaceAll(path, "%20", " ")
	}

	prefix, rest := n.splitRoot(path)
	sep := n.sep()

	segs := make([]string, 0, strings.Count(rest, sep)+1)
	for _, s := range strings.Split(rest, sep) {
		if s == "" || s == "." {
			continue
		}
		segs = append(segs, s)
	}

	joined := strings.Join(segs, sep)
	if prefix == "" && joined == "" {
		return ".", nil
	}

	return prefix + joined, nil
}

// splitRoot converts separators to the native form and splits off the root
// prefix: "/" on POSIX; "\\" (UNC), "C:\", "C:" or "\" on Windows.
func (n normalizer) splitRoot(path string) (string, string) {
	if n.platform != pathvalue.Windows {
		p := strings.ReplaceAll(path, `\`, "/")
		if strings.HasPrefix(p, "/") {
			return "/", p[1:]
		}
		return "", p
	}

	p := strings.ReplaceAll(path, "/", `\`)

	switch {
	case pathvalue.IsUNC(p):
		return `\\`, p[2:]
	case hasDrive(p):
		if len(p) > 2 && p[2] == '\\' {
			return p[:3], p[3:]
		}
		return p[:2], p[2:]
	case strings.HasPrefix(p, `\`):
		return `\`, p[1:]
	default:
		return "", p
	}
}

func (n normalizer) join(base, rel string) string {
	if strings.HasSuffix(base, n.sep()) {
		return base + rel
	}
	return base + n.sep() + rel
}

// within reports whether target equals base or lies beneath it on a
// segment boundary. Both arguments must already be normalized.
//
// Windows names compare through a one-rune-to-one-rune uppercase mapping,
// the way NTFS does. Full case folding would equate "straße" with "strasse".
func (n normalizer) within(base, target string) bool {
	if n.platform == pathvalue.Windows {
		base = strings.ToUpper(base)
		target = strings.ToUpper(target)
	}

	if target == base {
		return true
	}

	prefix := base
	if !strings.HasSuffix(prefix, n.sep()) {
		prefix += n.sep()
	}

	return strings.HasPrefix(target, prefix)
}

func hasDrive(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// hasStrayDoubleSeparator reports a doubled separator anywhere except the
// leading UNC prefix.
func hasStrayDoubleSeparator(path string) bool {
	start := 1
	if pathvalue.IsUNC(path) {
		start = 3
	}
	for i := start; i < len(path); i++ {
		if isSep(path[i]) && isSep(path[i-1]) {
			return true
		}
	}
	return false
}

func isSep(c byte) bool {
	return c == '/' || c == '\\'
}
