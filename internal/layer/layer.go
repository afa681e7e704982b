// Package layer defines the processing-stage tokens that select a
// subdirectory of the working directory.
package layer

import (
	"fmt"
	"strings"
)

type Type string

const (
	Project Type = "project"
	Issue   Type = "issue"
	Task    Type = "task"
	Temp    Type = "temp"
	Bugs    Type = "bugs"
)

// All returns every known layer in hierarchy order.
func All() []Type {
	return []Type{Project, Issue, Task, Temp, Bugs}
}

// Required returns the layers that every workspace must contain.
func Required() []Type {
	return []Type{Project, Issue, Task, Temp}
}

// Parse maps a token to a layer. Matching is case-insensitive and ignores
// surrounding whitespace.
func Parse(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown layer type %q (expected one of %s)", s, joined())
	}
	return t, nil
}

func (t Type) Valid() bool {
	for _, known := range All() {
		if t == known {
			return true
		}
	}
	return false
}

// Dir is the subdirectory name the layer occupies.
func (t Type) Dir() string {
	return string(t)
}

func (t Type) String() string {
	return string(t)
}

func joined() string {
	names := make([]string, 0, len(All()))
	for _, t := range All() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
