package pathvalue

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform selects the path syntax rules. It is always chosen explicitly
// by the caller, never sniffed from the running host.
type Platform int

const (
	POSIX Platform = iota
	Windows
)

func (p Platform) String() string {
	switch p {
	case Windows:
		return "windows"
	default:
		return "posix"
	}
}

func (p Platform) Separator() byte {
	if p == Windows {
		return '\\'
	}
	return '/'
}

// Host is the platform of the running process. Only code that touches the
// real process state, such as the current directory, should consult it.
func Host() Platform {
	if runtime.GOOS == "windows" {
		return Windows
	}
	return POSIX
}

// ParsePlatform maps a configuration or GOOS-style token to a Platform.
func ParsePlatform(name string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "posix", "unix", "linux", "darwin", "freebsd", "openbsd", "netbsd":
		return POSIX, nil
	case "windows", "win32", "win":
		return Windows, nil
	default:
		return POSIX, fmt.Errorf("unknown platform %q", name)
	}
}

// DriveLetter is a Windows drive designator such as "C:".
type DriveLetter string

// NewDriveLetter accepts "c", "C", "c:" or "C:" and returns the upper-case
// form "C:".
func NewDriveLetter(s string) (DriveLetter, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ":")
	if len(s) != 1 || !isDriveLetter(s[0]) {
		return "", &Error{Path: s, Err: ErrInvalidDrive}
	}
	return DriveLetter(strings.ToUpper(s) + ":"), nil
}

func (d DriveLetter) String() string {
	return string(d)
}

// Root returns the drive root, for example "C:\".
func (d DriveLetter) Root() string {
	return string(d) + `\`
}
