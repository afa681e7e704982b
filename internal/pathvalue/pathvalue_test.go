package pathvalue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tettuan/breakdown-sub016/internal/pathvalue"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		platform pathvalue.Platform
		wantErr  error
	}{
		{name: "relative posix", raw: "sub/dir/file.md", platform: pathvalue.POSIX},
		{name: "absolute posix", raw: "/work/file.md", platform: pathvalue.POSIX},
		{name: "dotted file name", raw: "a..b/file.md", platform: pathvalue.POSIX},
		{name: "empty", raw: "", platform: pathvalue.POSIX, wantErr: pathvalue.ErrEmptyPath},
		{name: "whitespace only", raw: "  \t", platform: pathvalue.Windows, wantErr: pathvalue.ErrEmptyPath},
		{name: "parent segment", raw: "../../etc/passwd", platform: pathvalue.POSIX, wantErr: pathvalue.ErrPathTraversal},
		{name: "inner parent segment", raw: "a/../b", platform: pathvalue.POSIX, wantErr: pathvalue.ErrPathTraversal},
		{name: "backslash parent segment", raw: `a\..\b`, platform: pathvalue.Windows, wantErr: pathvalue.ErrPathTraversal},
		{name: "nul posix", raw: "a\x00b", platform: pathvalue.POSIX, wantErr: pathvalue.ErrInvalidCharacters},
		{name: "posix allows angle brackets", raw: "a<b>.md", platform: pathvalue.POSIX},
		{name: "drive colon", raw: `C:\work\file.md`, platform: pathvalue.Windows},
		{name: "unc", raw: `\\server\share\file.md`, platform: pathvalue.Windows},
		{name: "stray colon", raw: `C:\work\a:b`, platform: pathvalue.Windows, wantErr: pathvalue.ErrInvalidCharacters},
		{name: "control char", raw: "a\x1fb", platform: pathvalue.Windows, wantErr: pathvalue.ErrInvalidCharacters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := pathvalue.New(tt.raw, tt.platform)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, p.String())

				var perr *pathvalue.Error
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, tt.raw, perr.Path)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.raw, p.String())
			assert.Equal(t, tt.platform, p.Platform())
		})
	}
}

func TestNew_WindowsForbiddenCharacters(t *testing.T) {
	t.Parallel()

	for _, c := range []string{"<", ">", ":", `"`, "|", "?", "*"} {
		_, err := pathvalue.New("dir\\fi"+c+"le.md", pathvalue.Windows)
		require.ErrorIs(t, err, pathvalue.ErrInvalidCharacters, "character %q", c)

		_, err = pathvalue.New("dir/fi"+c+"le.md", pathvalue.POSIX)
		require.NoError(t, err, "character %q", c)
	}
}

func TestPathIsAbs(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		raw      string
		platform pathvalue.Platform
		want     bool
	}{
		"posix root":      {"/work", pathvalue.POSIX, true},
		"posix relative":  {"work", pathvalue.POSIX, false},
		"drive root":      {`C:\work`, pathvalue.Windows, true},
		"drive slash":     {"d:/work", pathvalue.Windows, true},
		"drive relative":  {"C:work", pathvalue.Windows, false},
		"unc":             {`\\server\share`, pathvalue.Windows, true},
		"rooted no drive": {`\work`, pathvalue.Windows, false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p, err := pathvalue.New(tt.raw, tt.platform)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.IsAbs())
		})
	}
}

func TestPathSegments(t *testing.T) {
	t.Parallel()

	p, err := pathvalue.New(`a/b\\c//d`, pathvalue.Windows)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, p.Segments())
}

func TestNewDriveLetter(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"c", "C", "c:", "C:"} {
		d, err := pathvalue.NewDriveLetter(in)
		require.NoError(t, err)
		assert.Equal(t, "C:", d.String())
		assert.Equal(t, `C:\`, d.Root())
	}

	for _, in := range []string{"", "1", "cd", "::"} {
		_, err := pathvalue.NewDriveLetter(in)
		require.ErrorIs(t, err, pathvalue.ErrInvalidDrive, "input %q", in)
	}
}

func TestParsePlatform(t *testing.T) {
	t.Parallel()

	p, err := pathvalue.ParsePlatform("Linux")
	require.NoError(t, err)
	assert.Equal(t, pathvalue.POSIX, p)

	p, err = pathvalue.ParsePlatform("windows")
	require.NoError(t, err)
	assert.Equal(t, pathvalue.Windows, p)
	assert.Equal(t, byte('\\'), p.Separator())

	_, err = pathvalue.ParsePlatform("plan9")
	require.Error(t, err)
}
