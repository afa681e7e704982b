package workspace_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tettuan/breakdown-sub016/internal/layer"
	"github.com/tettuan/breakdown-sub016/internal/pathvalue"
	"github.com/tettuan/breakdown-sub016/internal/workspace"
)

// noRemoveFs refuses every Remove with a permission error.
type noRemoveFs struct {
	afero.Fs
}

func (noRemoveFs) Remove(name string) error {
	return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrPermission}
}

func TestCreate_OsFs(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), ".agent", "breakdown")
	b := workspace.NewBuilder(afero.NewOsFs())

	s, err := b.Create(root, layer.Required())
	require.NoError(t, err)
	require.Len(t, s, len(layer.Required()))

	for _, lt := range layer.Required() {
		info, err := os.Stat(s[lt])
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, filepath.Join(root, lt.Dir()), s[lt])
	}

	_, err = os.Stat(filepath.Join(root, ".breakdown-write-probe"))
	assert.True(t, os.IsNotExist(err), "probe file must be removed")

	again, err := b.Create(root, layer.Required())
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestCreate_OsFsReadOnlyDir(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0o555))
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	_, err := workspace.NewBuilder(afero.NewOsFs()).Create(root, layer.Required())
	require.ErrorIs(t, err, workspace.ErrPermissionDenied)
}

func TestCreate_ReadOnlyFs(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/work", 0o755))

	b := workspace.NewBuilder(afero.NewReadOnlyFs(base))

	_, err := b.Create("/work", layer.Required())
	require.ErrorIs(t, err, workspace.ErrPermissionDenied)
}

func TestCreate_StaleProbeFile(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	probe := "/work/.breakdown-write-probe"
	require.NoError(t, afero.WriteFile(fsys, probe, nil, 0o600))

	_, err := workspace.NewBuilder(fsys).Create("/work", layer.Required())
	require.NoError(t, err)

	ok, err := afero.Exists(fsys, probe)
	require.NoError(t, err)
	assert.False(t, ok, "stale probe file must be removed")
}

func TestCreate_StaleProbeFileNotRemovable(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "/work/.breakdown-write-probe", nil, 0o600))

	_, err := workspace.NewBuilder(noRemoveFs{base}).Create("/work", layer.Required())
	require.ErrorIs(t, err, workspace.ErrPermissionDenied)

	ok, err := afero.DirExists(base, "/work/task")
	require.NoError(t, err)
	assert.False(t, ok, "no layer is created after a failed write check")
}

func TestValidate_WindowsPlatform(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	for _, lt := range layer.Required() {
		require.NoError(t, fsys.MkdirAll(`C:\work\`+lt.Dir(), 0o755))
	}

	s, err := workspace.NewBuilder(fsys, workspace.WithPlatform(pathvalue.Windows)).Validate(`C:\work`, layer.Required())
	require.NoError(t, err)
	assert.Equal(t, `C:\work\task`, s[layer.Task])
	assert.Equal(t, `C:\work\project`, s[layer.Project])
}

func TestValidate(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/work/project", 0o755))
	require.NoError(t, fsys.MkdirAll("/work/issue", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/work/task", []byte("not a dir"), 0o644))

	b := workspace.NewBuilder(fsys)

	_, err := b.Validate("/work", layer.Required())
	require.ErrorIs(t, err, workspace.ErrNotDirectory)

	var lerr *workspace.LayerError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, layer.Task, lerr.Layer)

	require.NoError(t, fsys.Remove("/work/task"))

	_, err = b.Validate("/work", layer.Required())
	require.ErrorIs(t, err, workspace.ErrLayerMissing)
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, layer.Task, lerr.Layer, "fails on the first missing layer")

	s, err := b.Validate("/work", []layer.Type{layer.Project, layer.Issue})
	require.NoError(t, err)
	assert.Len(t, s, 2)
}

func TestCreate_FileInTheWay(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/work", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/work/temp", nil, 0o644))

	_, err := workspace.NewBuilder(fsys).Create("/work", layer.Required())
	require.Error(t, err)
	assert.NotErrorIs(t, err, workspace.ErrPermissionDenied)
}

func TestListLayerFiles(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	b := workspace.NewBuilder(fsys)

	s, err := b.Create("/work", layer.Required())
	require.NoError(t, err)

	for _, name := range []string{"/work/task/b.md", "/work/task/a.md", "/work/task/nested/c.md", "/work/task/notes.txt"} {
		require.NoError(t, afero.WriteFile(fsys, name, []byte("x"), 0o644))
	}

	got, err := b.ListLayerFiles(s, layer.Task, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("/work/task", "a.md"),
		filepath.Join("/work/task", "b.md"),
		filepath.Join("/work/task", "nested", "c.md"),
	}, got)

	got, err = b.ListLayerFiles(s, layer.Task, "*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("/work/task", "notes.txt")}, got)

	got, err = b.ListLayerFiles(s, layer.Issue, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = b.ListLayerFiles(s, layer.Bugs, "")
	require.ErrorIs(t, err, workspace.ErrLayerMissing)

	_, err = b.ListLayerFiles(s, layer.Task, "[")
	require.Error(t, err)
}
