// internal/storage/archive/localfs_test.go
package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/zella/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_WriteRead(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "exports/u1/a.json", []byte(`{"ok":true}`)))
	got, err := fs.Read(ctx, "exports/u1/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(got))
}

func TestLocalFS_ReadMissing(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	_, err := fs.Read(context.Background(), "profiles/nobody.json")
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestLocalFS_RejectsTraversal(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	assert.Error(t, fs.Write(ctx, "../escape.json", []byte("x")))
	_, err := fs.Read(ctx, "exports/../../etc/passwd")
	assert.Error(t, err)
	assert.Error(t, fs.Write(ctx, "", []byte("x")))
}

func TestLocalFS_Exists(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	exists, err := fs.Exists(ctx, "nonexistent.json")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, fs.Write(ctx, "exists.json", []byte("data")))
	exists, _ = fs.Exists(ctx, "exists.json")
	assert.True(t, exists)
}

func TestLocalFS_List(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "exports/u1/a.json", []byte("a")))
	require.NoError(t, fs.Write(ctx, "exports/u1/b.json", []byte("b")))
	require.NoError(t, fs.Write(ctx, "exports/u2/c.json", []byte("c")))

	paths, err := fs.List(ctx, "exports/u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"exports/u1/a.json", "exports/u1/b.json"}, paths)

	none, err := fs.List(ctx, "exports/u9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLocalFS_Delete(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "delete.json", []byte("data")))
	require.NoError(t, fs.Delete(ctx, "delete.json"))

	exists, _ := fs.Exists(ctx, "delete.json")
	assert.False(t, exists)
}

func TestPaths(t *testing.T) {
	ts := time.Date(2024, time.May, 6, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "exports/u1/20240506T093000Z.json", ExportPath("u1", ts))
	assert.Equal(t, "profiles/u1.json", ProfilePath("u1"))
}

func TestNew(t *testing.T) {
	s, err := New(Config{Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalFS{}, s)

	_, err = New(Config{Backend: "s3"})
	assert.True(t, errors.Is(err, core.ErrConfigMissing))

	_, err = New(Config{Backend: "tape"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}
