package storage

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir(), "/storage")
	require.NoError(t, err)
	l.now = func() time.Time { return time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC) }
	return l
}

func TestLocal_StoreOpenDelete(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	p, err := l.Store(ctx, []byte("hello"), "My Photo.JPG", "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "images/2024/03/07/"), p)
	assert.True(t, strings.HasSuffix(p, "_My_Photo.jpg"), p)

	data, err := ReadAll(ctx, l, p)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, l.Delete(ctx, p))

	_, err = l.Open(ctx, p)
	assert.ErrorIs(t, err, ErrNotExist)
	assert.ErrorIs(t, l.Delete(ctx, p), ErrNotExist)
}

func TestLocal_StoreGeneratesDistinctPaths(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	a, err := l.Store(ctx, []byte("a"), "same.png", "image/png")
	require.NoError(t, err)
	b, err := l.Store(ctx, []byte("b"), "same.png", "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestLocal_StoreLeavesNoTempFiles(t *testing.T) {
	l := newTestLocal(t)

	p, err := l.Store(context.Background(), []byte("x"), "x.gif", "image/gif")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(l.Root(), filepath.Dir(filepath.FromSlash(p))))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.HasPrefix(entries[0].Name(), ".upload-"))
}

func TestLocal_StoredFilesAreWorldReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	l := newTestLocal(t)

	p, err := l.Store(context.Background(), []byte("x"), "x.png", "image/png")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(l.Root(), filepath.FromSlash(p)))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestLocal_RejectsEscapingPaths(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	for _, p := range []string{"", "../secret", "/etc/passwd", "images/../../x"} {
		_, err := l.Open(ctx, p)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
		assert.ErrorIs(t, l.Delete(ctx, p), ErrInvalidPath, p)
	}
}

func TestLocal_URL(t *testing.T) {
	l := newTestLocal(t)
	assert.Equal(t, "/storage/images/a.jpg", l.URL("images/a.jpg"))

	cdn, err := NewLocal(t.TempDir(), "https://cdn.example.com/files/")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/files/images/a.jpg", cdn.URL("images/a.jpg"))
}

func TestLocal_CancelledContext(t *testing.T) {
	l := newTestLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Store(ctx, []byte("x"), "x.png", "image/png")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"sunset.jpg":           "sunset",
		"../../etc/passwd":     "passwd",
		`C:\Users\me\pic.png`:  "pic",
		"":                     "file",
		"....":                 "file",
		"привет.gif":           "file",
		"a very long name that keeps going and going.png": "a_very_long_name_that_keeps_going_and_go",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeName(in), in)
	}
}
