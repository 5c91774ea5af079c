package dryml

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherInvalidatesChangedTemplates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pages"), 0o755))
	file := filepath.Join(dir, "pages", "home.dryml")
	require.NoError(t, os.WriteFile(file, []byte("<p>v1</p>"), 0o644))

	c := NewCompiler(dir)
	_, err := c.CompileFile(context.Background(), "pages/home.dryml", BuildOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, c.Cache().Len())

	w, err := NewWatcher(dir, c.Cache(), logr.Discard())
	require.NoError(t, err)
	var changed atomic.Value
	w.OnChange = func(p string) { changed.Store(p) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Close()

	require.NoError(t, os.WriteFile(file, []byte("<p>v2</p>"), 0o644))
	require.Eventually(t, func() bool {
		return changed.Load() == "/pages/home.dryml"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 0, c.Cache().Len())
	assert.GreaterOrEqual(t, w.Changes(), uint64(1))

	res, err := c.CompileFile(context.Background(), "pages/home.dryml", BuildOptions{})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, "<p>v2</p>", res.Source)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	cache := NewBuildCache()
	w, err := NewWatcher(dir, cache, logr.Discard())
	require.NoError(t, err)
	var calls atomic.Int32
	w.OnChange = func(string) { calls.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "lib"), 0o755))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "a.taglib.dryml"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond,
		"templates in new directories are watched")
	require.NoError(t, w.Close())
}

func TestWatcherCloseWithoutStart(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), NewBuildCache(), logr.Discard())
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}
