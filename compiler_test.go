package dryml

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	homePage = `<include src="taglibs/app"/><card title="Home"/>`
	appLib   = `<def tag="card" attrs="title"><h1><%= title %></h1></def>`
)

func testFS(mtime time.Time) fstest.MapFS {
	return fstest.MapFS{
		"pages/home.dryml":           {Data: []byte(homePage), ModTime: mtime},
		"taglibs/app.taglib.dryml":   {Data: []byte(appLib), ModTime: mtime},
		"pages/broken.dryml.example": {Data: []byte("<tagbody/>"), ModTime: mtime},
	}
}

type recordingBuilder struct {
	entries []*CacheEntry
	opts    []BuildOptions
	err     error
}

func (b *recordingBuilder) Build(_ context.Context, e *CacheEntry, opts BuildOptions) error {
	b.entries = append(b.entries, e)
	b.opts = append(b.opts, opts)
	return b.err
}

func TestCompilerCompileFile(t *testing.T) {
	fsys := testFS(time.Unix(1700000000, 0))
	builder := &recordingBuilder{}
	c := NewCompilerFS(fsys, WithBuilder(builder))
	opts := BuildOptions{LocalNames: []string{"user"}}

	res, err := c.CompileFile(context.Background(), "pages/home.dryml", opts)
	require.NoError(t, err)
	assert.Equal(t, "/pages/home.dryml", res.Path)
	assert.False(t, res.FromCache)
	require.Len(t, res.Instructions, 2)
	assert.Equal(t, Instruction{Kind: Include, Name: "taglibs/app"}, res.Instructions[0])
	assert.Equal(t, RenderPage, res.Instructions[1].Kind)
	assert.Equal(t, `<%= card({:title => "Home"}) %>`, res.Source)

	res, err = c.CompileFile(context.Background(), "/pages/home.dryml", opts)
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	require.Len(t, builder.entries, 2, "the builder runs on every compile")
	assert.Equal(t, "/pages/home.dryml", builder.entries[1].Path)
	assert.Equal(t, opts, builder.opts[1])
}

func TestCompilerReparsesNewerFile(t *testing.T) {
	mtime := time.Unix(1700000000, 0)
	fsys := testFS(mtime)
	c := NewCompilerFS(fsys)

	_, err := c.CompileFile(context.Background(), "pages/home.dryml", BuildOptions{})
	require.NoError(t, err)

	fsys["pages/home.dryml"] = &fstest.MapFile{Data: []byte(`<p>changed</p>`), ModTime: mtime.Add(time.Minute)}
	res, err := c.CompileFile(context.Background(), "pages/home.dryml", BuildOptions{})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, "<p>changed</p>", res.Source)
}

func TestCompilerTagLibraryEnvironment(t *testing.T) {
	c := NewCompilerFS(testFS(time.Now()))

	res, err := c.CompileFile(context.Background(), "taglibs/app.taglib.dryml", BuildOptions{})
	require.NoError(t, err)
	require.Len(t, res.Instructions, 1)
	assert.Equal(t, Def, res.Instructions[0].Kind)
	assert.Equal(t, "card", res.Instructions[0].Name)
}

func TestCompilerEmptyPageIsNeverCached(t *testing.T) {
	c := NewCompilerFS(testFS(time.Now()))
	req := Request{Source: `<p/>`, Environment: Page}

	for range 2 {
		res, err := c.Compile(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, EmptyPage, res.Path)
		assert.False(t, res.FromCache)
	}
}

func TestCompilerStripsRoot(t *testing.T) {
	c := NewCompilerFS(testFS(time.Now()), WithRoot("/srv/app/"))

	res, err := c.Compile(context.Background(), Request{Source: homePage, Environment: Page, Path: "/srv/app/pages/home.dryml"})
	require.NoError(t, err)
	assert.Equal(t, "/pages/home.dryml", res.Path)

	res, err = c.Compile(context.Background(), Request{Source: homePage, Environment: Page, Path: "pages/../pages/home.dryml"})
	require.NoError(t, err)
	assert.Equal(t, "/pages/home.dryml", res.Path)
	assert.True(t, res.FromCache)
}

func TestCompilerStripsRootAtPathBoundary(t *testing.T) {
	c := NewCompilerFS(testFS(time.Now()), WithRoot("/srv/views"))

	assert.Equal(t, "/a.dryml", c.normalizePath("/srv/views/a.dryml"))
	assert.Equal(t, "/srv/viewsold/a.dryml", c.normalizePath("/srv/viewsold/a.dryml"))
	assert.Equal(t, "/", c.normalizePath("/srv/views"))
}

func TestCompilerErrors(t *testing.T) {
	metrics := NewMetrics()
	c := NewCompilerFS(testFS(time.Now()), WithMetrics(metrics))

	_, err := c.Compile(context.Background(), Request{Source: "<p>\n<tagbody/></p>", Environment: Page, Path: "/pages/home.dryml"})
	require.ErrorIs(t, err, ErrPlacement)
	ce, ok := AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, "/pages/home.dryml", ce.Path)
	assert.Equal(t, 2, ce.Line)
	assert.Equal(t, 0, c.Cache().Len(), "failed compiles are not cached")

	_, err = c.CompileFile(context.Background(), "pages/missing.dryml", BuildOptions{})
	require.ErrorIs(t, err, fs.ErrNotExist)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.errors.WithLabelValues("placement")))
}

func TestCompilerBuilderError(t *testing.T) {
	boom := errors.New("boom")
	c := NewCompilerFS(testFS(time.Now()), WithBuilder(&recordingBuilder{err: boom}))

	_, err := c.CompileFile(context.Background(), "pages/home.dryml", BuildOptions{})
	require.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "build /pages/home.dryml: boom")
	assert.Equal(t, 1, c.Cache().Len(), "instructions stay cached when the builder fails")
}

func TestCompilerCanceledContext(t *testing.T) {
	c := NewCompilerFS(testFS(time.Now()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CompileFile(ctx, "pages/home.dryml", BuildOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompilerMetrics(t *testing.T) {
	metrics := NewMetrics()
	c := NewCompilerFS(testFS(time.Now()), WithMetrics(metrics))

	for range 3 {
		_, err := c.CompileFile(context.Background(), "pages/home.dryml", BuildOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.compiles.WithLabelValues("parse")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.compiles.WithLabelValues("cache")))
}

func TestCompilerCompileAll(t *testing.T) {
	c := NewCompilerFS(testFS(time.Now()))

	results, err := c.CompileAll(context.Background(), BuildOptions{})
	require.NoError(t, err)
	var paths []string
	for _, r := range results {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{"/pages/home.dryml", "/taglibs/app.taglib.dryml"}, paths)
}

func TestEnvironmentFor(t *testing.T) {
	assert.Equal(t, TagLibrary, EnvironmentFor("/taglibs/app.taglib.dryml"))
	assert.Equal(t, Page, EnvironmentFor("/pages/home.dryml"))
	assert.True(t, IsTemplateFile("a/b.DRYML"))
	assert.False(t, IsTemplateFile("a/b.dryml.example"))
}

func TestFSModTime(t *testing.T) {
	mtime := time.Unix(1700000000, 0)
	src := FSModTime{FS: testFS(mtime)}

	got, ok := src.ModTime("/pages/home.dryml")
	require.True(t, ok)
	assert.True(t, mtime.Equal(got))

	_, ok = src.ModTime("/nope.dryml")
	assert.False(t, ok)
	_, ok = FSModTime{}.ModTime("/pages/home.dryml")
	assert.False(t, ok)
}
