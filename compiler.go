package dryml

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// EmptyPage is the logical path of pages compiled from a string with no
// backing file. Such pages are always reparsed.
const EmptyPage = "[tag-page]"

// DefaultExtension is the file extension of DRYML sources.
const DefaultExtension = ".dryml"

// taglibSuffix marks sources compiled as tag libraries by CompileFile.
const taglibSuffix = ".taglib" + DefaultExtension

// ModTimeSource reports the modification time of a template path.
type ModTimeSource interface {
	ModTime(path string) (time.Time, bool)
}

// FSModTime reads modification times from a file system.
type FSModTime struct {
	FS fs.FS
}

// ModTime stats p in the file system.
func (s FSModTime) ModTime(p string) (time.Time, bool) {
	if s.FS == nil {
		return time.Time{}, false
	}
	info, err := fs.Stat(s.FS, fsPath(p))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// BuildOptions are passed through to the Builder on every compile.
type BuildOptions struct {
	LocalNames  []string
	AutoTaglibs []string
}

// Builder turns build instructions into executable definitions. It is
// called after each compile, whether or not the instructions were cached.
type Builder interface {
	Build(ctx context.Context, entry *CacheEntry, opts BuildOptions) error
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, entry *CacheEntry, opts BuildOptions) error

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context, entry *CacheEntry, opts BuildOptions) error {
	return f(ctx, entry, opts)
}

// Request is a single compile.
type Request struct {
	Source      string
	Environment Environment
	// Path is the template's path. A leading compiler root is stripped.
	Path        string
	LocalNames  []string
	AutoTaglibs []string
}

// Result is the outcome of a compile.
type Result struct {
	Path         string        `json:"path" yaml:"path"`
	Instructions []Instruction `json:"instructions" yaml:"instructions"`
	Modules      []ModuleRef   `json:"modules,omitempty" yaml:"modules,omitempty"`
	Source       string        `json:"source,omitempty" yaml:"source,omitempty"`
	FromCache    bool          `json:"fromCache" yaml:"fromCache"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
}

// Compiler compiles templates through a shared build cache.
type Compiler struct {
	root    string
	fsys    fs.FS
	cache   *BuildCache
	builder Builder
	tags    TagRegistry
	mtimes  ModTimeSource
	metrics *Metrics
	log     logr.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithRoot sets the prefix stripped from request paths.
func WithRoot(root string) Option {
	return func(c *Compiler) {
		c.root = filepath.ToSlash(root)
	}
}

// WithCache shares cache between compilers instead of creating one.
func WithCache(cache *BuildCache) Option {
	return func(c *Compiler) {
		c.cache = cache
	}
}

// WithBuilder sets the Builder run after every compile.
func WithBuilder(b Builder) Option {
	return func(c *Compiler) {
		c.builder = b
	}
}

// WithTagRegistry sets the registry of static markup tags.
func WithTagRegistry(r TagRegistry) Option {
	return func(c *Compiler) {
		c.tags = r
	}
}

// WithModTimeSource overrides where template modification times come from.
func WithModTimeSource(s ModTimeSource) Option {
	return func(c *Compiler) {
		c.mtimes = s
	}
}

// WithMetrics records compile metrics in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Compiler) {
		c.metrics = m
	}
}

// WithLogger sets the compiler logger.
func WithLogger(l logr.Logger) Option {
	return func(c *Compiler) {
		c.log = l
	}
}

// NewCompiler creates a compiler for the templates below dir.
func NewCompiler(dir string, opts ...Option) *Compiler {
	return NewCompilerFS(os.DirFS(dir), append([]Option{WithRoot(dir)}, opts...)...)
}

// NewCompilerFS creates a compiler reading templates and modification times
// from fsys.
func NewCompilerFS(fsys fs.FS, opts ...Option) *Compiler {
	c := &Compiler{
		fsys: fsys,
		log:  logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewBuildCache()
	}
	if c.tags == nil {
		c.tags = DefaultStaticTags()
	}
	if c.mtimes == nil {
		c.mtimes = FSModTime{FS: fsys}
	}
	return c
}

// Cache returns the build cache of the compiler.
func (c *Compiler) Cache() *BuildCache { return c.cache }

// Compile parses req unless the cache holds instructions at least as new as
// the template file, then hands them to the Builder.
func (c *Compiler) Compile(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := c.compile(ctx, req)
	d := time.Since(start)
	if c.metrics != nil {
		c.metrics.ObserveCompile(d, err == nil && res.FromCache, err)
	}
	if err != nil {
		c.log.Error(err, "compile failed", "path", c.normalizePath(req.Path))
		return nil, err
	}
	res.Duration = d
	c.log.Info("compiled", "path", res.Path, "fromCache", res.FromCache, "duration", d)
	return res, nil
}

func (c *Compiler) compile(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := c.normalizePath(req.Path)
	var mtime time.Time
	if p != EmptyPage {
		if t, ok := c.mtimes.ModTime(p); ok {
			mtime = t
		}
	}

	entry, cached, err := c.cache.Load(p, mtime, func() (*CacheEntry, error) {
		return c.parse(req.Source, req.Environment, p)
	})
	if err != nil {
		return nil, err
	}

	if c.builder != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		opts := BuildOptions{LocalNames: req.LocalNames, AutoTaglibs: req.AutoTaglibs}
		if err := c.builder.Build(ctx, entry, opts); err != nil {
			return nil, fmt.Errorf("build %s: %w", p, err)
		}
	}
	return &Result{
		Path:         p,
		Instructions: entry.Instructions,
		Modules:      entry.Modules,
		Source:       entry.Source,
		FromCache:    cached,
	}, nil
}

func (c *Compiler) parse(src string, env Environment, p string) (*CacheEntry, error) {
	t := NewTemplate(src, env, p, WithTags(c.tags), WithTemplateLogger(c.log))
	body, list, err := t.Process()
	if err != nil {
		return nil, err
	}
	return &CacheEntry{
		Instructions: list,
		Modules:      t.Modules(),
		Source:       body,
	}, nil
}

// CompileFile reads a template from the compiler's file system and compiles
// it. Files named *.taglib.dryml are compiled as tag libraries.
func (c *Compiler) CompileFile(ctx context.Context, name string, opts BuildOptions) (*Result, error) {
	p := c.normalizePath(name)
	raw, err := fs.ReadFile(c.fsys, fsPath(p))
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", p, err)
	}
	return c.Compile(ctx, Request{
		Source:      string(raw),
		Environment: EnvironmentFor(p),
		Path:        p,
		LocalNames:  opts.LocalNames,
		AutoTaglibs: opts.AutoTaglibs,
	})
}

// CompileAll compiles every DRYML file of the file system, stopping at the
// first error.
func (c *Compiler) CompileAll(ctx context.Context, opts BuildOptions) ([]*Result, error) {
	var results []*Result
	err := fs.WalkDir(c.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsTemplateFile(p) {
			return nil
		}
		res, err := c.CompileFile(ctx, "/"+p, opts)
		if err != nil {
			return err
		}
		results = append(results, res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// EnvironmentFor picks the environment a file is compiled in from its name.
func EnvironmentFor(name string) Environment {
	if strings.HasSuffix(strings.ToLower(name), taglibSuffix) {
		return TagLibrary
	}
	return Page
}

// ValidFileExtensions lists the extensions of DRYML sources.
var ValidFileExtensions = []string{DefaultExtension}

// IsTemplateFile reports whether name has a DRYML extension.
func IsTemplateFile(name string) bool {
	return slices.Contains(ValidFileExtensions, strings.ToLower(path.Ext(name)))
}

// normalizePath makes p relative to the compiler root, keeping a leading
// slash, so the same file always has the same cache key.
func (c *Compiler) normalizePath(p string) string {
	if p == "" || p == EmptyPage {
		return EmptyPage
	}
	p = filepath.ToSlash(p)
	if root := strings.TrimSuffix(c.root, "/"); root != "" && root != "." {
		if rest, ok := strings.CutPrefix(p, root); ok && (rest == "" || rest[0] == '/') {
			p = rest
		}
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func fsPath(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" {
		return "."
	}
	return p
}
