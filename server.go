package dryml

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a Compiler over HTTP for inspecting generated source,
// build instructions and cache state.
type Server struct {
	compiler *Compiler
	gatherer prometheus.Gatherer
	opts     BuildOptions
	log      logr.Logger
	engine   *gin.Engine
}

// NewServer creates the inspection server. gatherer may be nil, in which
// case /metrics is not served.
func NewServer(c *Compiler, gatherer prometheus.Gatherer, opts BuildOptions, log logr.Logger) *Server {
	s := &Server{
		compiler: c,
		gatherer: gatherer,
		opts:     opts,
		log:      log.WithName("server"),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/compile/*path", s.compileFile)
	r.POST("/compile", s.compileSource)
	r.GET("/source/*path", s.generatedSource)
	r.GET("/cache", s.cacheStats)
	r.DELETE("/cache", s.clearCache)
	r.DELETE("/cache/*path", s.invalidate)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.V(1).Info("request", "method", c.Request.Method, "path", c.Request.URL.Path,
		"status", c.Writer.Status(), "duration", time.Since(start))
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// respond writes v as YAML when ?format=yaml is given, JSON otherwise.
func respond(c *gin.Context, status int, v any) {
	if c.Query("format") == "yaml" {
		c.YAML(status, v)
		return
	}
	c.JSON(status, v)
}

type errorResponse struct {
	Error string `json:"error" yaml:"error"`
	Kind  string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Path  string `json:"path,omitempty" yaml:"path,omitempty"`
	Line  int    `json:"line,omitempty" yaml:"line,omitempty"`
}

func (s *Server) fail(c *gin.Context, err error) {
	if ce, ok := AsCompileError(err); ok {
		respond(c, http.StatusUnprocessableEntity, errorResponse{
			Error: ce.Message,
			Kind:  errorKindLabel(ce),
			Path:  ce.Path,
			Line:  ce.Line,
		})
		return
	}
	status := http.StatusInternalServerError
	if errors.Is(err, context.Canceled) {
		status = http.StatusServiceUnavailable
	} else if errors.Is(err, fs.ErrNotExist) {
		status = http.StatusNotFound
	}
	respond(c, status, errorResponse{Error: err.Error()})
}

func (s *Server) compileFile(c *gin.Context) {
	res, err := s.compiler.CompileFile(c.Request.Context(), c.Param("path"), s.opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

// compileSource compiles the request body. ?path= sets the logical path
// and ?env=taglib compiles a tag library.
func (s *Server) compileSource(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respond(c, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	env := Page
	if c.Query("env") == TagLibrary.String() {
		env = TagLibrary
	}
	res, err := s.compiler.Compile(c.Request.Context(), Request{
		Source:      string(body),
		Environment: env,
		Path:        c.DefaultQuery("path", EmptyPage),
		LocalNames:  s.opts.LocalNames,
		AutoTaglibs: s.opts.AutoTaglibs,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (s *Server) generatedSource(c *gin.Context) {
	res, err := s.compiler.CompileFile(c.Request.Context(), c.Param("path"), s.opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Render(http.StatusOK, sourceRender{src: res.Source})
}

type cacheResponse struct {
	CacheStats `yaml:",inline"`
	Paths      []string `json:"paths" yaml:"paths"`
}

func (s *Server) cacheStats(c *gin.Context) {
	cache := s.compiler.Cache()
	paths := cache.Paths()
	sort.Strings(paths)
	respond(c, http.StatusOK, cacheResponse{CacheStats: cache.Stats(), Paths: paths})
}

func (s *Server) clearCache(c *gin.Context) {
	s.compiler.Cache().Clear()
	c.Status(http.StatusNoContent)
}

func (s *Server) invalidate(c *gin.Context) {
	if !s.compiler.Cache().Invalidate(s.compiler.normalizePath(c.Param("path"))) {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ render.Render = sourceRender{}

// sourceRender writes generated template source as plain text.
type sourceRender struct {
	src string
}

func (r sourceRender) Render(w http.ResponseWriter) error {
	r.WriteContentType(w)
	_, err := w.Write([]byte(r.src))
	return err
}

// WriteContentType sets a text content type if none is set yet.
func (r sourceRender) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{"text/plain; charset=utf-8"}
	}
}
