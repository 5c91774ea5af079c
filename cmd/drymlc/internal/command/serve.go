package command

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/dangdungcntt/go-dryml"
	"github.com/dangdungcntt/go-dryml/cmd/drymlc/internal/view"
)

type serveOptions struct {
	root  string
	addr  string
	watch bool
}

func NewServeCommand(cli *CLI) *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve compile results, cache state and metrics over HTTP",
		Long: view.Highlight("drymlc serve") + "\n\n" +
			"Start an HTTP server that compiles templates on request:\n\n" +
			"  GET    /compile/<path>   build instructions of a template\n" +
			"  POST   /compile          compile the request body\n" +
			"  GET    /source/<path>    generated source of a template\n" +
			"  GET    /cache            cache statistics\n" +
			"  DELETE /cache[/<path>]   clear the cache or drop one entry\n" +
			"  GET    /metrics          prometheus metrics\n",
		Args: MaxArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cli.Config
			root := opts.root
			if root == "" {
				root = cfg.Root
			}
			addr := opts.addr
			if addr == "" {
				addr = cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics := dryml.NewMetrics()
			metrics.MustRegister(registry)

			cache := dryml.NewBuildCache()
			compiler := dryml.NewCompiler(root,
				dryml.WithCache(cache),
				dryml.WithMetrics(metrics),
				dryml.WithTagRegistry(cfg.TagRegistry()),
				dryml.WithLogger(cli.Logger),
			)

			if opts.watch || cfg.Watch {
				w, err := dryml.NewWatcher(root, cache, cli.Logger)
				if err != nil {
					return err
				}
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer w.Close()
			}

			if cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			return dryml.NewServer(compiler, registry, cfg.BuildOptions(), cli.Logger).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&opts.root, "root", "", "Template root (overrides the config)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides the config)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Drop cache entries when template files change")
	return cmd
}
