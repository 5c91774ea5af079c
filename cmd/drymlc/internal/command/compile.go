package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dangdungcntt/go-dryml"
	"github.com/dangdungcntt/go-dryml/cmd/drymlc/internal/view"
)

// reportedError is an error already printed to the user.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error { return e.error }

func errorReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

type compileOptions struct {
	root   string
	taglib bool
	source bool
}

func NewCompileCommand(cli *CLI) *cobra.Command {
	var opts compileOptions
	cmd := &cobra.Command{
		Use:   "compile [template...]",
		Short: "Compile templates and print their build instructions",
		Long: view.Highlight("drymlc compile") + "\n\n" +
			"Compile the given templates, named relative to the template root.\n" +
			"Without arguments every .dryml file below the root is compiled.\n" +
			"Files named *.taglib.dryml are compiled as tag libraries.\n",
		Example: "  drymlc compile pages/home.dryml --source\n  drymlc compile -o yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), cli, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.root, "root", "", "Template root (overrides the config)")
	cmd.Flags().BoolVar(&opts.taglib, "taglib", false, "Compile the given templates as tag libraries")
	cmd.Flags().BoolVar(&opts.source, "source", false, "Include the generated source")
	return cmd
}

func runCompile(ctx context.Context, cli *CLI, opts compileOptions, args []string) error {
	root := opts.root
	if root == "" {
		root = cli.Config.Root
	}
	compiler := dryml.NewCompiler(root,
		dryml.WithTagRegistry(cli.Config.TagRegistry()),
		dryml.WithLogger(cli.Logger),
	)
	buildOpts := cli.Config.BuildOptions()

	var results []*dryml.Result
	if len(args) == 0 {
		all, err := compiler.CompileAll(ctx, buildOpts)
		if err != nil {
			return report(cli, root, err)
		}
		results = all
	}
	for _, name := range args {
		res, err := compileOne(ctx, compiler, root, name, opts.taglib, buildOpts)
		if err != nil {
			return report(cli, root, err)
		}
		results = append(results, res)
	}
	return view.PrintResults(cli.Out, cli.Output, results, opts.source)
}

func compileOne(ctx context.Context, c *dryml.Compiler, root, name string, taglib bool, opts dryml.BuildOptions) (*dryml.Result, error) {
	if !taglib {
		return c.CompileFile(ctx, name, opts)
	}
	raw, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}
	return c.Compile(ctx, dryml.Request{
		Source:      string(raw),
		Environment: dryml.TagLibrary,
		Path:        name,
		LocalNames:  opts.LocalNames,
		AutoTaglibs: opts.AutoTaglibs,
	})
}

// report prints err with the offending source lines and marks it printed.
func report(cli *CLI, root string, err error) error {
	var source string
	if ce, ok := dryml.AsCompileError(err); ok && ce.Path != dryml.EmptyPage {
		if raw, readErr := os.ReadFile(filepath.Join(root, filepath.FromSlash(ce.Path))); readErr == nil {
			source = string(raw)
		}
	}
	view.PrintError(cli.Err, err, source)
	return reportedError{err}
}
