package command

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dangdungcntt/go-dryml/cmd/drymlc/internal/view"
)

// Version is set at build time with -ldflags "-X ...command.Version=v1.2.3".
var Version = "dev"

type rootOptions struct {
	config string
	output string
	debug  bool
}

func NewRootCommand(cli *CLI) *cobra.Command {
	var opts rootOptions
	cmd := &cobra.Command{
		Use:   "drymlc",
		Short: "Compile DRYML templates into ERB source and build instructions",
		Long: view.Highlight("Usage: drymlc [global options] <subcommand> [args]") + "\n\n" +
			"drymlc compiles DRYML tag markup into ERB source plus the build\n" +
			"instructions (definitions, parts, includes) a runtime needs to load\n" +
			"a template. It can also serve compile results over HTTP.\n",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.configure(opts.config, opts.output, opts.debug, os.Getenv)
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "Output format. One of: (json | yaml)")
	cmd.PersistentFlags().StringVarP(&opts.config, "config", "c", "", "Config file (default $DRYML_CONFIG or ./dryml.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Set log level to debug")
	cmd.SetVersionTemplate("{{.Version}}\n")
	setUsageTemplate(cmd)

	AddCommands(cmd, cli)
	return cmd
}

func setUsageTemplate(cmd *cobra.Command) {
	cobra.AddTemplateFunc("StyleHeading", color.RGB(50, 108, 229).SprintFunc())
	usageTemplate := strings.NewReplacer(
		`Usage:`, `{{StyleHeading "Usage:"}}`,
		`Examples:`, `{{StyleHeading "Examples:"}}`,
		`Available Commands:`, `{{StyleHeading "Available Commands:"}}`,
		`Flags:`, `{{StyleHeading "Options:"}}`,
		`Global Flags:`, `{{StyleHeading "Global Options:"}}`,
	).Replace(cmd.UsageTemplate())
	cmd.SetUsageTemplate(usageTemplate)
}

// AddCommands registers all subcommands to the root command.
func AddCommands(root *cobra.Command, cli *CLI) {
	root.AddCommand(
		NewCompileCommand(cli),
		NewServeCommand(cli),
		NewVersionCommand(cli),
	)
}

func Execute() {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		color.NoColor = true
	}

	cli := NewCLI(os.Stdout, os.Stderr)
	if err := NewRootCommand(cli).Execute(); err != nil {
		if !errorReported(err) {
			view.PrintError(cli.Err, err, "")
		}
		os.Exit(1)
	}
}
