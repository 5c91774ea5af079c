package command

import (
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/dangdungcntt/go-dryml"
	"github.com/dangdungcntt/go-dryml/cmd/drymlc/internal/view"
)

// CLI holds the state shared by all subcommands. It is configured from the
// global flags before a subcommand runs.
type CLI struct {
	Out    io.Writer
	Err    io.Writer
	Config *dryml.Config
	Output view.OutputFormat
	Logger logr.Logger
}

func NewCLI(out, errOut io.Writer) *CLI {
	return &CLI{
		Out:    out,
		Err:    errOut,
		Config: dryml.Defaults(),
		Logger: logr.Discard(),
	}
}

func (c *CLI) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// configure loads the config file and builds the logger.
func (c *CLI) configure(configPath, output string, debug bool, getenv func(string) string) error {
	format, err := view.ParseOutputFormat(output)
	if err != nil {
		return err
	}
	c.Output = format

	cfg, err := dryml.LoadConfig(configPath, getenv)
	if err != nil {
		return err
	}
	c.Config = cfg

	level, err := view.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if debug {
		level = view.LogLevelDebug
	}
	c.Logger = view.NewLogger(c.Err, cfg.Log.Format, level)
	return nil
}

// MaxArgs returns an error if there are more than the max number of args.
func MaxArgs(number int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) <= number {
			return nil
		}
		return fmt.Errorf("expected at most %d arguments, got %d", number, len(args))
	}
}
