package command

import (
	"github.com/spf13/cobra"
)

func NewVersionCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  MaxArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			cli.Printf("drymlc %s\n", Version)
		},
	}
}
