package tracescmder

import (
	"github.com/spf13/cobra"
)

const tracesShortDesc string = "Work with traced run databases"

// NewTracesCmd groups the trace database subcommands.
func NewTracesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "traces",
		Short: tracesShortDesc,
	}

	cmd.AddCommand(NewMergeCmd())
	cmd.AddCommand(NewStatsCmd())

	return cmd
}
