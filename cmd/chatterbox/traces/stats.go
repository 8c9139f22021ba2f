package tracescmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatterbox/pkg/merkle"
)

const statsShortDesc string = "Summarise a trace database"

func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <database>",
		Short: statsShortDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), cmd, args[0])
		},
	}
}

func runStats(ctx context.Context, cmd *cobra.Command, path string) error {
	storer, err := merkle.NewSQLiteStorer(path)
	if err != nil {
		return fmt.Errorf("could not open database %s: %w", path, err)
	}
	defer storer.Close()

	nodes, err := storer.List(ctx)
	if err != nil {
		return err
	}
	roots, err := storer.Roots(ctx)
	if err != nil {
		return err
	}
	leaves, err := storer.Leaves(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d turns, %d conversations, %d branches\n",
		path, len(nodes), len(roots), len(leaves))
	return nil
}
