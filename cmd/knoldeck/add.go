package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/domain"
)

func newAddCmd() *cobra.Command {
	var (
		tags   []string
		factID int64
	)

	cmd := &cobra.Command{
		Use:   "add <question> <answer>",
		Short: "Add a new card",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			c, err := a.deck.AddCard(ctx, domain.Fact{ID: factID, Question: args[0], Answer: args[1]}, tags...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added card %d (priority %s).\n", c.ID, c.Priority)
			return nil
		}),
	}

	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag to attach (repeatable)")
	cmd.Flags().Int64Var(&factID, "fact", 0, "Existing fact the card belongs to")
	return cmd
}
