package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/deck"
)

type holdFunc func(d *deck.Deck, ctx context.Context, ids ...int64) error

func newHoldCmd(name, short string, fn holdFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <card-id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := fn(a.deck, ctx, ids...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d card(s).\n", name, len(ids))
			return nil
		}),
	}
}
