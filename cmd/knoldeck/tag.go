package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/domain"
)

func newTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <card-id> <tag>...",
		Short: "Attach tags to a card",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.deck.TagCard(ctx, id, args[1:]...); err != nil {
				return err
			}
			c, err := a.deck.Card(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Card %d now has priority %s.\n", c.ID, c.Priority)
			return nil
		}),
	}
}

func newTagPriorityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag-priority <tag> <suspended|low|normal|medium|high>",
		Short: "Set the priority carried by a tag",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			p, err := domain.ParsePriority(strings.ToLower(args[1]))
			if err != nil {
				return err
			}
			if err := a.deck.SetTagPriority(ctx, args[0], p); err != nil {
				return err
			}
			c := a.deck.Counts()
			fmt.Fprintf(cmd.OutOrStdout(), "Tag %s set to %s. Due now: %d review, %d new, %d failed.\n",
				args[0], p, c.Review, c.NewToday, c.FailedNow)
			return nil
		}),
	}
}
