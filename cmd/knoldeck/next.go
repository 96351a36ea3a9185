package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newNextCmd() *cobra.Command {
	var showAnswer bool

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next card to review",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			out := cmd.OutOrStdout()
			if a.deck.SessionLimitReached() {
				fmt.Fprintln(out, "Session limit reached.")
			}
			c, err := a.deck.GetCard(ctx)
			if err != nil {
				return err
			}
			if c == nil {
				due, ok, err := a.deck.EarliestDue(ctx)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "The deck is empty.")
					return nil
				}
				fmt.Fprintf(out, "Nothing due. Next card in %s.\n", time.Until(due).Round(time.Minute))
				return nil
			}

			fmt.Fprintf(out, "Card %d (%s, %s)\n", c.ID, c.Type, c.Priority)
			fmt.Fprintf(out, "Q: %s\n", c.Question)
			if showAnswer {
				fmt.Fprintf(out, "A: %s\n", c.Answer)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&showAnswer, "show-answer", "a", false, "Also print the answer")
	return cmd
}
