package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the cached counters against the cards and repair them",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			ok, err := a.deck.Verify(ctx)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Counters are consistent.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Counters were inconsistent and have been rebuilt.")
			return nil
		}),
	}
}
