package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/domain"
)

var (
	newOrderNames = map[string]domain.NewCardOrder{
		"random":       domain.NewCardsRandom,
		"in-order":     domain.NewCardsInOrder,
		"newest-first": domain.NewCardsNewestFirst,
	}
	spacingNames = map[string]domain.NewCardSpacing{
		"distribute": domain.NewCardsDistribute,
		"last":       domain.NewCardsLast,
		"first":      domain.NewCardsFirst,
	}
	reviewOrderNames = map[string]domain.ReviewCardOrder{
		"oldest-interval": domain.ReviewOldestIntervalFirst,
		"newest-interval": domain.ReviewNewestIntervalFirst,
		"due":             domain.ReviewDueFirst,
		"random":          domain.ReviewRandom,
	}
)

func lookup[T any](kind, s string, names map[string]T) (T, error) {
	if v, ok := names[s]; ok {
		return v, nil
	}
	valid := make([]string, 0, len(names))
	for name := range names {
		valid = append(valid, name)
	}
	sort.Strings(valid)
	var zero T
	return zero, fmt.Errorf("invalid %s: %s (valid values: %s)", kind, s, strings.Join(valid, ", "))
}

func nameOf[T comparable](v T, names map[string]T) string {
	for name, x := range names {
		if x == v {
			return name
		}
	}
	return fmt.Sprint(v)
}

func newOrderCmd() *cobra.Command {
	var newOrder, spacing, reviewOrder string

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Show or change the order cards are drawn in",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("new") {
				o, err := lookup("new card order", newOrder, newOrderNames)
				if err != nil {
					return err
				}
				if err := a.deck.SetNewCardOrder(ctx, o); err != nil {
					return err
				}
			}
			if flags.Changed("spacing") {
				s, err := lookup("new card spacing", spacing, spacingNames)
				if err != nil {
					return err
				}
				if err := a.deck.SetNewCardSpacing(ctx, s); err != nil {
					return err
				}
			}
			if flags.Changed("review") {
				o, err := lookup("review order", reviewOrder, reviewOrderNames)
				if err != nil {
					return err
				}
				if err := a.deck.SetReviewCardOrder(ctx, o); err != nil {
					return err
				}
			}

			cfg := a.deck.Config()
			fmt.Fprintf(cmd.OutOrStdout(), "new: %s, spacing: %s, review: %s\n",
				nameOf(cfg.NewCardOrder, newOrderNames),
				nameOf(cfg.NewCardSpacing, spacingNames),
				nameOf(cfg.ReviewCardOrder, reviewOrderNames))
			return nil
		}),
	}

	cmd.Flags().StringVar(&newOrder, "new", "", "New card order: random, in-order or newest-first")
	cmd.Flags().StringVar(&spacing, "spacing", "", "New card spacing: distribute, last or first")
	cmd.Flags().StringVar(&reviewOrder, "review", "", "Review order: oldest-interval, newest-interval, due or random")
	return cmd
}
