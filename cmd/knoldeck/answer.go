package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/domain"
)

var easeNames = map[string]domain.Ease{
	"again": domain.Again,
	"hard":  domain.Hard,
	"good":  domain.Good,
	"easy":  domain.Easy,
}

func parseEase(s string) (domain.Ease, error) {
	if e, ok := easeNames[strings.ToLower(s)]; ok {
		return e, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || !domain.Ease(n).IsValid() {
		return 0, fmt.Errorf("invalid ease: %s (valid values: 1-4, again, hard, good, easy)", s)
	}
	return domain.Ease(n), nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid card id: %s", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newAnswerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "answer <card-id> <ease>",
		Short: "Grade a card and reschedule it",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := parseEase(args[1])
			if err != nil {
				return err
			}

			c, err := a.deck.Card(ctx, id)
			if err != nil {
				return err
			}
			if err := a.deck.AnswerCard(ctx, c, e); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Card %d is %s, next due %s (interval %.2f days, factor %.2f).\n",
				c.ID, c.Type, formatSeconds(c.Due), c.Interval, c.Factor)
			return nil
		}),
	}
}
