package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <card-id>",
		Short: "Show a card with its tags and review history",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.deck.Card(ctx, id)
			if err != nil {
				return err
			}
			tags, err := a.deck.CardTags(ctx, id)
			if err != nil {
				return err
			}
			history, err := a.deck.History(ctx, id)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(tags))
			for _, tag := range tags {
				names = append(names, fmt.Sprintf("%s (%s)", tag.Name, tag.Priority))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Card %d, fact %d\n", c.ID, c.FactID)
			fmt.Fprintf(out, "Q: %s\nA: %s\n", c.Question, c.Answer)
			fmt.Fprintf(out, "Type %s, priority %s, %s\n", c.Type, c.Priority, c.Hold)
			fmt.Fprintf(out, "Due %s, interval %.2f days, factor %.2f, reps %d\n",
				formatSeconds(c.Due), c.Interval, c.Factor, c.Reps)
			if len(names) > 0 {
				fmt.Fprintf(out, "Tags: %s\n", strings.Join(names, ", "))
			}
			if len(history) == 0 {
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Answered", "Ease", "Delay", "Interval", "Factor", "Time"})
			for _, r := range history {
				t.AppendRow(table.Row{
					formatSeconds(r.Time),
					int(r.Ease),
					fmt.Sprintf("%.2f", r.Delay),
					fmt.Sprintf("%.2f -> %.2f", r.LastInterval, r.NextInterval),
					fmt.Sprintf("%.2f", r.NextFactor),
					fmt.Sprintf("%.1fs", r.ThinkingTime),
				})
			}
			t.Render()
			return nil
		}),
	}
}

func formatSeconds(s float64) string {
	return time.Unix(0, int64(s*float64(time.Second))).Local().Format("2006-01-02 15:04")
}
