package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/domain"
)

type statusOutput struct {
	Counts   domain.Counts `json:"counts"`
	Today    domain.Stats  `json:"today"`
	Lifetime domain.Stats  `json:"lifetime"`
	NextDue  *time.Time    `json:"nextDue,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue counters and review statistics",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			out := statusOutput{
				Counts:   a.deck.Counts(),
				Today:    a.deck.DailyStats(),
				Lifetime: a.deck.LifetimeStats(),
			}
			due, ok, err := a.deck.EarliestDue(ctx)
			if err != nil {
				return err
			}
			if ok {
				out.NextDue = &due
			}

			switch format {
			case "json":
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(out)
			case "table":
				statusTable(cmd, out)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		}),
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

func statusTable(cmd *cobra.Command, out statusOutput) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	c := out.Counts
	t.AppendHeader(table.Row{"Queue", "Cards"})
	t.AppendRow(table.Row{"Failed (now)", c.FailedNow})
	t.AppendRow(table.Row{"Failed (soon)", c.FailedSoon})
	t.AppendRow(table.Row{"Review", c.Review})
	t.AppendRow(table.Row{"New today", fmt.Sprintf("%d of %d", c.NewToday, c.New)})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Cards / facts", fmt.Sprintf("%d / %d", c.CardCount, c.FactCount)})
	t.AppendRow(table.Row{"Average factor", fmt.Sprintf("%.2f", c.AverageFactor)})
	t.AppendRow(table.Row{"Reps today", out.Today.Reps})
	t.AppendRow(table.Row{"Reps total", out.Lifetime.Reps})
	if out.Lifetime.Reps > 0 {
		t.AppendRow(table.Row{"Average answer time", fmt.Sprintf("%.1fs", out.Lifetime.AverageTime)})
	}
	if out.NextDue != nil {
		t.AppendRow(table.Row{"Next due", out.NextDue.Local().Format("2006-01-02 15:04")})
	}
	t.Render()
}
