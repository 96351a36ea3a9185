package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/domain"
)

func newLimitsCmd() *cobra.Command {
	var (
		newPerDay   int
		failedMax   int
		sessionReps int
		sessionTime time.Duration
		collapse    time.Duration
		dayStart    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "limits",
		Short: "Show or change the daily and session limits",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			flags := cmd.Flags()
			cfg := a.deck.Config()
			if flags.Changed("new-per-day") {
				if err := a.deck.SetNewCardsPerDay(ctx, newPerDay); err != nil {
					return err
				}
			}
			if flags.Changed("failed-max") {
				if err := a.deck.SetFailedCardMax(ctx, failedMax); err != nil {
					return err
				}
			}
			if flags.Changed("session-reps") || flags.Changed("session-time") {
				reps, secs := cfg.SessionRepLimit, cfg.SessionTimeLimit
				if flags.Changed("session-reps") {
					reps = sessionReps
				}
				if flags.Changed("session-time") {
					secs = sessionTime.Seconds()
				}
				if err := a.deck.SetSessionLimits(ctx, reps, secs); err != nil {
					return err
				}
			}
			if flags.Changed("collapse") {
				if err := a.deck.SetCollapseTime(ctx, collapse.Seconds()); err != nil {
					return err
				}
			}
			if flags.Changed("day-start") {
				if err := a.deck.SetUTCOffset(ctx, int(dayStart.Seconds())); err != nil {
					return err
				}
			}

			limitsTable(cmd, a.deck.Config(), a.deck.Counts())
			return nil
		}),
	}

	flags := cmd.Flags()
	flags.IntVar(&newPerDay, "new-per-day", 0, "New cards introduced per day")
	flags.IntVar(&failedMax, "failed-max", 0, "Failed cards allowed to pile up before they are forced (0 disables)")
	flags.IntVar(&sessionReps, "session-reps", 0, "Reps per session (0 disables)")
	flags.DurationVar(&sessionTime, "session-time", 0, "Session length (0 disables)")
	flags.DurationVar(&collapse, "collapse", 0, "How far ahead failed cards may be shown when nothing else is due")
	flags.DurationVar(&dayStart, "day-start", 0, "Start of the deck day after UTC midnight")
	return cmd
}

func limitsTable(cmd *cobra.Command, cfg domain.DeckConfig, c domain.Counts) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Setting", "Value"})
	t.AppendRow(table.Row{"New cards per day", fmt.Sprintf("%d (%d left today)", cfg.NewCardsPerDay, c.NewToday)})
	t.AppendRow(table.Row{"Failed card max", cfg.FailedCardMax})
	t.AppendRow(table.Row{"Session reps", cfg.SessionRepLimit})
	t.AppendRow(table.Row{"Session time", seconds(cfg.SessionTimeLimit)})
	t.AppendRow(table.Row{"Collapse time", seconds(cfg.CollapseTime)})
	t.AppendRow(table.Row{"Day starts", seconds(float64(cfg.UTCOffset)).String() + " after UTC midnight"})
	t.Render()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
