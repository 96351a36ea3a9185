package deck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

func TestSuspendTagBeatsBoostTag(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDeck(t, nil)

	card, err := d.AddCard(ctx, domain.Fact{Question: "Q"}, "boost", "leech")
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if err := d.SetTagPriority(ctx, "boost", domain.PriorityHigh); err != nil {
		t.Fatalf("SetTagPriority: %v", err)
	}
	got, _ := d.Card(ctx, card.ID)
	if got.Priority != domain.PriorityHigh || d.Counts().New != 1 {
		t.Fatalf("boosted card = %+v, counts %+v", got, d.Counts())
	}

	if err := d.UpdatePriorities(ctx, PriorityUpdate{SuspendTags: []string{"leech"}}); err != nil {
		t.Fatalf("UpdatePriorities: %v", err)
	}
	got, _ = d.Card(ctx, card.ID)
	if got.Priority != domain.PriorityNone {
		t.Errorf("Priority = %v, want none", got.Priority)
	}
	if got.IsDue {
		t.Error("expected due flag to be cleared")
	}
	if c := d.Counts(); c.New != 0 || c.NewToday != 0 {
		t.Errorf("counts = %+v, want no new cards", c)
	}
	if next, err := d.GetCard(ctx); err != nil || next != nil {
		t.Errorf("GetCard = %+v, %v; want none", next, err)
	}

	// Lifting the suspend tag brings the card back.
	if err := d.SetTagPriority(ctx, "leech", domain.PriorityLow); err != nil {
		t.Fatalf("SetTagPriority: %v", err)
	}
	got, _ = d.Card(ctx, card.ID)
	if got.Priority != domain.PriorityHigh || !got.IsDue || d.Counts().New != 1 {
		t.Errorf("card after lifting suspend = %+v, counts %+v", got, d.Counts())
	}
}

func TestUpdatePrioritiesTouch(t *testing.T) {
	ctx := context.Background()
	d, _, clk := newTestDeck(t, nil)

	card, err := d.AddCard(ctx, domain.Fact{Question: "Q"}, "slow")
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	clk.Advance(time.Hour)
	if err := d.SetTagPriority(ctx, "slow", domain.PriorityLow); err != nil {
		t.Fatalf("SetTagPriority: %v", err)
	}
	got, _ := d.Card(ctx, card.ID)
	if got.Priority != domain.PriorityLow {
		t.Errorf("Priority = %v, want low", got.Priority)
	}
	if got.Modified != card.Modified+3600 {
		t.Errorf("Modified = %v, want %v", got.Modified, card.Modified+3600)
	}
}

func TestSetTagPriorityRejectsNone(t *testing.T) {
	d, _, _ := newTestDeck(t, nil)
	err := d.SetTagPriority(context.Background(), "x", domain.PriorityNone)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestHoldVariants(t *testing.T) {
	testCases := []struct {
		hold  domain.Hold
		band  int
		shown bool
	}{
		{domain.HoldNone, int(domain.PriorityNormal), true},
		{domain.HoldSuspended, -3, false},
		{domain.HoldBuried, -2, false},
		{domain.HoldReviewedEarly, -1, false},
	}
	for _, tc := range testCases {
		t.Run(tc.hold.String(), func(t *testing.T) {
			ctx := context.Background()
			d, _, _ := newTestDeck(t, nil)
			card, err := d.AddCard(ctx, domain.Fact{Question: "Q"})
			if err != nil {
				t.Fatalf("AddCard: %v", err)
			}

			if tc.hold != domain.HoldNone {
				if err := d.SetHold(ctx, tc.hold, card.ID); err != nil {
					t.Fatalf("SetHold: %v", err)
				}
			}
			stored, _ := d.Card(ctx, card.ID)
			if stored.Hold != tc.hold || stored.Band() != tc.band {
				t.Errorf("hold = %v band = %d, want %v %d", stored.Hold, stored.Band(), tc.hold, tc.band)
			}
			if stored.Type != domain.New || stored.Priority != domain.PriorityNormal {
				t.Errorf("hold must not touch type or priority: %+v", stored)
			}

			next, err := d.GetCard(ctx)
			if err != nil {
				t.Fatalf("GetCard: %v", err)
			}
			if shown := next != nil; shown != tc.shown {
				t.Errorf("card shown = %v, want %v", shown, tc.shown)
			}
			if !tc.shown && d.Counts().New != 0 {
				t.Errorf("held card still counted: %+v", d.Counts())
			}

			if tc.hold == domain.HoldNone {
				return
			}
			if err := d.ReleaseHold(ctx, tc.hold, card.ID); err != nil {
				t.Fatalf("ReleaseHold: %v", err)
			}
			if next, _ := d.GetCard(ctx); next == nil || next.ID != card.ID {
				t.Errorf("released card not shown, got %+v", next)
			}
			if d.Counts().New != 1 {
				t.Errorf("released card not counted: %+v", d.Counts())
			}
		})
	}
}

func TestReleaseOnlyMatchingHold(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDeck(t, nil)
	card, _ := d.AddCard(ctx, domain.Fact{Question: "Q"})

	if err := d.Suspend(ctx, card.ID); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if err := d.Unbury(ctx, card.ID); err != nil {
		t.Fatalf("Unbury: %v", err)
	}
	if got, _ := d.Card(ctx, card.ID); got.Hold != domain.HoldSuspended {
		t.Errorf("Unbury released a suspended card: %+v", got)
	}
	if err := d.Unsuspend(ctx, card.ID); err != nil {
		t.Fatalf("Unsuspend: %v", err)
	}
	if got, _ := d.Card(ctx, card.ID); got.Hold != domain.HoldNone || !got.IsDue {
		t.Errorf("card after Unsuspend = %+v", got)
	}
}

func TestSuspensionKeepsSchedule(t *testing.T) {
	ctx := context.Background()
	d, _, clk := newTestDeck(t, nil)
	card, _ := d.AddCard(ctx, domain.Fact{Question: "Q"})
	shown, _ := d.GetCard(ctx)
	if err := d.AnswerCard(ctx, shown, domain.Good); err != nil {
		t.Fatalf("AnswerCard: %v", err)
	}
	if err := d.Suspend(ctx, card.ID); err != nil {
		t.Fatalf("Suspend: %v", err)
	}

	// Long past due when it comes back; no catch-up logic applies.
	clk.Advance(90 * 24 * time.Hour)
	if err := d.CheckDue(ctx); err != nil {
		t.Fatalf("CheckDue: %v", err)
	}
	if d.Counts().Review != 0 {
		t.Fatalf("suspended card counted: %+v", d.Counts())
	}
	if err := d.Unsuspend(ctx, card.ID); err != nil {
		t.Fatalf("Unsuspend: %v", err)
	}
	got, _ := d.Card(ctx, card.ID)
	if got.Type != domain.Review || got.Interval != shown.Interval || !got.IsDue {
		t.Errorf("card after Unsuspend = %+v", got)
	}
	if d.Counts().Review != 1 {
		t.Errorf("Review = %d, want 1", d.Counts().Review)
	}
}

func TestBuriedCardsReturnNextDay(t *testing.T) {
	ctx := context.Background()
	d, _, clk := newTestDeck(t, nil)
	card, _ := d.AddCard(ctx, domain.Fact{Question: "Q"})

	if err := d.Bury(ctx, card.ID); err != nil {
		t.Fatalf("Bury: %v", err)
	}
	clk.Advance(time.Hour)
	if next, _ := d.GetCard(ctx); next != nil {
		t.Fatalf("buried card shown the same day: %+v", next)
	}

	clk.Advance(24 * time.Hour)
	next, err := d.GetCard(ctx)
	if err != nil || next == nil || next.ID != card.ID {
		t.Errorf("GetCard next day = %+v, %v; want card %d", next, err, card.ID)
	}
}
