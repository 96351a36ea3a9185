package deck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/spacing"
)

func TestGetCardEmptyQueue(t *testing.T) {
	d, _, _ := newTestDeck(t, nil)
	c, err := d.GetCard(context.Background())
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if c != nil {
		t.Errorf("expected no card, got %+v", c)
	}
}

func TestAnswerCardRejectsInvalidEase(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDeck(t, nil)
	card, err := d.AddCard(ctx, domain.Fact{Question: "Q"})
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	for _, e := range []domain.Ease{0, 5, -1} {
		if err := d.AnswerCard(ctx, card, e); !errors.Is(err, ErrInvalidEase) {
			t.Errorf("AnswerCard(%d) error = %v, want ErrInvalidEase", e, err)
		}
	}
	if err := d.AnswerCard(ctx, &domain.Card{ID: 999}, domain.Good); !errors.Is(err, ErrCardNotFound) {
		t.Errorf("AnswerCard(unknown) error = %v, want ErrCardNotFound", err)
	}
}

func TestNewCardModulusInterleaves(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	past := spacing.Seconds(t0) - domain.SecondsPerDay
	for i := 0; i < 10; i++ {
		seedCard(t, db, domain.Card{Type: domain.New, Due: past})
	}
	for i := 0; i < 5; i++ {
		seedCard(t, db, domain.Card{Type: domain.Review, Interval: float64(i + 1), Due: past, Successive: 1})
	}
	d := openDeck(t, db, &testClock{t: t0}, nil)

	c := d.Counts()
	if c.NewToday != 10 || c.Review != 5 {
		t.Fatalf("counts = %+v", c)
	}
	if c.NewCardModulus != 2 {
		t.Errorf("NewCardModulus = %d, want 2", c.NewCardModulus)
	}

	// Reps 0 draws a new card, rep 1 a review card.
	var got []domain.CardType
	for i := 0; i < 4; i++ {
		card, err := d.GetCard(ctx)
		if err != nil || card == nil {
			t.Fatalf("GetCard #%d = %v, %v", i, card, err)
		}
		got = append(got, card.Type)
		if err := d.AnswerCard(ctx, card, domain.Good); err != nil {
			t.Fatalf("AnswerCard: %v", err)
		}
	}
	want := []domain.CardType{domain.New, domain.Review, domain.New, domain.Review}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("draw order = %v, want %v", got, want)
		}
	}
}

func TestHighPriorityReviewHoldsBackNewCards(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	past := spacing.Seconds(t0) - 10
	seedCard(t, db, domain.Card{Type: domain.New, Due: past})
	rev := seedCard(t, db, domain.Card{Type: domain.Review, Interval: 3, Due: past, Successive: 1})
	if err := db.TagCard(ctx, rev.ID, "urgent"); err != nil {
		t.Fatalf("TagCard: %v", err)
	}
	if err := db.SetTagPriority(ctx, "urgent", domain.PriorityHigh); err != nil {
		t.Fatalf("SetTagPriority: %v", err)
	}
	d := openDeck(t, db, &testClock{t: t0}, nil)

	card, err := d.GetCard(ctx)
	if err != nil || card == nil {
		t.Fatalf("GetCard = %v, %v", card, err)
	}
	if card.ID != rev.ID || card.Priority != domain.PriorityHigh {
		t.Errorf("expected high priority review %d first, got %+v", rev.ID, card)
	}
}

func TestNewCardSpacing(t *testing.T) {
	testCases := []struct {
		name    string
		spacing domain.NewCardSpacing
		want    domain.CardType
	}{
		{"first", domain.NewCardsFirst, domain.New},
		{"last", domain.NewCardsLast, domain.Review},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := openTestStore(t)
			past := spacing.Seconds(t0) - 10
			seedCard(t, db, domain.Card{Type: domain.New, Due: past})
			seedCard(t, db, domain.Card{Type: domain.Review, Interval: 3, Due: past, Successive: 1})
			cfg := domain.DefaultDeckConfig()
			cfg.NewCardSpacing = tc.spacing
			d := openDeck(t, db, &testClock{t: t0}, &cfg)

			card, err := d.GetCard(context.Background())
			if err != nil || card == nil {
				t.Fatalf("GetCard = %v, %v", card, err)
			}
			if card.Type != tc.want {
				t.Errorf("Type = %v, want %v", card.Type, tc.want)
			}
		})
	}
}

func TestReviewOrder(t *testing.T) {
	testCases := []struct {
		name  string
		order domain.ReviewCardOrder
		want  float64 // interval of the first card
	}{
		{"oldest interval first", domain.ReviewOldestIntervalFirst, 30},
		{"newest interval first", domain.ReviewNewestIntervalFirst, 2},
		{"due first", domain.ReviewDueFirst, 10},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := openTestStore(t)
			now := spacing.Seconds(t0)
			seedCard(t, db, domain.Card{Type: domain.Review, Interval: 2, Due: now - 100, Successive: 1})
			seedCard(t, db, domain.Card{Type: domain.Review, Interval: 30, Due: now - 200, Successive: 1})
			seedCard(t, db, domain.Card{Type: domain.Review, Interval: 10, Due: now - 300, Successive: 1})
			cfg := domain.DefaultDeckConfig()
			cfg.ReviewCardOrder = tc.order
			d := openDeck(t, db, &testClock{t: t0}, &cfg)

			card, err := d.GetCard(context.Background())
			if err != nil || card == nil {
				t.Fatalf("GetCard = %v, %v", card, err)
			}
			if card.Interval != tc.want {
				t.Errorf("first interval = %v, want %v", card.Interval, tc.want)
			}
		})
	}
}

func TestFailedCardsComeFirstOnceDue(t *testing.T) {
	ctx := context.Background()
	d, _, clk := newTestDeck(t, nil)

	for _, q := range []string{"one", "two", "three"} {
		if _, err := d.AddCard(ctx, domain.Fact{Question: q}); err != nil {
			t.Fatalf("AddCard: %v", err)
		}
	}
	failed, err := d.GetCard(ctx)
	if err != nil || failed == nil {
		t.Fatalf("GetCard = %v, %v", failed, err)
	}
	if err := d.AnswerCard(ctx, failed, domain.Again); err != nil {
		t.Fatalf("AnswerCard: %v", err)
	}
	if c := d.Counts(); c.FailedSoon != 1 || c.FailedNow != 0 {
		t.Fatalf("counts after failing = %+v", c)
	}

	clk.Advance(11 * time.Minute)
	card, err := d.GetCard(ctx)
	if err != nil || card == nil {
		t.Fatalf("GetCard = %v, %v", card, err)
	}
	if card.ID != failed.ID || card.Type != domain.Failed {
		t.Errorf("expected failed card %d, got %+v", failed.ID, card)
	}
	if d.Counts().FailedNow != 1 {
		t.Errorf("FailedNow = %d, want 1", d.Counts().FailedNow)
	}
}

func TestFailedCardShownWhenNothingElseLeft(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDeck(t, nil)

	if _, err := d.AddCard(ctx, domain.Fact{Question: "Q"}); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	card, _ := d.GetCard(ctx)
	if err := d.AnswerCard(ctx, card, domain.Again); err != nil {
		t.Fatalf("AnswerCard: %v", err)
	}

	// Not due for another ten minutes, but collapse time lets it through.
	next, err := d.GetCard(ctx)
	if err != nil || next == nil || next.ID != card.ID {
		t.Fatalf("GetCard = %+v, %v; want failed card %d", next, err, card.ID)
	}

	if err := d.SetCollapseTime(ctx, 0); err != nil {
		t.Fatalf("SetCollapseTime: %v", err)
	}
	if next, err := d.GetCard(ctx); err != nil || next != nil {
		t.Errorf("GetCard without collapse = %+v, %v; want none", next, err)
	}
}

func TestTemporarilySetLowestPriority(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDeck(t, nil)

	for _, q := range []string{"one", "two"} {
		if _, err := d.AddCard(ctx, domain.Fact{Question: q}); err != nil {
			t.Fatalf("AddCard: %v", err)
		}
	}
	first, _ := d.GetCard(ctx)
	d.TemporarilySetLowestPriority(first)

	second, err := d.GetCard(ctx)
	if err != nil || second == nil {
		t.Fatalf("GetCard = %v, %v", second, err)
	}
	if second.ID == first.ID {
		t.Errorf("lowered card %d returned while another was available", first.ID)
	}

	d.TemporarilySetLowestPriority(second)
	third, err := d.GetCard(ctx)
	if err != nil || third == nil {
		t.Fatalf("expected a lowered card when nothing else is left, got %v, %v", third, err)
	}

	stored, _ := d.Card(ctx, first.ID)
	if stored.Priority != domain.PriorityNormal {
		t.Errorf("lowering must not persist, priority = %v", stored.Priority)
	}

	d.ResetSession()
	again, _ := d.GetCard(ctx)
	if again.ID != first.ID {
		t.Errorf("after reset got card %d, want %d", again.ID, first.ID)
	}
}

func TestNewCardsPerDayLimit(t *testing.T) {
	ctx := context.Background()
	cfg := domain.DefaultDeckConfig()
	cfg.NewCardsPerDay = 2
	d, _, clk := newTestDeck(t, &cfg)

	for _, q := range []string{"a", "b", "c"} {
		if _, err := d.AddCard(ctx, domain.Fact{Question: q}); err != nil {
			t.Fatalf("AddCard: %v", err)
		}
	}
	if got := d.Counts().NewToday; got != 2 {
		t.Fatalf("NewToday = %d, want 2", got)
	}
	for i := 0; i < 2; i++ {
		card, err := d.GetCard(ctx)
		if err != nil || card == nil {
			t.Fatalf("GetCard #%d = %v, %v", i, card, err)
		}
		if err := d.AnswerCard(ctx, card, domain.Good); err != nil {
			t.Fatalf("AnswerCard: %v", err)
		}
	}
	if c := d.Counts(); c.NewToday != 0 || c.New != 1 {
		t.Errorf("counts after limit = %+v", c)
	}
	if card, _ := d.GetCard(ctx); card != nil {
		t.Errorf("expected daily limit to stop new cards, got %+v", card)
	}

	clk.Advance(24 * time.Hour)
	if err := d.CheckDue(ctx); err != nil {
		t.Fatalf("CheckDue: %v", err)
	}
	if got := d.Counts().NewToday; got != 1 {
		t.Errorf("NewToday on the next day = %d, want 1", got)
	}
}

func TestFactorNeverBelowFloor(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	seedCard(t, db, domain.Card{Type: domain.Review, Interval: 10, Due: spacing.Seconds(t0) - 1, Successive: 1})
	clk := &testClock{t: t0}
	d := openDeck(t, db, clk, nil)
	floor := d.Config().FactorFloor

	var card *domain.Card
	for i := 0; i < 20; i++ {
		var err error
		card, err = d.GetCard(ctx)
		if err != nil || card == nil {
			t.Fatalf("GetCard #%d = %v, %v", i, card, err)
		}
		if err := d.AnswerCard(ctx, card, domain.Hard); err != nil {
			t.Fatalf("AnswerCard: %v", err)
		}
		if card.Factor < floor {
			t.Fatalf("factor %v fell below floor %v after %d answers", card.Factor, floor, i+1)
		}
		dueSec := int64(card.Due)
		clk.Set(time.Unix(dueSec+1, 0).UTC())
	}
	assertFloat(t, "final factor", card.Factor, floor)
}

func TestSessionLimits(t *testing.T) {
	ctx := context.Background()
	d, _, clk := newTestDeck(t, nil)

	if err := d.SetSessionLimits(ctx, 1, 60); err != nil {
		t.Fatalf("SetSessionLimits: %v", err)
	}
	if d.SessionLimitReached() {
		t.Fatal("fresh session should not be at its limit")
	}
	card, err := d.AddCard(ctx, domain.Fact{Question: "Q"})
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if err := d.AnswerCard(ctx, card, domain.Good); err != nil {
		t.Fatalf("AnswerCard: %v", err)
	}
	if !d.SessionLimitReached() {
		t.Error("expected rep limit to be reached")
	}

	d.ResetSession()
	if d.SessionLimitReached() {
		t.Error("expected reset session to be under its limits")
	}
	clk.Advance(time.Minute)
	if !d.SessionLimitReached() {
		t.Error("expected time limit to be reached")
	}
}

func TestEarliestDue(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDeck(t, nil)

	if _, ok, err := d.EarliestDue(ctx); err != nil || ok {
		t.Fatalf("EarliestDue on empty deck = %v, %v", ok, err)
	}
	if _, err := d.AddCard(ctx, domain.Fact{Question: "Q"}); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	due, ok, err := d.EarliestDue(ctx)
	if err != nil || !ok || !due.Equal(t0) {
		t.Errorf("EarliestDue = %v, %v, %v; want %v", due, ok, err, t0)
	}
}
