package deck

import (
	"context"
	"fmt"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/knol"
	"github.com/conorfennell/knoldeck/internal/priority"
	"github.com/conorfennell/knoldeck/internal/queue"
	"github.com/conorfennell/knoldeck/internal/spacing"
	"github.com/conorfennell/knoldeck/internal/stats"
	"github.com/conorfennell/knoldeck/internal/store"
)

// GetCard returns the next card to show, or nil when every queue is empty.
// Suspended, buried and priority none cards are never returned.
func (d *Deck) GetCard(ctx context.Context) (*domain.Card, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkDue(ctx); err != nil {
		return nil, err
	}
	now := d.now()
	c, err := d.nextCard(ctx, now)
	if err != nil || c == nil {
		return nil, err
	}
	c.ShownAt = now
	return c, nil
}

func (d *Deck) nextCard(ctx context.Context, now time.Time) (*domain.Card, error) {
	var (
		counts  = d.counts
		failed  = store.CardFilter{Type: domain.Failed, OnlyDue: true}
		review  = store.CardFilter{Type: domain.Review, OnlyDue: true}
		newCard = store.CardFilter{Type: domain.New, OnlyDue: true}
	)

	type step struct {
		when func() (bool, error)
		f    store.CardFilter
		o    store.Order
	}
	always := func(ok bool) func() (bool, error) {
		return func() (bool, error) { return ok, nil }
	}
	steps := []step{
		{always(counts.FailedNow > 0), failedNowFilter(now), store.OrderDueAsc},
		{always(d.cfg.FailedCardMax > 0 && counts.FailedSoon >= d.cfg.FailedCardMax), failed, store.OrderDueAsc},
		{func() (bool, error) { return d.timeForNewCard(ctx) }, newCard, queue.NewOrder(d.cfg.NewCardOrder)},
		{always(counts.Review > 0), review, queue.ReviewOrder(d.cfg.ReviewCardOrder)},
		{always(counts.NewToday > 0), newCard, queue.NewOrder(d.cfg.NewCardOrder)},
		{always(counts.FailedSoon > 0 && (d.cfg.CollapseTime > 0 || d.cfg.Delay0 == 0)), failed, store.OrderDueAsc},
	}
	for _, s := range steps {
		ok, err := s.when()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		c, err := d.first(ctx, s.f, s.o)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}
	return nil, nil
}

// timeForNewCard reports whether the next draw should be a new card ahead
// of the review queue.
func (d *Deck) timeForNewCard(ctx context.Context) (bool, error) {
	if d.counts.NewToday == 0 {
		return false, nil
	}
	switch d.cfg.NewCardSpacing {
	case domain.NewCardsLast:
		return false, nil
	case domain.NewCardsFirst:
		return true, nil
	}
	if d.counts.Review > 0 {
		high, err := d.store.CountCards(ctx, store.CardFilter{
			Type: domain.Review, OnlyDue: true, MinPriority: domain.PriorityHigh,
		})
		if err != nil {
			return false, err
		}
		if high > 0 {
			return false, nil
		}
	}
	if d.counts.NewCardModulus == 0 {
		return false, nil
	}
	return d.daily.Reps%d.counts.NewCardModulus == 0, nil
}

// first returns the head of a queue, passing over cards lowered for this
// session while any other candidate remains.
func (d *Deck) first(ctx context.Context, f store.CardFilter, o store.Order) (*domain.Card, error) {
	cards, err := d.store.FirstCards(ctx, f, o, len(d.lowered)+1)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		if _, ok := d.lowered[cards[i].ID]; !ok {
			return &cards[i], nil
		}
	}
	if len(cards) > 0 {
		return &cards[0], nil
	}
	return nil, nil
}

// TemporarilySetLowestPriority keeps c behind every other candidate of its
// queue for the rest of the session. Nothing is persisted.
func (d *Deck) TemporarilySetLowestPriority(c *domain.Card) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lowered[c.ID] = struct{}{}
}

// AnswerCard applies grade e to card. The card row, the counters, both
// statistics rows and the review log are committed together; on failure
// nothing changes. On success card is updated in place.
func (d *Deck) AnswerCard(ctx context.Context, card *domain.Card, e domain.Ease) error {
	if !e.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidEase, int(e))
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	var (
		updated  domain.Card
		next     = d.counts
		lifetime = d.lifetime.Clone()
		daily    *domain.Stats
	)
	err := d.store.InTx(ctx, func(tx store.Store) error {
		old, err := d.card(ctx, tx, card.ID)
		if err != nil {
			return err
		}
		bucket := spacing.BucketOf(d.cfg, *old)
		late := spacing.LateBy(*old, now)
		res := spacing.Answer(d.cfg, *old, e, now, d.counts.AverageFactor, d.rnd)

		updated = *old
		updated.LastInterval = old.Interval
		updated.LastFactor = old.Factor
		updated.LastDue = old.Due
		updated.Type = res.Type
		updated.Interval = res.Interval
		updated.Factor = res.Factor
		updated.Due = res.Due
		updated.Successive = res.Successive
		updated.Reps++
		updated.Modified = spacing.Seconds(now)
		updated.ShownAt = time.Time{}

		if old.Counted() {
			*counterFor(&next, old.Type)--
		}
		updated.IsDue = updated.Schedulable() && updated.Due <= spacing.DueCutoff(d.cfg, updated.Type, now)
		if updated.IsDue {
			*counterFor(&next, updated.Type)++
		}

		if daily, err = d.dailyStats(ctx, tx, now); err != nil {
			return err
		}
		daily = daily.Clone()
		spent := thinkingTime(card.ShownAt, now)
		stats.UpdateAll(lifetime, daily, bucket, e, spent)

		if err := tx.SaveCard(ctx, &updated); err != nil {
			return err
		}
		if err := tx.SaveStats(ctx, lifetime); err != nil {
			return err
		}
		if err := tx.SaveStats(ctx, daily); err != nil {
			return err
		}
		err = tx.AppendReview(ctx, domain.ReviewLog{
			CardID:       updated.ID,
			Time:         spacing.Seconds(now),
			Ease:         e,
			Delay:        late,
			LastInterval: old.Interval,
			NextInterval: updated.Interval,
			NextFactor:   updated.Factor,
			ThinkingTime: spent.Seconds(),
		})
		if err != nil {
			return err
		}

		if next.FailedNow, err = tx.CountCards(ctx, failedNowFilter(now)); err != nil {
			return err
		}
		next.NewToday = queue.NewToday(next.New, d.cfg.NewCardsPerDay, daily.NewCardsDone())
		return d.saveDeck(ctx, tx, d.cfg, next, now)
	})
	if err != nil {
		return err
	}

	d.counts = next
	d.lifetime = lifetime
	d.daily = daily
	d.sessionReps++
	*card = updated

	d.log.Debug("Answered card",
		"card", updated.ID, "ease", int(e), "type", updated.Type,
		"interval", updated.Interval, "factor", updated.Factor)
	return nil
}

// thinkingTime is the time since the card was shown, capped at the maximum
// review time. Cards never shown count as zero.
func thinkingTime(shown, now time.Time) time.Duration {
	if shown.IsZero() || now.Before(shown) {
		return 0
	}
	return min(now.Sub(shown), time.Duration(domain.MaxReviewTime)*time.Second)
}

// SessionLimitReached reports whether the configured session rep count or
// session time has been used up.
func (d *Deck) SessionLimitReached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.SessionRepLimit > 0 && d.sessionReps >= d.cfg.SessionRepLimit {
		return true
	}
	limit := time.Duration(d.cfg.SessionTimeLimit * float64(time.Second))
	return limit > 0 && d.now().Sub(d.sessionStart) >= limit
}

// ResetSession starts a new session and forgets lowered cards.
func (d *Deck) ResetSession() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessionReps = 0
	d.sessionStart = d.now()
	clear(d.lowered)
}

// AddCard creates a new card for fact with the given tags. A zero fact id
// makes the card its own fact.
func (d *Deck) AddCard(ctx context.Context, fact domain.Fact, tags ...string) (*domain.Card, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	c := domain.Card{
		FactID:     fact.ID,
		Question:   fact.Question,
		Answer:     fact.Answer,
		Type:       domain.New,
		Priority:   domain.PriorityNormal,
		Due:        spacing.Seconds(now),
		Factor:     d.cfg.InitialFactor,
		LastFactor: d.cfg.InitialFactor,
		Created:    spacing.Seconds(now),
		Modified:   spacing.Seconds(now),
	}
	next := d.counts
	err := d.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.AddCard(ctx, &c); err != nil {
			return err
		}
		for _, name := range tags {
			if err := tx.TagCard(ctx, c.ID, name); err != nil {
				return err
			}
		}
		byCard, err := tx.CardTagPriorities(ctx, []int64{c.ID})
		if err != nil {
			return err
		}
		fact.ID = c.FactID
		c.FactKey = knol.OrderKey(fact, d.salt)
		c.Priority = priority.Resolve(byCard[c.ID])
		c.IsDue = c.Schedulable() && c.Due <= spacing.DueCutoff(d.cfg, c.Type, now)
		if err := tx.SaveCard(ctx, &c); err != nil {
			return err
		}
		if c.IsDue {
			next.New++
		}
		if next.CardCount, next.FactCount, err = tx.CountAll(ctx); err != nil {
			return err
		}
		next.NewToday = queue.NewToday(next.New, d.cfg.NewCardsPerDay, d.daily.NewCardsDone())
		next.NewCardModulus = queue.NewCardModulus(d.cfg.NewCardSpacing, next.NewToday, next.Review)
		return d.saveDeck(ctx, tx, d.cfg, next, now)
	})
	if err != nil {
		return nil, err
	}
	d.counts = next
	return &c, nil
}
