package deck

import (
	"context"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/queue"
	"github.com/conorfennell/knoldeck/internal/spacing"
	"github.com/conorfennell/knoldeck/internal/stats"
	"github.com/conorfennell/knoldeck/internal/store"
)

// dailyHolds are lifted the first time a new deck day is seen.
var dailyHolds = []domain.Hold{domain.HoldBuried, domain.HoldReviewedEarly}

// dailyStats returns the stats row for the deck day containing now. A row
// from another day is discarded, never merged. When the day has not been
// seen before, a fresh row is created and buried or early-reviewed cards are
// released; released cards keep a clear due flag until the next due check.
func (d *Deck) dailyStats(ctx context.Context, st store.Store, now time.Time) (*domain.Stats, error) {
	if !stats.Stale(d.daily, now, d.cfg.UTCOffset) {
		return d.daily, nil
	}
	day := stats.Day(now, d.cfg.UTCOffset)
	s, err := st.LoadStats(ctx, domain.StatsDaily, day)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return s, nil
	}

	s = domain.NewStats(domain.StatsDaily, day)
	if err := st.SaveStats(ctx, s); err != nil {
		return nil, err
	}
	released := 0
	for _, h := range dailyHolds {
		n, err := st.ReleaseHold(ctx, nil, h, spacing.Seconds(now))
		if err != nil {
			return nil, err
		}
		released += n
	}
	d.log.Info("Started new deck day", "day", day, "released", released)
	return s, nil
}

// CheckDue flags every elapsed card as due and grows the matching counter
// by the number of newly flagged rows. Calling it again without time passing
// changes nothing.
func (d *Deck) CheckDue(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checkDue(ctx)
}

func (d *Deck) checkDue(ctx context.Context) error {
	now := d.now()
	next := d.counts
	var daily *domain.Stats

	err := d.store.InTx(ctx, func(tx store.Store) error {
		var err error
		if daily, err = d.dailyStats(ctx, tx, now); err != nil {
			return err
		}
		for _, t := range []domain.CardType{domain.Failed, domain.Review, domain.New} {
			n, err := tx.MarkDue(ctx, t, spacing.DueCutoff(d.cfg, t, now))
			if err != nil {
				return err
			}
			*counterFor(&next, t) += n
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
	d.daily = daily
	return nil
}

// RebuildCounts recounts the queue counters from the card set, and the card
// and fact totals when full is set.
func (d *Deck) RebuildCounts(ctx context.Context, full bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rebuildCounts(ctx, full)
}

func (d *Deck) rebuildCounts(ctx context.Context, full bool) error {
	now := d.now()
	var next domain.Counts
	err := d.store.InTx(ctx, func(tx store.Store) error {
		var err error
		if next, err = d.recount(ctx, tx, full, now); err != nil {
			return err
		}
		return d.saveDeck(ctx, tx, d.cfg, next, now)
	})
	if err != nil {
		return err
	}
	d.counts = next
	return nil
}

// recount derives the counters from store predicates.
func (d *Deck) recount(ctx context.Context, st store.Store, full bool, now time.Time) (domain.Counts, error) {
	next := d.counts
	filters := []struct {
		dst *int
		f   store.CardFilter
	}{
		{&next.FailedSoon, store.CardFilter{Type: domain.Failed, OnlyDue: true}},
		{&next.FailedNow, failedNowFilter(now)},
		{&next.Review, store.CardFilter{Type: domain.Review, OnlyDue: true}},
		{&next.New, store.CardFilter{Type: domain.New, OnlyDue: true}},
	}
	for _, q := range filters {
		n, err := st.CountCards(ctx, q.f)
		if err != nil {
			return next, err
		}
		*q.dst = n
	}
	if full {
		cards, facts, err := st.CountAll(ctx)
		if err != nil {
			return next, err
		}
		next.CardCount, next.FactCount = cards, facts
	}
	if d.daily != nil {
		next.NewToday = queue.NewToday(next.New, d.cfg.NewCardsPerDay, d.daily.NewCardsDone())
	}
	return next, nil
}

// RebuildQueue runs the due check, then recomputes the new card modulus and
// the average factor and keeps one store index per ordering in use.
func (d *Deck) RebuildQueue(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rebuildQueue(ctx)
}

func (d *Deck) rebuildQueue(ctx context.Context) error {
	if err := d.checkDue(ctx); err != nil {
		return err
	}

	now := d.now()
	next := d.counts
	err := d.store.InTx(ctx, func(tx store.Store) error {
		next.NewCardModulus = queue.NewCardModulus(d.cfg.NewCardSpacing, next.NewToday, next.Review)
		avg, n, err := tx.AverageFactor(ctx, domain.Review)
		if err != nil {
			return err
		}
		next.AverageFactor = queue.AverageFactor(avg, n)
		if err := tx.SyncOrderIndexes(ctx, queue.RequiredOrders(d.cfg)); err != nil {
			return err
		}
		return d.saveDeck(ctx, tx, d.cfg, next, now)
	})
	if err != nil {
		return err
	}
	d.counts = next
	return nil
}

// Verify recounts every counter and compares the result with the cache and
// with a tally over a snapshot of all cards. Disagreements are logged and
// repaired; it reports whether the cache was already consistent.
func (d *Deck) Verify(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	var fresh, tally domain.Counts
	err := d.store.InTx(ctx, func(tx store.Store) error {
		var err error
		if fresh, err = d.recount(ctx, tx, true, now); err != nil {
			return err
		}
		cards, err := tx.AllCards(ctx)
		if err != nil {
			return err
		}
		tally = queue.Tally(cards, spacing.Seconds(now))
		return d.saveDeck(ctx, tx, d.cfg, fresh, now)
	})
	if err != nil {
		return false, err
	}

	if !tally.SameQueues(fresh) || tally.CardCount != fresh.CardCount || tally.FactCount != fresh.FactCount {
		d.log.Error("Store counts disagree with card snapshot",
			"store", fresh, "snapshot", tally)
	}

	cached := d.counts
	// failedNow only depends on the clock and is recounted on every use.
	cached.FailedNow = fresh.FailedNow
	ok := cached.SameQueues(fresh) && cached.CardCount == fresh.CardCount && cached.FactCount == fresh.FactCount
	if !ok {
		d.log.Warn("Inconsistent counters repaired",
			"cached_failed", cached.FailedSoon, "failed", fresh.FailedSoon,
			"cached_review", cached.Review, "review", fresh.Review,
			"cached_new", cached.New, "new", fresh.New,
			"cached_cards", cached.CardCount, "cards", fresh.CardCount)
	}
	d.counts = fresh
	return ok, nil
}

func counterFor(c *domain.Counts, t domain.CardType) *int {
	switch t {
	case domain.Failed:
		return &c.FailedSoon
	case domain.Review:
		return &c.Review
	default:
		return &c.New
	}
}

func failedNowFilter(now time.Time) store.CardFilter {
	return store.CardFilter{Type: domain.Failed, OnlyDue: true, DueBefore: spacing.Seconds(now)}
}
