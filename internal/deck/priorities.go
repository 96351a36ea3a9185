package deck

import (
	"context"
	"fmt"
	"slices"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/priority"
	"github.com/conorfennell/knoldeck/internal/spacing"
	"github.com/conorfennell/knoldeck/internal/store"
)

// PriorityUpdate selects the cards UpdatePriorities resolves.
type PriorityUpdate struct {
	// CardIDs limits the pass to these cards. Nil means every card.
	CardIDs []int64
	// SuspendTags are switched to the suspended tag priority first.
	SuspendTags []string
	// Touch stamps the modification time of changed cards.
	Touch bool
}

// UpdatePriorities re-derives card priorities from their tags. Cards that
// drop out of scheduling lose their due flag, after which the counters are
// rebuilt rather than decremented.
func (d *Deck) UpdatePriorities(ctx context.Context, u PriorityUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updatePriorities(ctx, u)
}

func (d *Deck) updatePriorities(ctx context.Context, u PriorityUpdate) error {
	now := d.now()
	var modified float64
	if u.Touch {
		modified = spacing.Seconds(now)
	}

	next := d.counts
	changed, cleared := 0, 0
	err := d.store.InTx(ctx, func(tx store.Store) error {
		if len(u.SuspendTags) > 0 {
			if err := tx.SuspendTags(ctx, u.SuspendTags); err != nil {
				return err
			}
		}
		byCard, err := tx.CardTagPriorities(ctx, u.CardIDs)
		if err != nil {
			return err
		}
		for p, ids := range priority.Group(byCard) {
			slices.Sort(ids)
			n, err := tx.SetPriority(ctx, ids, p, modified)
			if err != nil {
				return err
			}
			changed += n
		}
		if cleared, err = tx.ClearUnschedulableDue(ctx); err != nil {
			return err
		}
		if cleared == 0 {
			return nil
		}
		if next, err = d.recount(ctx, tx, false, now); err != nil {
			return err
		}
		return d.saveDeck(ctx, tx, d.cfg, next, now)
	})
	if err != nil {
		return err
	}
	d.counts = next
	if changed > 0 {
		d.log.Debug("Updated card priorities", "changed", changed, "cleared", cleared)
	}
	return nil
}

// SetTagPriority changes a tag's priority and re-resolves every card.
func (d *Deck) SetTagPriority(ctx context.Context, name string, p domain.Priority) error {
	if p != domain.PrioritySuspended && (p < domain.PriorityLow || p > domain.PriorityHigh) {
		return fmt.Errorf("%w: tag priority %s", ErrInvalidConfiguration, p)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.store.SetTagPriority(ctx, name, p); err != nil {
		return err
	}
	if err := d.updatePriorities(ctx, PriorityUpdate{Touch: true}); err != nil {
		return err
	}
	// Cards lifted out of priority none become due again.
	return d.checkDue(ctx)
}

// TagCard attaches tags to a card and re-resolves its priority.
func (d *Deck) TagCard(ctx context.Context, id int64, tags ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.card(ctx, d.store, id); err != nil {
		return err
	}
	err := d.store.InTx(ctx, func(tx store.Store) error {
		for _, name := range tags {
			if err := tx.TagCard(ctx, id, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := d.updatePriorities(ctx, PriorityUpdate{CardIDs: []int64{id}, Touch: true}); err != nil {
		return err
	}
	return d.checkDue(ctx)
}

// Suspend removes cards from every queue until Unsuspend.
func (d *Deck) Suspend(ctx context.Context, ids ...int64) error {
	return d.SetHold(ctx, domain.HoldSuspended, ids...)
}

// Bury removes cards from every queue until Unbury or the next deck day.
func (d *Deck) Bury(ctx context.Context, ids ...int64) error {
	return d.SetHold(ctx, domain.HoldBuried, ids...)
}

// Unsuspend releases suspended cards. Cards under another hold stay held.
func (d *Deck) Unsuspend(ctx context.Context, ids ...int64) error {
	return d.ReleaseHold(ctx, domain.HoldSuspended, ids...)
}

// Unbury releases buried cards.
func (d *Deck) Unbury(ctx context.Context, ids ...int64) error {
	return d.ReleaseHold(ctx, domain.HoldBuried, ids...)
}

// SetHold places h on the given cards. Their type, interval and derived
// priority are kept; the due flag is cleared and the counters rebuilt.
func (d *Deck) SetHold(ctx context.Context, h domain.Hold, ids ...int64) error {
	if h == domain.HoldNone {
		return fmt.Errorf("%w: hold %s", ErrInvalidConfiguration, h)
	}
	if len(ids) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	var next domain.Counts
	err := d.store.InTx(ctx, func(tx store.Store) error {
		n, err := tx.SetHold(ctx, ids, h, spacing.Seconds(now))
		if err != nil {
			return err
		}
		d.log.Debug("Held cards", "hold", h, "cards", n)
		if next, err = d.recount(ctx, tx, false, now); err != nil {
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

// ReleaseHold lifts h from the given cards, or from every card holding it
// when no ids are given, and lets the due check pick them up again.
func (d *Deck) ReleaseHold(ctx context.Context, h domain.Hold, ids ...int64) error {
	if h == domain.HoldNone {
		return fmt.Errorf("%w: hold %s", ErrInvalidConfiguration, h)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(ids) == 0 {
		ids = nil
	}
	n, err := d.store.ReleaseHold(ctx, ids, h, spacing.Seconds(d.now()))
	if err != nil {
		return err
	}
	d.log.Debug("Released cards", "hold", h, "cards", n)
	return d.checkDue(ctx)
}
