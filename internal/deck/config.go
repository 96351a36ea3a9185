package deck

import (
	"context"
	"fmt"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// UpdateConfig applies fn to a copy of the configuration. The copy is
// validated and persisted, and the queues are rebuilt; an invalid result
// leaves the current configuration in effect.
func (d *Deck) UpdateConfig(ctx context.Context, fn func(*domain.DeckConfig)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cfg := d.cfg
	fn(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if cfg == d.cfg {
		return nil
	}
	if err := d.saveDeck(ctx, d.store, cfg, d.counts, d.now()); err != nil {
		return err
	}
	d.cfg = cfg
	d.log.Info("Deck configuration changed")
	return d.rebuildQueue(ctx)
}

// SetNewCardsPerDay sets the daily new card limit.
func (d *Deck) SetNewCardsPerDay(ctx context.Context, n int) error {
	return d.UpdateConfig(ctx, func(c *domain.DeckConfig) { c.NewCardsPerDay = n })
}

func (d *Deck) SetNewCardOrder(ctx context.Context, o domain.NewCardOrder) error {
	return d.UpdateConfig(ctx, func(c *domain.DeckConfig) { c.NewCardOrder = o })
}

func (d *Deck) SetNewCardSpacing(ctx context.Context, s domain.NewCardSpacing) error {
	return d.UpdateConfig(ctx, func(c *domain.DeckConfig) { c.NewCardSpacing = s })
}

func (d *Deck) SetReviewCardOrder(ctx context.Context, o domain.ReviewCardOrder) error {
	return d.UpdateConfig(ctx, func(c *domain.DeckConfig) { c.ReviewCardOrder = o })
}

// SetIntervals sets the graduation bands for hard, good and easy answers.
func (d *Deck) SetIntervals(ctx context.Context, hard, mid, easy domain.Band) error {
	return d.UpdateConfig(ctx, func(c *domain.DeckConfig) {
		c.HardInterval, c.MidInterval, c.EasyInterval = hard, mid, easy
	})
}

// SetFailureDelays sets the young and mature relearning delays in seconds
// and the fraction of the old interval kept on failure.
func (d *Deck) SetFailureDelays(ctx context.Context, young, mature, keep float64) error {
	return d.UpdateConfig(ctx, func(c *domain.DeckConfig) {
		c.Delay0, c.Delay1, c.Delay2 = young, mature, keep
	})
}

func (d *Deck) SetCollapseTime(ctx context.Context, seconds float64) error {
	return d.UpdateConfig(ctx, func(c *domain.DeckConfig) { c.CollapseTime = seconds })
}

func (d *Deck) SetFailedCardMax(ctx context.Context, n int) error {
	return d.UpdateConfig(ctx, func(c *domain.DeckConfig) { c.FailedCardMax = n })
}

// SetSessionLimits sets the per-session rep count and time limit. Zero
// disables a limit.
func (d *Deck) SetSessionLimits(ctx context.Context, reps int, seconds float64) error {
	return d.UpdateConfig(ctx, func(c *domain.DeckConfig) {
		c.SessionRepLimit, c.SessionTimeLimit = reps, seconds
	})
}

// SetUTCOffset moves the start of the deck day, in seconds after UTC
// midnight.
func (d *Deck) SetUTCOffset(ctx context.Context, seconds int) error {
	return d.UpdateConfig(ctx, func(c *domain.DeckConfig) { c.UTCOffset = seconds })
}
