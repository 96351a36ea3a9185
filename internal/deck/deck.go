// Package deck is the scheduling engine for a single collection. A Deck owns
// the configuration, the cached queue counters and the statistics rows, and
// keeps them consistent with the card store.
package deck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/spacing"
	"github.com/conorfennell/knoldeck/internal/store"
)

// Options configures Open. Zero values select the defaults.
type Options struct {
	Logger *slog.Logger
	Clock  func() time.Time
	Rand   func() float64
	// Config seeds a collection that has no deck row yet.
	Config *domain.DeckConfig
}

// Deck is the scheduling engine bound to one store. It is safe for
// concurrent use; every operation is serialised.
type Deck struct {
	mu sync.Mutex

	store store.Store
	log   *slog.Logger
	now   func() time.Time
	rnd   spacing.Rand

	cfg     domain.DeckConfig
	counts  domain.Counts
	salt    string
	created float64

	lifetime *domain.Stats
	daily    *domain.Stats

	lowered      map[int64]struct{}
	sessionReps  int
	sessionStart time.Time
}

// Open loads the deck from st, creating it on first use, and brings the
// counters, priorities and queues up to date. Any store failure is reported
// as ErrStoreUnavailable and no Deck is returned.
func Open(ctx context.Context, st store.Store, opts Options) (*Deck, error) {
	d := &Deck{
		store:   st,
		log:     opts.Logger,
		now:     opts.Clock,
		rnd:     opts.Rand,
		lowered: make(map[int64]struct{}),
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.rnd == nil {
		d.rnd = rand.Float64
	}

	if err := d.load(ctx, opts.Config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if err := d.rebuildCounts(ctx, true); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if err := d.updatePriorities(ctx, PriorityUpdate{}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if err := d.rebuildQueue(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	d.sessionStart = d.now()

	d.log.Debug("Deck opened",
		"cards", d.counts.CardCount,
		"review", d.counts.Review,
		"new_today", d.counts.NewToday,
		"failed", d.counts.FailedSoon)
	return d, nil
}

func (d *Deck) load(ctx context.Context, seed *domain.DeckConfig) error {
	row, err := d.store.LoadDeck(ctx)
	if err != nil {
		return err
	}
	now := d.now()
	if row == nil {
		cfg := domain.DefaultDeckConfig()
		if seed != nil {
			cfg = *seed
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
		row = &store.DeckRow{
			Config:   cfg,
			Counts:   domain.Counts{AverageFactor: cfg.InitialFactor},
			Salt:     fmt.Sprintf("%016x", rand.Uint64()),
			Created:  spacing.Seconds(now),
			Modified: spacing.Seconds(now),
		}
		if err := d.store.SaveDeck(ctx, *row); err != nil {
			return err
		}
		d.log.Info("Created new deck")
	}
	d.cfg = row.Config
	d.counts = row.Counts
	d.salt = row.Salt
	d.created = row.Created

	lifetime, err := d.store.LoadStats(ctx, domain.StatsLifetime, "")
	if err != nil {
		return err
	}
	if lifetime == nil {
		lifetime = domain.NewStats(domain.StatsLifetime, "")
		if err := d.store.SaveStats(ctx, lifetime); err != nil {
			return err
		}
	}
	d.lifetime = lifetime

	return d.store.InTx(ctx, func(tx store.Store) error {
		daily, err := d.dailyStats(ctx, tx, now)
		if err != nil {
			return err
		}
		d.daily = daily
		return nil
	})
}

// saveDeck persists cfg and counts as the deck row.
func (d *Deck) saveDeck(ctx context.Context, st store.Store, cfg domain.DeckConfig, counts domain.Counts, now time.Time) error {
	return st.SaveDeck(ctx, store.DeckRow{
		Config:   cfg,
		Counts:   counts,
		Salt:     d.salt,
		Created:  d.created,
		Modified: spacing.Seconds(now),
	})
}

// Counts returns the cached queue counters.
func (d *Deck) Counts() domain.Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts
}

// Config returns a copy of the deck configuration.
func (d *Deck) Config() domain.DeckConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// LifetimeStats returns a copy of the lifetime statistics row.
func (d *Deck) LifetimeStats() domain.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.lifetime
}

// DailyStats returns a copy of today's statistics row. A day boundary
// passed since the last operation is not reflected until the next one.
func (d *Deck) DailyStats() domain.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.daily
}

// Card loads a card by id.
func (d *Deck) Card(ctx context.Context, id int64) (*domain.Card, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.card(ctx, d.store, id)
}

func (d *Deck) card(ctx context.Context, st store.Store, id int64) (*domain.Card, error) {
	c, err := st.GetCard(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrCardNotFound, id)
	}
	return c, err
}

// CardTags lists the tags of a card.
func (d *Deck) CardTags(ctx context.Context, id int64) ([]domain.Tag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.CardTags(ctx, id)
}

// History returns the recorded answers for a card, oldest first.
func (d *Deck) History(ctx context.Context, id int64) ([]domain.ReviewLog, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.ReviewHistory(ctx, id)
}

// EarliestDue returns the due time of the next schedulable card, if any.
func (d *Deck) EarliestDue(ctx context.Context) (time.Time, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	due, ok, err := d.store.EarliestDue(ctx)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	sec := int64(due)
	return time.Unix(sec, int64((due-float64(sec))*float64(time.Second))), true, nil
}
