// Package queue holds the pure pieces of queue building: counter tallies
// over a card snapshot, the new card interleave modulus and the mapping from
// deck ordering modes to physical orders.
package queue

import (
	"slices"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/store"
)

// Tally recounts the queue counters from a snapshot of the card set. It is
// the reference the store-backed rebuild is checked against.
func Tally(cards []domain.Card, now float64) domain.Counts {
	var c domain.Counts
	facts := make(map[int64]struct{})
	for _, card := range cards {
		c.CardCount++
		facts[card.FactID] = struct{}{}
		if !card.Counted() {
			continue
		}
		switch card.Type {
		case domain.Failed:
			c.FailedSoon++
			if card.Due <= now {
				c.FailedNow++
			}
		case domain.Review:
			c.Review++
		case domain.New:
			c.New++
		}
	}
	c.FactCount = len(facts)
	return c
}

// NewToday clamps the due new card count by what is left of the daily limit.
func NewToday(newCount, perDay, doneToday int) int {
	return max(0, min(newCount, perDay-doneToday))
}

// NewCardModulus returns how often (every nth rep) a new card is drawn when
// new cards are distributed. Zero disables interleaving.
func NewCardModulus(spacing domain.NewCardSpacing, newToday, reviewCount int) int {
	if spacing != domain.NewCardsDistribute || newToday <= 0 {
		return 0
	}
	m := (newToday + reviewCount) / newToday
	if reviewCount > 0 && m < 2 {
		m = 2
	}
	return m
}

// AverageFactor falls back to the initial factor when no review card exists.
func AverageFactor(avg float64, n int) float64 {
	if n == 0 {
		return domain.InitialFactor
	}
	return avg
}

// NewOrder maps the configured new card order to a physical order.
func NewOrder(o domain.NewCardOrder) store.Order {
	switch o {
	case domain.NewCardsRandom:
		return store.OrderRandom
	case domain.NewCardsNewestFirst:
		return store.OrderDueDesc
	default:
		return store.OrderDueAsc
	}
}

// ReviewOrder maps the configured review order to a physical order.
func ReviewOrder(o domain.ReviewCardOrder) store.Order {
	switch o {
	case domain.ReviewNewestIntervalFirst:
		return store.OrderIntervalAsc
	case domain.ReviewDueFirst:
		return store.OrderDueAsc
	case domain.ReviewRandom:
		return store.OrderRandom
	default:
		return store.OrderIntervalDesc
	}
}

// RequiredOrders lists the distinct orders the deck needs, one per ordering
// requirement. The failed queue always uses due ascending.
func RequiredOrders(cfg domain.DeckConfig) []store.Order {
	out := []store.Order{store.OrderDueAsc}
	for _, o := range []store.Order{NewOrder(cfg.NewCardOrder), ReviewOrder(cfg.ReviewCardOrder)} {
		if !slices.Contains(out, o) {
			out = append(out, o)
		}
	}
	slices.Sort(out)
	return out
}
