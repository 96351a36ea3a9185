// Package priority derives a card's scheduling priority from its tags.
package priority

import "github.com/conorfennell/knoldeck/internal/domain"

// Resolve aggregates the priorities of a card's tags. A single suspended tag
// removes the card from scheduling, a single tag above medium lifts the whole
// card, otherwise the card is low when its weakest tag is low and normal in
// every other case. Untagged cards are normal.
func Resolve(tags []domain.Priority) domain.Priority {
	if len(tags) == 0 {
		return domain.PriorityNormal
	}
	lo, hi := tags[0], tags[0]
	for _, p := range tags[1:] {
		lo = min(lo, p)
		hi = max(hi, p)
	}

	switch {
	case lo == domain.PrioritySuspended:
		return domain.PriorityNone
	case hi > domain.PriorityMedium:
		return hi
	case lo == domain.PriorityLow:
		return domain.PriorityLow
	default:
		return domain.PriorityNormal
	}
}

// Group resolves every card and buckets the ids by resulting priority.
func Group(byCard map[int64][]domain.Priority) map[domain.Priority][]int64 {
	out := make(map[domain.Priority][]int64)
	for id, tags := range byCard {
		p := Resolve(tags)
		out[p] = append(out[p], id)
	}
	return out
}
