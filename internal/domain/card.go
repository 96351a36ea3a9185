package domain

import (
	"fmt"
	"time"
)

// CardType selects the queue a card belongs to.
type CardType int

const (
	Failed CardType = 0
	Review CardType = 1
	New    CardType = 2
)

var cardTypeNames = [...]string{Failed: "failed", Review: "review", New: "new"}

// IsValid reports whether t is one of the three known types.
func (t CardType) IsValid() bool {
	return t >= Failed && t <= New
}

func (t CardType) String() string {
	if t.IsValid() {
		return cardTypeNames[t]
	}
	return fmt.Sprintf("CardType(%d)", int(t))
}

// Priority is the tag-derived scheduling priority of a card. Tags may also
// carry PrioritySuspended, which never ends up on a card.
type Priority int

const (
	PrioritySuspended Priority = -3
	PriorityNone      Priority = 0
	PriorityLow       Priority = 1
	PriorityNormal    Priority = 2
	PriorityMedium    Priority = 3
	PriorityHigh      Priority = 4
)

func (p Priority) String() string {
	switch p {
	case PrioritySuspended:
		return "suspended"
	case PriorityNone:
		return "none"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// ParsePriority accepts the names produced by Priority.String.
func ParsePriority(s string) (Priority, error) {
	for _, p := range []Priority{PrioritySuspended, PriorityNone, PriorityLow, PriorityNormal, PriorityMedium, PriorityHigh} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// Hold is a manual override that removes a card from every queue without
// touching its type, interval or derived priority.
type Hold int

const (
	HoldNone Hold = iota
	HoldSuspended
	HoldBuried
	HoldReviewedEarly
)

func (h Hold) String() string {
	switch h {
	case HoldNone:
		return "active"
	case HoldSuspended:
		return "suspended"
	case HoldBuried:
		return "buried"
	case HoldReviewedEarly:
		return "reviewed-early"
	}
	return fmt.Sprintf("Hold(%d)", int(h))
}

// Ease is the grade given to an answer.
type Ease int

const (
	Again Ease = 1
	Hard  Ease = 2
	Good  Ease = 3
	Easy  Ease = 4
)

// IsValid reports whether e is a grade a user can give (1..4).
func (e Ease) IsValid() bool {
	return e >= Again && e <= Easy
}

// Card is a single schedulable flashcard.
type Card struct {
	ID       int64
	FactID   int64
	FactKey  string
	Question string
	Answer   string

	Type     CardType
	Priority Priority
	Hold     Hold

	Due          float64 // seconds since epoch
	Interval     float64 // days
	LastInterval float64
	LastDue      float64
	Factor       float64
	LastFactor   float64
	Reps         int
	Successive   int
	IsDue        bool

	Created  float64
	Modified float64

	// ShownAt is set when the card is handed out and is not persisted.
	ShownAt time.Time
}

// Schedulable reports whether the card takes part in the due queues.
func (c Card) Schedulable() bool {
	return c.Hold == HoldNone && c.Priority > PriorityNone
}

// Counted reports whether the card is currently included in a cached counter.
func (c Card) Counted() bool {
	return c.IsDue && c.Schedulable()
}

// Band returns the legacy single-integer encoding of hold and priority.
func (c Card) Band() int {
	switch c.Hold {
	case HoldSuspended:
		return -3
	case HoldBuried:
		return -2
	case HoldReviewedEarly:
		return -1
	}
	return int(c.Priority)
}

// Fact is the content a card is generated from.
type Fact struct {
	ID       int64
	Question string
	Answer   string
	Context  string
}

// Tag is a named label carrying its own priority.
type Tag struct {
	ID       int64
	Name     string
	Priority Priority
}

// ReviewLog records a single answer.
type ReviewLog struct {
	CardID       int64
	Time         float64
	Ease         Ease
	Delay        float64 // days late (negative when early)
	LastInterval float64
	NextInterval float64
	NextFactor   float64
	ThinkingTime float64 // seconds
}
