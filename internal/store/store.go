// Package store defines the persistence contract the scheduler depends on.
package store

import (
	"context"
	"errors"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Order is a physical ordering of a card queue. Every order sorts by
// priority descending first.
type Order int

const (
	OrderDueAsc Order = iota
	OrderDueDesc
	OrderIntervalAsc
	OrderIntervalDesc
	OrderRandom // by fact key, then id
)

var orderNames = [...]string{
	OrderDueAsc:       "dueAsc",
	OrderDueDesc:      "dueDesc",
	OrderIntervalAsc:  "intervalAsc",
	OrderIntervalDesc: "intervalDesc",
	OrderRandom:       "randomOrder",
}

func (o Order) String() string {
	if o >= OrderDueAsc && o <= OrderRandom {
		return orderNames[o]
	}
	return "unknown"
}

// AllOrders lists every order a store may keep an index for.
func AllOrders() []Order {
	return []Order{OrderDueAsc, OrderDueDesc, OrderIntervalAsc, OrderIntervalDesc, OrderRandom}
}

// CardFilter selects schedulable cards (derived priority above none and no
// hold) of one type.
type CardFilter struct {
	Type        domain.CardType
	OnlyDue     bool    // is_due flag set
	DueBefore   float64 // due <= DueBefore when non-zero
	MinPriority domain.Priority
}

// DeckRow is the persisted deck configuration and counter cache.
type DeckRow struct {
	Config   domain.DeckConfig
	Counts   domain.Counts
	Salt     string
	Created  float64
	Modified float64
}

// Store is the persistent store adapter.
type Store interface {
	// InTx runs fn against a transactional view of the store. fn's error
	// rolls everything back.
	InTx(ctx context.Context, fn func(tx Store) error) error

	LoadDeck(ctx context.Context) (*DeckRow, error)
	SaveDeck(ctx context.Context, row DeckRow) error

	// AddCard inserts c and sets its ID. A zero FactID makes the card its
	// own fact.
	AddCard(ctx context.Context, c *domain.Card) error
	GetCard(ctx context.Context, id int64) (*domain.Card, error)
	SaveCard(ctx context.Context, c *domain.Card) error
	CountCards(ctx context.Context, f CardFilter) (int, error)
	FirstCards(ctx context.Context, f CardFilter, o Order, limit int) ([]domain.Card, error)
	AllCards(ctx context.Context) ([]domain.Card, error)
	CountAll(ctx context.Context) (cards, facts int, err error)
	AverageFactor(ctx context.Context, t domain.CardType) (avg float64, n int, err error)
	EarliestDue(ctx context.Context) (float64, bool, error)

	// MarkDue flags schedulable, not yet flagged cards of type t whose due
	// is at or before cutoff and returns how many rows changed.
	MarkDue(ctx context.Context, t domain.CardType, cutoff float64) (int, error)
	// ClearUnschedulableDue drops the due flag from cards that can no longer
	// be scheduled and returns how many rows changed.
	ClearUnschedulableDue(ctx context.Context) (int, error)
	SetPriority(ctx context.Context, ids []int64, p domain.Priority, modified float64) (int, error)
	// SetHold applies h to the cards in ids and clears their due flag.
	SetHold(ctx context.Context, ids []int64, h domain.Hold, modified float64) (int, error)
	// ReleaseHold lifts hold h from the cards in ids, or from every card
	// when ids is nil. Cards under a different hold are left alone.
	ReleaseHold(ctx context.Context, ids []int64, h domain.Hold, modified float64) (int, error)

	// CardTagPriorities maps each card to the priorities of its tags. A nil
	// ids slice selects every card. Untagged cards map to an empty slice.
	CardTagPriorities(ctx context.Context, ids []int64) (map[int64][]domain.Priority, error)
	SuspendTags(ctx context.Context, names []string) error
	SetTagPriority(ctx context.Context, name string, p domain.Priority) error
	TagCard(ctx context.Context, cardID int64, name string) error
	CardTags(ctx context.Context, cardID int64) ([]domain.Tag, error)

	SyncOrderIndexes(ctx context.Context, required []Order) error

	LoadStats(ctx context.Context, kind domain.StatsKind, day string) (*domain.Stats, error)
	SaveStats(ctx context.Context, s *domain.Stats) error
	AppendReview(ctx context.Context, r domain.ReviewLog) error
	ReviewHistory(ctx context.Context, cardID int64) ([]domain.ReviewLog, error)
}
