package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Day lengths and thresholds shared by the scheduler.
const (
	SecondsPerDay   = 86400.0
	InitialFactor   = 2.5
	MaxReviewTime   = 60.0
	MatureThreshold = 21.0
)

// NewCardOrder controls the order new cards are drawn in.
type NewCardOrder int

const (
	NewCardsRandom NewCardOrder = iota
	NewCardsInOrder
	NewCardsNewestFirst
)

// NewCardSpacing controls how new cards are mixed with reviews.
type NewCardSpacing int

const (
	NewCardsDistribute NewCardSpacing = iota
	NewCardsLast
	NewCardsFirst
)

// ReviewCardOrder controls the order review cards are drawn in.
type ReviewCardOrder int

const (
	ReviewOldestIntervalFirst ReviewCardOrder = iota
	ReviewNewestIntervalFirst
	ReviewDueFirst
	ReviewRandom
)

// Band is an interval range in days for one ease grade.
type Band struct {
	Min float64 `json:"min" koanf:"min" validate:"gt=0"`
	Max float64 `json:"max" koanf:"max" validate:"gtefield=Min"`
}

// DeckConfig holds the per-collection scheduling settings.
type DeckConfig struct {
	HardInterval Band `json:"hardInterval" koanf:"hard_interval"`
	MidInterval  Band `json:"midInterval" koanf:"mid_interval"`
	EasyInterval Band `json:"easyInterval" koanf:"easy_interval"`

	Delay0 float64 `json:"delay0" koanf:"delay0" validate:"gte=0"`
	Delay1 float64 `json:"delay1" koanf:"delay1" validate:"gte=0"`
	Delay2 float64 `json:"delay2" koanf:"delay2" validate:"gte=0,lte=1"`

	CollapseTime  float64 `json:"collapseTime" koanf:"collapse_time" validate:"gte=0"`
	FailedCardMax int     `json:"failedCardMax" koanf:"failed_card_max" validate:"gte=0"`

	NewCardsPerDay  int             `json:"newCardsPerDay" koanf:"new_cards_per_day" validate:"gte=0"`
	NewCardOrder    NewCardOrder    `json:"newCardOrder" koanf:"new_card_order" validate:"gte=0,lte=2"`
	NewCardSpacing  NewCardSpacing  `json:"newCardSpacing" koanf:"new_card_spacing" validate:"gte=0,lte=2"`
	ReviewCardOrder ReviewCardOrder `json:"revCardOrder" koanf:"review_card_order" validate:"gte=0,lte=3"`

	SessionRepLimit  int     `json:"sessionRepLimit" koanf:"session_rep_limit" validate:"gte=0"`
	SessionTimeLimit float64 `json:"sessionTimeLimit" koanf:"session_time_limit" validate:"gte=0"`

	UTCOffset int `json:"utcOffset" koanf:"utc_offset" validate:"gte=-86400,lte=86400"`

	InitialFactor   float64 `json:"initialFactor" koanf:"initial_factor" validate:"gtefield=FactorFloor"`
	FactorFloor     float64 `json:"factorFloor" koanf:"factor_floor" validate:"gt=0"`
	LapsePenalty    float64 `json:"lapsePenalty" koanf:"lapse_penalty" validate:"gte=0"`
	HardPenalty     float64 `json:"hardPenalty" koanf:"hard_penalty" validate:"gte=0"`
	EasyBonus       float64 `json:"easyBonus" koanf:"easy_bonus" validate:"gte=0"`
	EasyMultiplier  float64 `json:"easyMultiplier" koanf:"easy_multiplier" validate:"gte=1"`
	MaxInterval     float64 `json:"maxInterval" koanf:"max_interval" validate:"gte=0"`
	MatureThreshold float64 `json:"matureThreshold" koanf:"mature_threshold" validate:"gt=0"`
}

// DefaultDeckConfig returns the settings a new collection starts with.
func DefaultDeckConfig() DeckConfig {
	return DeckConfig{
		HardInterval:     Band{Min: 0.333, Max: 0.5},
		MidInterval:      Band{Min: 3.0, Max: 5.0},
		EasyInterval:     Band{Min: 7.0, Max: 9.0},
		Delay0:           600,
		Delay1:           600,
		Delay2:           0,
		CollapseTime:     1,
		FailedCardMax:    20,
		NewCardsPerDay:   20,
		NewCardOrder:     NewCardsInOrder,
		NewCardSpacing:   NewCardsDistribute,
		ReviewCardOrder:  ReviewOldestIntervalFirst,
		SessionRepLimit:  0,
		SessionTimeLimit: 600,
		UTCOffset:        4 * 3600,
		InitialFactor:    InitialFactor,
		FactorFloor:      1.3,
		LapsePenalty:     0.20,
		HardPenalty:      0.15,
		EasyBonus:        0.10,
		EasyMultiplier:   1.3,
		MaxInterval:      0,
		MatureThreshold:  MatureThreshold,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports the first out-of-range setting.
func (c DeckConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("deck config: %w", err)
	}
	return nil
}

// BandFor returns the graduation interval band for a passing grade.
func (c DeckConfig) BandFor(e Ease) Band {
	switch e {
	case Hard:
		return c.HardInterval
	case Easy:
		return c.EasyInterval
	default:
		return c.MidInterval
	}
}

// Counts is the denormalised counter cache kept per deck.
type Counts struct {
	FailedSoon     int     `json:"failedSoon"`
	FailedNow      int     `json:"failedNow"`
	Review         int     `json:"review"`
	New            int     `json:"new"`
	NewToday       int     `json:"newToday"`
	AverageFactor  float64 `json:"averageFactor"`
	NewCardModulus int     `json:"newCardModulus"`
	CardCount      int     `json:"cardCount"`
	FactCount      int     `json:"factCount"`
}

// SameQueues reports whether the queue counters of c and o agree. Derived
// values (NewToday, modulus, factor) are ignored.
func (c Counts) SameQueues(o Counts) bool {
	return c.FailedSoon == o.FailedSoon &&
		c.FailedNow == o.FailedNow &&
		c.Review == o.Review &&
		c.New == o.New
}
