// Package spacing holds the pure interval and factor math applied when a
// card is answered. Nothing here touches storage or counters.
package spacing

import (
	"math"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// earlyBoostFloor is the smallest interval (in days) eligible for the
// second-review boost.
const earlyBoostFloor = 0.166

// Rand returns a uniform value in [0, 1).
type Rand func() float64

// Result is the scheduling outcome of one answer.
type Result struct {
	Type       domain.CardType
	Interval   float64
	Factor     float64
	Due        float64
	Successive int
}

// BucketOf classifies a card before it is answered.
func BucketOf(cfg domain.DeckConfig, c domain.Card) domain.Bucket {
	if c.Type == domain.New {
		return domain.BucketNew
	}
	if c.Interval > cfg.MatureThreshold {
		return domain.BucketMature
	}
	return domain.BucketYoung
}

// LateBy returns how many days past due the card is at now. Negative means
// the card is being reviewed early.
func LateBy(c domain.Card, now time.Time) float64 {
	return (seconds(now) - c.Due) / domain.SecondsPerDay
}

// Answer computes the next state of c for the grade e.
func Answer(cfg domain.DeckConfig, c domain.Card, e domain.Ease, now time.Time, averageFactor float64, rnd Rand) Result {
	late := LateBy(c, now)
	bucket := BucketOf(cfg, c)
	ivl := NextInterval(cfg, c, e, late, rnd)

	res := Result{Interval: ivl, Factor: NextFactor(cfg, c, e, averageFactor)}
	if e == domain.Again {
		res.Type = domain.Failed
		res.Successive = 0
		delay := FailureDelay(cfg, bucket)
		if ivl*domain.SecondsPerDay > delay {
			res.Due = seconds(now) + ivl*domain.SecondsPerDay
			return res
		}
		// Keep due on the exact delay so it lines up with the failed cutoff.
		res.Interval = delay / domain.SecondsPerDay
		res.Due = seconds(now) + delay
		return res
	}

	res.Type = domain.Review
	res.Successive = c.Successive + 1
	res.Due = math.Max(seconds(now)+ivl*domain.SecondsPerDay, seconds(now)+1)
	return res
}

// NextInterval applies the interval rules for grade e. late is measured in
// days and is negative for early reviews.
func NextInterval(cfg domain.DeckConfig, c domain.Card, e domain.Ease, late float64, rnd Rand) float64 {
	interval := c.Interval
	factor := c.Factor
	if factor <= 0 {
		factor = cfg.InitialFactor
	}

	if late < 0 && c.Successive != 0 {
		interval = math.Max(c.LastInterval, c.Interval+late)
		if interval < cfg.MidInterval.Min {
			interval = 0
		}
		late = 0
	}

	switch {
	case e == domain.Again:
		interval *= cfg.Delay2
		if interval < cfg.HardInterval.Min {
			interval = 0
		}
	case c.Type != domain.Review || interval == 0:
		b := cfg.BandFor(e)
		interval = b.Min + rnd()*(b.Max-b.Min)
	default:
		if interval < cfg.HardInterval.Max && interval > earlyBoostFloor {
			mid := (cfg.MidInterval.Min + cfg.MidInterval.Max) / 2.0
			interval = mid / factor
		}
		switch e {
		case domain.Hard:
			interval = (interval + late/4) * 1.2
		case domain.Good:
			interval = (interval + late/2) * factor
		case domain.Easy:
			interval = (interval + late) * factor * cfg.EasyMultiplier
		}
		interval *= 0.95 + rnd()*0.1
	}

	if cfg.MaxInterval > 0 {
		interval = math.Min(interval, cfg.MaxInterval)
	}
	return interval
}

// NextFactor applies the ease adjustment for grade e and clamps the result
// to the configured floor.
func NextFactor(cfg domain.DeckConfig, c domain.Card, e domain.Ease, averageFactor float64) float64 {
	factor := c.Factor
	if c.Type == domain.New {
		factor = averageFactor
	}
	if factor <= 0 {
		factor = cfg.InitialFactor
	}

	if c.Type == domain.Review {
		switch e {
		case domain.Again:
			factor -= cfg.LapsePenalty
		case domain.Hard:
			factor -= cfg.HardPenalty
		}
	}
	if e == domain.Easy {
		factor += cfg.EasyBonus
	}
	return math.Max(cfg.FactorFloor, factor)
}

// FailureDelay is the relearning delay in seconds for a failed card.
func FailureDelay(cfg domain.DeckConfig, b domain.Bucket) float64 {
	if b == domain.BucketMature {
		return cfg.Delay1
	}
	return cfg.Delay0
}

// DueCutoff is the horizon checkDue uses for a card type: failed cards are
// brought forward by the young failure delay.
func DueCutoff(cfg domain.DeckConfig, t domain.CardType, now time.Time) float64 {
	if t == domain.Failed {
		return seconds(now) + cfg.Delay0
	}
	return seconds(now)
}

// Seconds converts t to fractional seconds since the epoch.
func Seconds(t time.Time) float64 {
	return seconds(t)
}

func seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
