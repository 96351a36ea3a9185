// Package stats records answer outcomes into lifetime and daily rows.
package stats

import (
	"math"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

const dayLayout = "2006-01-02"

// Day returns the deck day for now. The day starts utcOffset seconds after
// UTC midnight.
func Day(now time.Time, utcOffset int) string {
	return now.Add(-time.Duration(utcOffset) * time.Second).UTC().Format(dayLayout)
}

// Update adds one answer to s. Review time above MaxReviewTime is capped.
func Update(s *domain.Stats, bucket domain.Bucket, ease domain.Ease, spent time.Duration) {
	s.Reps++
	s.ReviewTime += math.Min(math.Max(spent.Seconds(), 0), domain.MaxReviewTime)
	s.AverageTime = s.ReviewTime / float64(s.Reps)

	if ease < 0 || int(ease) >= len(s.NewEase) {
		return
	}
	switch bucket {
	case domain.BucketNew:
		s.NewEase[ease]++
	case domain.BucketYoung:
		s.YoungEase[ease]++
	case domain.BucketMature:
		s.MatureEase[ease]++
	}
}

// UpdateAll applies the same answer to the lifetime and the daily row.
func UpdateAll(lifetime, daily *domain.Stats, bucket domain.Bucket, ease domain.Ease, spent time.Duration) {
	Update(lifetime, bucket, ease, spent)
	Update(daily, bucket, ease, spent)
}

// Stale reports whether the cached daily row belongs to a different day.
func Stale(daily *domain.Stats, now time.Time, utcOffset int) bool {
	return daily == nil || daily.Day != Day(now, utcOffset)
}
