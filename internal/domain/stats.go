package domain

// StatsKind distinguishes the lifetime row from per-day rows.
type StatsKind int

const (
	StatsLifetime StatsKind = 0
	StatsDaily    StatsKind = 1
)

// Bucket is the maturity class of a card at the time it was answered.
type Bucket int

const (
	BucketNew Bucket = iota
	BucketYoung
	BucketMature
)

func (b Bucket) String() string {
	switch b {
	case BucketNew:
		return "new"
	case BucketYoung:
		return "young"
	default:
		return "mature"
	}
}

// Stats aggregates answer outcomes for a day or for the deck's lifetime.
type Stats struct {
	ID          int64
	Kind        StatsKind
	Day         string // YYYY-MM-DD in deck time
	Reps        int
	ReviewTime  float64
	AverageTime float64
	NewEase     [5]int
	YoungEase   [5]int
	MatureEase  [5]int
}

// NewStats returns an empty row for the given kind and day.
func NewStats(kind StatsKind, day string) *Stats {
	return &Stats{Kind: kind, Day: day}
}

// NewCardsDone is the number of new cards answered in this record.
func (s *Stats) NewCardsDone() int {
	n := 0
	for _, v := range s.NewEase {
		n += v
	}
	return n
}

// Clone returns a deep copy.
func (s *Stats) Clone() *Stats {
	c := *s
	return &c
}
