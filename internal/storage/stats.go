package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/knoldeck/internal/domain"
)

type statsRow struct {
	ID          int64   `db:"id"`
	Kind        int     `db:"kind"`
	Day         string  `db:"day"`
	Reps        int     `db:"reps"`
	ReviewTime  float64 `db:"review_time"`
	AverageTime float64 `db:"average_time"`
	NewEase0    int     `db:"new_ease0"`
	NewEase1    int     `db:"new_ease1"`
	NewEase2    int     `db:"new_ease2"`
	NewEase3    int     `db:"new_ease3"`
	NewEase4    int     `db:"new_ease4"`
	YoungEase0  int     `db:"young_ease0"`
	YoungEase1  int     `db:"young_ease1"`
	YoungEase2  int     `db:"young_ease2"`
	YoungEase3  int     `db:"young_ease3"`
	YoungEase4  int     `db:"young_ease4"`
	MatureEase0 int     `db:"mature_ease0"`
	MatureEase1 int     `db:"mature_ease1"`
	MatureEase2 int     `db:"mature_ease2"`
	MatureEase3 int     `db:"mature_ease3"`
	MatureEase4 int     `db:"mature_ease4"`
}

func (r statsRow) stats() *domain.Stats {
	return &domain.Stats{
		ID:          r.ID,
		Kind:        domain.StatsKind(r.Kind),
		Day:         r.Day,
		Reps:        r.Reps,
		ReviewTime:  r.ReviewTime,
		AverageTime: r.AverageTime,
		NewEase:     [5]int{r.NewEase0, r.NewEase1, r.NewEase2, r.NewEase3, r.NewEase4},
		YoungEase:   [5]int{r.YoungEase0, r.YoungEase1, r.YoungEase2, r.YoungEase3, r.YoungEase4},
		MatureEase:  [5]int{r.MatureEase0, r.MatureEase1, r.MatureEase2, r.MatureEase3, r.MatureEase4},
	}
}

func rowFromStats(s *domain.Stats) statsRow {
	return statsRow{
		ID:          s.ID,
		Kind:        int(s.Kind),
		Day:         s.Day,
		Reps:        s.Reps,
		ReviewTime:  s.ReviewTime,
		AverageTime: s.AverageTime,
		NewEase0:    s.NewEase[0],
		NewEase1:    s.NewEase[1],
		NewEase2:    s.NewEase[2],
		NewEase3:    s.NewEase[3],
		NewEase4:    s.NewEase[4],
		YoungEase0:  s.YoungEase[0],
		YoungEase1:  s.YoungEase[1],
		YoungEase2:  s.YoungEase[2],
		YoungEase3:  s.YoungEase[3],
		YoungEase4:  s.YoungEase[4],
		MatureEase0: s.MatureEase[0],
		MatureEase1: s.MatureEase[1],
		MatureEase2: s.MatureEase[2],
		MatureEase3: s.MatureEase[3],
		MatureEase4: s.MatureEase[4],
	}
}

const statsColumns = `id, kind, day, reps, review_time, average_time,
	new_ease0, new_ease1, new_ease2, new_ease3, new_ease4,
	young_ease0, young_ease1, young_ease2, young_ease3, young_ease4,
	mature_ease0, mature_ease1, mature_ease2, mature_ease3, mature_ease4`

// LoadStats returns the stats row for kind and day, or nil if there is none.
// The lifetime row is looked up by kind alone.
func (db *DB) LoadStats(ctx context.Context, kind domain.StatsKind, day string) (*domain.Stats, error) {
	var row statsRow
	var err error
	if kind == domain.StatsLifetime {
		err = sqlx.GetContext(ctx, db.ext, &row,
			`SELECT `+statsColumns+` FROM stats WHERE kind = ? ORDER BY id LIMIT 1`, int(kind))
	} else {
		err = sqlx.GetContext(ctx, db.ext, &row,
			`SELECT `+statsColumns+` FROM stats WHERE kind = ? AND day = ?`, int(kind), day)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return row.stats(), nil
}

// SaveStats inserts s when it has no ID yet, otherwise updates it in place.
func (db *DB) SaveStats(ctx context.Context, s *domain.Stats) error {
	row := rowFromStats(s)
	if s.ID == 0 {
		res, err := sqlx.NamedExecContext(ctx, db.ext, `
			INSERT INTO stats (kind, day, reps, review_time, average_time,
				new_ease0, new_ease1, new_ease2, new_ease3, new_ease4,
				young_ease0, young_ease1, young_ease2, young_ease3, young_ease4,
				mature_ease0, mature_ease1, mature_ease2, mature_ease3, mature_ease4)
			VALUES (:kind, :day, :reps, :review_time, :average_time,
				:new_ease0, :new_ease1, :new_ease2, :new_ease3, :new_ease4,
				:young_ease0, :young_ease1, :young_ease2, :young_ease3, :young_ease4,
				:mature_ease0, :mature_ease1, :mature_ease2, :mature_ease3, :mature_ease4)
		`, row)
		if err != nil {
			return fmt.Errorf("failed to insert stats: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID for stats: %w", err)
		}
		s.ID = id
		return nil
	}

	_, err := sqlx.NamedExecContext(ctx, db.ext, `
		UPDATE stats SET
			reps = :reps, review_time = :review_time, average_time = :average_time,
			new_ease0 = :new_ease0, new_ease1 = :new_ease1, new_ease2 = :new_ease2,
			new_ease3 = :new_ease3, new_ease4 = :new_ease4,
			young_ease0 = :young_ease0, young_ease1 = :young_ease1, young_ease2 = :young_ease2,
			young_ease3 = :young_ease3, young_ease4 = :young_ease4,
			mature_ease0 = :mature_ease0, mature_ease1 = :mature_ease1, mature_ease2 = :mature_ease2,
			mature_ease3 = :mature_ease3, mature_ease4 = :mature_ease4
		WHERE id = :id
	`, row)
	if err != nil {
		return fmt.Errorf("failed to update stats %d: %w", s.ID, err)
	}
	return nil
}
