package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/store"
)

type deckRow struct {
	Config         string  `db:"config"`
	Salt           string  `db:"salt"`
	FailedSoon     int     `db:"failed_soon_count"`
	FailedNow      int     `db:"failed_now_count"`
	Review         int     `db:"review_count"`
	New            int     `db:"new_count"`
	NewToday       int     `db:"new_count_today"`
	NewCardModulus int     `db:"new_card_modulus"`
	AverageFactor  float64 `db:"average_factor"`
	CardCount      int     `db:"card_count"`
	FactCount      int     `db:"fact_count"`
	Created        float64 `db:"created"`
	Modified       float64 `db:"modified"`
}

// LoadDeck returns the deck row, or nil if the collection is new.
func (db *DB) LoadDeck(ctx context.Context) (*store.DeckRow, error) {
	var row deckRow
	err := sqlx.GetContext(ctx, db.ext, &row, `
		SELECT config, salt, failed_soon_count, failed_now_count, review_count, new_count,
			new_count_today, new_card_modulus, average_factor, card_count, fact_count, created, modified
		FROM deck WHERE id = 1
	`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load deck: %w", err)
	}

	cfg := domain.DefaultDeckConfig()
	if err := json.Unmarshal([]byte(row.Config), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode deck config: %w", err)
	}
	return &store.DeckRow{
		Config: cfg,
		Counts: domain.Counts{
			FailedSoon:     row.FailedSoon,
			FailedNow:      row.FailedNow,
			Review:         row.Review,
			New:            row.New,
			NewToday:       row.NewToday,
			AverageFactor:  row.AverageFactor,
			NewCardModulus: row.NewCardModulus,
			CardCount:      row.CardCount,
			FactCount:      row.FactCount,
		},
		Salt:     row.Salt,
		Created:  row.Created,
		Modified: row.Modified,
	}, nil
}

// SaveDeck inserts or replaces the deck row.
func (db *DB) SaveDeck(ctx context.Context, d store.DeckRow) error {
	cfg, err := json.Marshal(d.Config)
	if err != nil {
		return fmt.Errorf("failed to encode deck config: %w", err)
	}
	row := deckRow{
		Config:         string(cfg),
		Salt:           d.Salt,
		FailedSoon:     d.Counts.FailedSoon,
		FailedNow:      d.Counts.FailedNow,
		Review:         d.Counts.Review,
		New:            d.Counts.New,
		NewToday:       d.Counts.NewToday,
		NewCardModulus: d.Counts.NewCardModulus,
		AverageFactor:  d.Counts.AverageFactor,
		CardCount:      d.Counts.CardCount,
		FactCount:      d.Counts.FactCount,
		Created:        d.Created,
		Modified:       d.Modified,
	}
	_, err = sqlx.NamedExecContext(ctx, db.ext, `
		INSERT INTO deck (id, config, salt, failed_soon_count, failed_now_count, review_count, new_count,
			new_count_today, new_card_modulus, average_factor, card_count, fact_count, created, modified)
		VALUES (1, :config, :salt, :failed_soon_count, :failed_now_count, :review_count, :new_count,
			:new_count_today, :new_card_modulus, :average_factor, :card_count, :fact_count, :created, :modified)
		ON CONFLICT (id) DO UPDATE SET
			config = excluded.config,
			salt = excluded.salt,
			failed_soon_count = excluded.failed_soon_count,
			failed_now_count = excluded.failed_now_count,
			review_count = excluded.review_count,
			new_count = excluded.new_count,
			new_count_today = excluded.new_count_today,
			new_card_modulus = excluded.new_card_modulus,
			average_factor = excluded.average_factor,
			card_count = excluded.card_count,
			fact_count = excluded.fact_count,
			modified = excluded.modified
	`, row)
	if err != nil {
		return fmt.Errorf("failed to save deck: %w", err)
	}
	return nil
}
