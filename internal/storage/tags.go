package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/knoldeck/internal/domain"
)

type tagPriorityRow struct {
	CardID   int64         `db:"card_id"`
	Priority sql.NullInt64 `db:"priority"`
}

// CardTagPriorities maps cards to the priorities of their tags. A nil ids
// slice selects every card.
func (db *DB) CardTagPriorities(ctx context.Context, ids []int64) (map[int64][]domain.Priority, error) {
	const base = `
		SELECT c.id AS card_id, t.priority AS priority
		FROM cards c
		LEFT JOIN card_tags ct ON ct.card_id = c.id
		LEFT JOIN tags t ON t.id = ct.tag_id`

	out := make(map[int64][]domain.Priority)
	collect := func(rows []tagPriorityRow) {
		for _, r := range rows {
			if _, ok := out[r.CardID]; !ok {
				out[r.CardID] = []domain.Priority{}
			}
			if r.Priority.Valid {
				out[r.CardID] = append(out[r.CardID], domain.Priority(r.Priority.Int64))
			}
		}
	}

	if ids == nil {
		var rows []tagPriorityRow
		if err := sqlx.SelectContext(ctx, db.ext, &rows, base); err != nil {
			return nil, fmt.Errorf("failed to load tag priorities: %w", err)
		}
		collect(rows)
		return out, nil
	}

	_, err := inBatches(ids, func(batch []int64) (int, error) {
		query, args, err := sqlx.In(base+` WHERE c.id IN (?)`, batch)
		if err != nil {
			return 0, err
		}
		var rows []tagPriorityRow
		if err := sqlx.SelectContext(ctx, db.ext, &rows, query, args...); err != nil {
			return 0, fmt.Errorf("failed to load tag priorities: %w", err)
		}
		collect(rows)
		return len(rows), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SuspendTags marks the named tags as suspending, creating missing ones.
func (db *DB) SuspendTags(ctx context.Context, names []string) error {
	for _, name := range names {
		if err := db.SetTagPriority(ctx, name, domain.PrioritySuspended); err != nil {
			return err
		}
	}
	return nil
}

// SetTagPriority upserts a tag with the given priority. Tag names are
// matched case-insensitively.
func (db *DB) SetTagPriority(ctx context.Context, name string, p domain.Priority) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("empty tag name")
	}
	_, err := db.ext.ExecContext(ctx, `
		INSERT INTO tags (name, priority) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET priority = excluded.priority
	`, name, int(p))
	if err != nil {
		return fmt.Errorf("failed to set priority of tag %q: %w", name, err)
	}
	return nil
}

// TagCard attaches a tag to a card. Unknown tags are created with normal
// priority.
func (db *DB) TagCard(ctx context.Context, cardID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("empty tag name")
	}
	_, err := db.ext.ExecContext(ctx, `INSERT INTO tags (name, priority) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		name, int(domain.PriorityNormal))
	if err != nil {
		return fmt.Errorf("failed to create tag %q: %w", name, err)
	}
	_, err = db.ext.ExecContext(ctx, `
		INSERT INTO card_tags (card_id, tag_id)
		SELECT ?, id FROM tags WHERE name = ?
		ON CONFLICT DO NOTHING
	`, cardID, name)
	if err != nil {
		return fmt.Errorf("failed to tag card %d with %q: %w", cardID, name, err)
	}
	return nil
}

// CardTags lists the tags attached to a card.
func (db *DB) CardTags(ctx context.Context, cardID int64) ([]domain.Tag, error) {
	var rows []struct {
		ID       int64  `db:"id"`
		Name     string `db:"name"`
		Priority int    `db:"priority"`
	}
	err := sqlx.SelectContext(ctx, db.ext, &rows, `
		SELECT t.id, t.name, t.priority
		FROM tags t JOIN card_tags ct ON ct.tag_id = t.id
		WHERE ct.card_id = ?
		ORDER BY t.name
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags for card %d: %w", cardID, err)
	}
	tags := make([]domain.Tag, 0, len(rows))
	for _, r := range rows {
		tags = append(tags, domain.Tag{ID: r.ID, Name: r.Name, Priority: domain.Priority(r.Priority)})
	}
	return tags, nil
}
