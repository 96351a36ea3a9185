package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/knoldeck/internal/store"
)

const orderIndexPrefix = "ix_cards_order_"

func orderIndexColumns(o store.Order) string {
	switch o {
	case store.OrderDueDesc:
		return "type, is_due, priority DESC, due DESC"
	case store.OrderIntervalAsc:
		return "type, is_due, priority DESC, interval"
	case store.OrderIntervalDesc:
		return "type, is_due, priority DESC, interval DESC"
	case store.OrderRandom:
		return "type, is_due, priority DESC, fact_key"
	default:
		return "type, is_due, priority DESC, due"
	}
}

// SyncOrderIndexes creates the queue indexes for the required orders and
// drops the ones no longer needed. Statistics are refreshed after a create.
func (db *DB) SyncOrderIndexes(ctx context.Context, required []store.Order) error {
	want := make(map[string]store.Order, len(required))
	for _, o := range required {
		want[orderIndexPrefix+strings.ToLower(o.String())] = o
	}

	var existing []string
	err := sqlx.SelectContext(ctx, db.ext, &existing,
		`SELECT name FROM sqlite_master WHERE type = 'index' AND name LIKE ?`, orderIndexPrefix+"%")
	if err != nil {
		return fmt.Errorf("failed to list order indexes: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
		if _, ok := want[name]; ok {
			continue
		}
		if _, err := db.ext.ExecContext(ctx, `DROP INDEX IF EXISTS `+name); err != nil {
			return fmt.Errorf("failed to drop index %s: %w", name, err)
		}
	}

	created := false
	for _, o := range required {
		name := orderIndexPrefix + strings.ToLower(o.String())
		if have[name] {
			continue
		}
		stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON cards (%s)`, name, orderIndexColumns(o))
		if _, err := db.ext.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index %s: %w", name, err)
		}
		have[name] = true
		created = true
	}
	if created {
		if _, err := db.ext.ExecContext(ctx, `ANALYZE`); err != nil {
			return fmt.Errorf("failed to analyze: %w", err)
		}
	}
	return nil
}

// OrderIndexes lists the queue indexes currently present.
func (db *DB) OrderIndexes(ctx context.Context) ([]string, error) {
	var names []string
	err := sqlx.SelectContext(ctx, db.ext, &names,
		`SELECT name FROM sqlite_master WHERE type = 'index' AND name LIKE ? ORDER BY name`, orderIndexPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list order indexes: %w", err)
	}
	return names, nil
}
