package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/store"
)

const cardColumns = `id, fact_id, fact_key, question, answer, type, priority, hold, due, interval,
	last_interval, last_due, factor, last_factor, reps, successive, is_due, created, modified`

// schedulable mirrors domain.Card.Schedulable.
const schedulable = `priority > 0 AND hold = 0`

type cardRow struct {
	ID           int64   `db:"id"`
	FactID       int64   `db:"fact_id"`
	FactKey      string  `db:"fact_key"`
	Question     string  `db:"question"`
	Answer       string  `db:"answer"`
	Type         int     `db:"type"`
	Priority     int     `db:"priority"`
	Hold         int     `db:"hold"`
	Due          float64 `db:"due"`
	Interval     float64 `db:"interval"`
	LastInterval float64 `db:"last_interval"`
	LastDue      float64 `db:"last_due"`
	Factor       float64 `db:"factor"`
	LastFactor   float64 `db:"last_factor"`
	Reps         int     `db:"reps"`
	Successive   int     `db:"successive"`
	IsDue        bool    `db:"is_due"`
	Created      float64 `db:"created"`
	Modified     float64 `db:"modified"`
}

func (r cardRow) card() domain.Card {
	return domain.Card{
		ID:           r.ID,
		FactID:       r.FactID,
		FactKey:      r.FactKey,
		Question:     r.Question,
		Answer:       r.Answer,
		Type:         domain.CardType(r.Type),
		Priority:     domain.Priority(r.Priority),
		Hold:         domain.Hold(r.Hold),
		Due:          r.Due,
		Interval:     r.Interval,
		LastInterval: r.LastInterval,
		LastDue:      r.LastDue,
		Factor:       r.Factor,
		LastFactor:   r.LastFactor,
		Reps:         r.Reps,
		Successive:   r.Successive,
		IsDue:        r.IsDue,
		Created:      r.Created,
		Modified:     r.Modified,
	}
}

func rowFromCard(c *domain.Card) cardRow {
	return cardRow{
		ID:           c.ID,
		FactID:       c.FactID,
		FactKey:      c.FactKey,
		Question:     c.Question,
		Answer:       c.Answer,
		Type:         int(c.Type),
		Priority:     int(c.Priority),
		Hold:         int(c.Hold),
		Due:          c.Due,
		Interval:     c.Interval,
		LastInterval: c.LastInterval,
		LastDue:      c.LastDue,
		Factor:       c.Factor,
		LastFactor:   c.LastFactor,
		Reps:         c.Reps,
		Successive:   c.Successive,
		IsDue:        c.IsDue,
		Created:      c.Created,
		Modified:     c.Modified,
	}
}

// AddCard inserts a new card and sets its ID.
func (db *DB) AddCard(ctx context.Context, c *domain.Card) error {
	row := rowFromCard(c)
	res, err := sqlx.NamedExecContext(ctx, db.ext, `
		INSERT INTO cards (fact_id, fact_key, question, answer, type, priority, hold, due, interval,
			last_interval, last_due, factor, last_factor, reps, successive, is_due, created, modified)
		VALUES (:fact_id, :fact_key, :question, :answer, :type, :priority, :hold, :due, :interval,
			:last_interval, :last_due, :factor, :last_factor, :reps, :successive, :is_due, :created, :modified)
	`, row)
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for card: %w", err)
	}
	c.ID = id
	if c.FactID == 0 {
		if _, err := db.ext.ExecContext(ctx, `UPDATE cards SET fact_id = id WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to set fact id for card %d: %w", id, err)
		}
		c.FactID = id
	}
	return nil
}

// GetCard retrieves a card by id. It returns ErrNotFound for unknown ids.
func (db *DB) GetCard(ctx context.Context, id int64) (*domain.Card, error) {
	var row cardRow
	err := sqlx.GetContext(ctx, db.ext, &row, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find card %d: %w", id, err)
	}
	c := row.card()
	return &c, nil
}

// SaveCard writes every scheduling field of an existing card.
func (db *DB) SaveCard(ctx context.Context, c *domain.Card) error {
	res, err := sqlx.NamedExecContext(ctx, db.ext, `
		UPDATE cards SET
			fact_key = :fact_key, type = :type, priority = :priority, hold = :hold, due = :due, interval = :interval,
			last_interval = :last_interval, last_due = :last_due, factor = :factor,
			last_factor = :last_factor, reps = :reps, successive = :successive,
			is_due = :is_due, modified = :modified
		WHERE id = :id
	`, rowFromCard(c))
	if err != nil {
		return fmt.Errorf("failed to update card %d: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update card %d: %w", c.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update card %d: %w", c.ID, ErrNotFound)
	}
	return nil
}

func filterClause(f store.CardFilter) (string, []any) {
	var b strings.Builder
	args := []any{int(f.Type)}
	b.WriteString(`type = ? AND ` + schedulable)
	if f.OnlyDue {
		b.WriteString(` AND is_due = 1`)
	}
	if f.DueBefore != 0 {
		b.WriteString(` AND due <= ?`)
		args = append(args, f.DueBefore)
	}
	if f.MinPriority > domain.PriorityNone {
		b.WriteString(` AND priority >= ?`)
		args = append(args, int(f.MinPriority))
	}
	return b.String(), args
}

func orderClause(o store.Order) string {
	switch o {
	case store.OrderDueDesc:
		return `priority DESC, due DESC, id`
	case store.OrderIntervalAsc:
		return `priority DESC, interval, id`
	case store.OrderIntervalDesc:
		return `priority DESC, interval DESC, id`
	case store.OrderRandom:
		return `priority DESC, fact_key, id`
	default:
		return `priority DESC, due, id`
	}
}

// CountCards counts schedulable cards matching f.
func (db *DB) CountCards(ctx context.Context, f store.CardFilter) (int, error) {
	where, args := filterClause(f)
	var n int
	if err := sqlx.GetContext(ctx, db.ext, &n, `SELECT COUNT(*) FROM cards WHERE `+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count %s cards: %w", f.Type, err)
	}
	return n, nil
}

// FirstCards returns up to limit schedulable cards matching f in order o.
func (db *DB) FirstCards(ctx context.Context, f store.CardFilter, o store.Order, limit int) ([]domain.Card, error) {
	where, args := filterClause(f)
	args = append(args, limit)
	var rows []cardRow
	query := `SELECT ` + cardColumns + ` FROM cards WHERE ` + where + ` ORDER BY ` + orderClause(o) + ` LIMIT ?`
	if err := sqlx.SelectContext(ctx, db.ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select %s cards: %w", f.Type, err)
	}
	cards := make([]domain.Card, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, r.card())
	}
	return cards, nil
}

// AllCards loads every card.
func (db *DB) AllCards(ctx context.Context) ([]domain.Card, error) {
	var rows []cardRow
	if err := sqlx.SelectContext(ctx, db.ext, &rows, `SELECT `+cardColumns+` FROM cards ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	cards := make([]domain.Card, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, r.card())
	}
	return cards, nil
}

// CountAll returns the total number of cards and distinct facts.
func (db *DB) CountAll(ctx context.Context) (int, int, error) {
	var out struct {
		Cards int `db:"cards"`
		Facts int `db:"facts"`
	}
	err := sqlx.GetContext(ctx, db.ext, &out, `SELECT COUNT(*) AS cards, COUNT(DISTINCT fact_id) AS facts FROM cards`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return out.Cards, out.Facts, nil
}

// AverageFactor returns the mean factor over all cards of type t.
func (db *DB) AverageFactor(ctx context.Context, t domain.CardType) (float64, int, error) {
	var out struct {
		Avg sql.NullFloat64 `db:"avg"`
		N   int             `db:"n"`
	}
	err := sqlx.GetContext(ctx, db.ext, &out, `SELECT AVG(factor) AS avg, COUNT(*) AS n FROM cards WHERE type = ?`, int(t))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to average factor: %w", err)
	}
	return out.Avg.Float64, out.N, nil
}

// EarliestDue returns the smallest due time among schedulable cards.
func (db *DB) EarliestDue(ctx context.Context) (float64, bool, error) {
	var due sql.NullFloat64
	if err := sqlx.GetContext(ctx, db.ext, &due, `SELECT MIN(due) FROM cards WHERE `+schedulable); err != nil {
		return 0, false, fmt.Errorf("failed to find earliest due: %w", err)
	}
	return due.Float64, due.Valid, nil
}

// MarkDue flags elapsed schedulable cards of type t as due.
func (db *DB) MarkDue(ctx context.Context, t domain.CardType, cutoff float64) (int, error) {
	n, err := execAffected(ctx, db.ext, `
		UPDATE cards SET is_due = 1
		WHERE type = ? AND is_due = 0 AND `+schedulable+` AND due <= ?
	`, int(t), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark %s cards due: %w", t, err)
	}
	return n, nil
}

// ClearUnschedulableDue drops the due flag from cards that left the queues.
func (db *DB) ClearUnschedulableDue(ctx context.Context) (int, error) {
	n, err := execAffected(ctx, db.ext, `UPDATE cards SET is_due = 0 WHERE is_due = 1 AND NOT (`+schedulable+`)`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear due flags: %w", err)
	}
	return n, nil
}

// SetPriority writes p to the cards in ids whose priority differs. A
// non-zero modified also stamps the modification time.
func (db *DB) SetPriority(ctx context.Context, ids []int64, p domain.Priority, modified float64) (int, error) {
	return inBatches(ids, func(batch []int64) (int, error) {
		query, args, err := sqlx.In(`
			UPDATE cards SET priority = ?, modified = CASE WHEN ? > 0 THEN ? ELSE modified END
			WHERE priority != ? AND id IN (?)
		`, int(p), modified, modified, int(p), batch)
		if err != nil {
			return 0, err
		}
		n, err := execAffected(ctx, db.ext, query, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to set priority %s: %w", p, err)
		}
		return n, nil
	})
}

// SetHold applies h to the cards in ids whose hold differs and clears their
// due flag, so released cards are picked up again by the next due check.
func (db *DB) SetHold(ctx context.Context, ids []int64, h domain.Hold, modified float64) (int, error) {
	return inBatches(ids, func(batch []int64) (int, error) {
		query, args, err := sqlx.In(`
			UPDATE cards SET hold = ?, is_due = 0, modified = ?
			WHERE hold != ? AND id IN (?)
		`, int(h), modified, int(h), batch)
		if err != nil {
			return 0, err
		}
		n, err := execAffected(ctx, db.ext, query, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to set hold %s: %w", h, err)
		}
		return n, nil
	})
}

// ReleaseHold lifts hold h from the cards in ids, or from all cards holding
// it when ids is nil. The due flag stays clear until the next due check.
func (db *DB) ReleaseHold(ctx context.Context, ids []int64, h domain.Hold, modified float64) (int, error) {
	const release = `UPDATE cards SET hold = 0, is_due = 0, modified = ? WHERE hold = ?`
	if ids == nil {
		n, err := execAffected(ctx, db.ext, release, modified, int(h))
		if err != nil {
			return 0, fmt.Errorf("failed to release %s cards: %w", h, err)
		}
		return n, nil
	}
	return inBatches(ids, func(batch []int64) (int, error) {
		query, args, err := sqlx.In(release+` AND id IN (?)`, modified, int(h), batch)
		if err != nil {
			return 0, err
		}
		n, err := execAffected(ctx, db.ext, query, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to release %s cards: %w", h, err)
		}
		return n, nil
	})
}

// AppendReview writes one review history row.
func (db *DB) AppendReview(ctx context.Context, r domain.ReviewLog) error {
	_, err := db.ext.ExecContext(ctx, `
		INSERT INTO review_history (card_id, time, ease, delay, last_interval, next_interval, next_factor, thinking_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.CardID, r.Time, int(r.Ease), r.Delay, r.LastInterval, r.NextInterval, r.NextFactor, r.ThinkingTime)
	if err != nil {
		return fmt.Errorf("failed to append review for card %d: %w", r.CardID, err)
	}
	return nil
}

// ReviewHistory returns the answers recorded for a card, oldest first.
func (db *DB) ReviewHistory(ctx context.Context, cardID int64) ([]domain.ReviewLog, error) {
	var rows []struct {
		CardID       int64   `db:"card_id"`
		Time         float64 `db:"time"`
		Ease         int     `db:"ease"`
		Delay        float64 `db:"delay"`
		LastInterval float64 `db:"last_interval"`
		NextInterval float64 `db:"next_interval"`
		NextFactor   float64 `db:"next_factor"`
		ThinkingTime float64 `db:"thinking_time"`
	}
	err := sqlx.SelectContext(ctx, db.ext, &rows, `
		SELECT card_id, time, ease, delay, last_interval, next_interval, next_factor, thinking_time
		FROM review_history WHERE card_id = ? ORDER BY id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load review history for card %d: %w", cardID, err)
	}
	logs := make([]domain.ReviewLog, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, domain.ReviewLog{
			CardID:       r.CardID,
			Time:         r.Time,
			Ease:         domain.Ease(r.Ease),
			Delay:        r.Delay,
			LastInterval: r.LastInterval,
			NextInterval: r.NextInterval,
			NextFactor:   r.NextFactor,
			ThinkingTime: r.ThinkingTime,
		})
	}
	return logs, nil
}
