package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/tablepick/topdish/internal/domain/model"
	"github.com/tablepick/topdish/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS rankings (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	restaurant_id TEXT NOT NULL,
	dish_type_id TEXT NOT NULL,
	dish_id TEXT NOT NULL,
	position INTEGER,
	taste_status TEXT,
	notes TEXT NOT NULL,
	photo_refs TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(user_id, restaurant_id, dish_type_id, dish_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_rankings_scope_position
	ON rankings(user_id, restaurant_id, dish_type_id, position)
	WHERE position IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_rankings_dish ON rankings(dish_id);
CREATE INDEX IF NOT EXISTS idx_rankings_user ON rankings(user_id);

CREATE TABLE IF NOT EXISTS history (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	ranking_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	restaurant_id TEXT NOT NULL,
	dish_type_id TEXT NOT NULL,
	dish_id TEXT NOT NULL,
	prev_position INTEGER,
	new_position INTEGER,
	prev_status TEXT,
	new_status TEXT,
	notes TEXT NOT NULL,
	photo_refs TEXT NOT NULL,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_user ON history(user_id, seq);
CREATE INDEX IF NOT EXISTS idx_history_scope
	ON history(user_id, restaurant_id, dish_type_id, seq);
`

const rankingColumns = `id, user_id, restaurant_id, dish_type_id, dish_id,
	position, taste_status, notes, photo_refs, created_at, updated_at`

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the
// schema. Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrPersistence, path, err)
	}
	// A single connection serializes writers and keeps :memory: databases
	// from evaporating between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate: %w", ErrPersistence, err)
	}
	return &SQLiteStore{db: db}, nil
}

// ListScope returns the current rankings of one scope key.
func (s *SQLiteStore) ListScope(ctx context.Context, scope model.ScopeKey) ([]model.Ranking, error) {
	return s.query(ctx, `SELECT `+rankingColumns+` FROM rankings
		WHERE user_id = ? AND restaurant_id = ? AND dish_type_id = ?
		ORDER BY position IS NULL, position, dish_id`,
		scope.UserID, scope.RestaurantID, scope.DishTypeID)
}

// Commit applies the change set and appends history in one transaction.
func (s *SQLiteStore) Commit(ctx context.Context, cs model.ChangeSet) ([]model.HistoryEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryTxLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	// Clear the positions of every row the cascade moves before writing the
	// final states, so the scope/position unique index never sees a
	// transient collision mid-cascade.
	for _, c := range cs.Changes {
		if c.Before == nil || !c.Before.Positional() {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE rankings SET position = NULL WHERE id = ?`, c.Before.ID); err != nil {
			return nil, fmt.Errorf("%w: vacate: %w", ErrPersistence, err)
		}
	}

	entries := make([]model.HistoryEntry, 0, len(cs.Changes))
	for _, c := range cs.Changes {
		r := c.After
		photos, err := json.Marshal(r.PhotoRefs)
		if err != nil {
			return nil, fmt.Errorf("%w: encode photos: %w", ErrPersistence, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rankings (`+rankingColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, restaurant_id, dish_type_id, dish_id) DO UPDATE SET
				position = excluded.position,
				taste_status = excluded.taste_status,
				notes = excluded.notes,
				photo_refs = excluded.photo_refs,
				updated_at = excluded.updated_at`,
			r.ID, r.Scope.UserID, r.Scope.RestaurantID, r.Scope.DishTypeID, r.DishID,
			nullPosition(r.Position), nullStatus(r.Status), r.Notes, string(photos),
			r.CreatedAt.UTC(), r.UpdatedAt.UTC()); err != nil {
			return nil, fmt.Errorf("%w: upsert ranking %s: %w", ErrPersistence, r.DishID, err)
		}

		e := model.HistoryFromChange(c, cs.SubmittedAt)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO history (id, ranking_id, user_id, restaurant_id, dish_type_id,
				dish_id, prev_position, new_position, prev_status, new_status,
				notes, photo_refs, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.RankingID, e.Scope.UserID, e.Scope.RestaurantID, e.Scope.DishTypeID,
			e.DishID, nullPosition(e.PrevPosition), nullPosition(e.NewPosition),
			nullStatus(e.PrevStatus), nullStatus(e.NewStatus),
			e.Notes, string(photos), e.RecordedAt.UTC()); err != nil {
			return nil, fmt.Errorf("%w: append history: %w", ErrPersistence, err)
		}
		entries = append(entries, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrPersistence, err)
	}
	return entries, nil
}

// ListByDish returns every ranking referencing a dish.
func (s *SQLiteStore) ListByDish(ctx context.Context, dishID string) ([]model.Ranking, error) {
	return s.query(ctx, `SELECT `+rankingColumns+` FROM rankings
		WHERE dish_id = ? ORDER BY position IS NULL, position, updated_at`, dishID)
}

// ListByUser returns every current ranking owned by a user.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]model.Ranking, error) {
	return s.query(ctx, `SELECT `+rankingColumns+` FROM rankings
		WHERE user_id = ? ORDER BY restaurant_id, dish_type_id, position IS NULL, position`, userID)
}

// ListPositional returns every ranking currently holding a slot.
func (s *SQLiteStore) ListPositional(ctx context.Context) ([]model.Ranking, error) {
	return s.query(ctx, `SELECT `+rankingColumns+` FROM rankings
		WHERE position IS NOT NULL ORDER BY dish_id, position`)
}

// History returns a user's audit trail in chronological order.
func (s *SQLiteStore) History(ctx context.Context, userID string) ([]model.HistoryEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ranking_id, user_id, restaurant_id, dish_type_id, dish_id,
			prev_position, new_position, prev_status, new_status,
			notes, photo_refs, recorded_at
		FROM history WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: history: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var (
			e          model.HistoryEntry
			prevPos    sql.NullInt64
			newPos     sql.NullInt64
			prevStatus sql.NullString
			newStatus  sql.NullString
			photos     string
		)
		if err := rows.Scan(&e.ID, &e.RankingID, &e.Scope.UserID, &e.Scope.RestaurantID,
			&e.Scope.DishTypeID, &e.DishID, &prevPos, &newPos, &prevStatus, &newStatus,
			&e.Notes, &photos, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("%w: scan history: %w", ErrPersistence, err)
		}
		e.PrevPosition = int(prevPos.Int64)
		e.NewPosition = int(newPos.Int64)
		e.PrevStatus = model.TasteStatus(prevStatus.String)
		e.NewStatus = model.TasteStatus(newStatus.String)
		if err := json.Unmarshal([]byte(photos), &e.PhotoRefs); err != nil {
			return nil, fmt.Errorf("%w: decode photos: %w", ErrPersistence, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: history rows: %w", ErrPersistence, err)
	}
	return out, nil
}

// Count returns the number of ranking rows tracked.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rankings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrPersistence, err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]model.Ranking, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query rankings: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var out []model.Ranking
	for rows.Next() {
		var (
			r      model.Ranking
			pos    sql.NullInt64
			status sql.NullString
			photos string
		)
		if err := rows.Scan(&r.ID, &r.Scope.UserID, &r.Scope.RestaurantID, &r.Scope.DishTypeID,
			&r.DishID, &pos, &status, &r.Notes, &photos, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan ranking: %w", ErrPersistence, err)
		}
		r.Position = int(pos.Int64)
		r.Status = model.TasteStatus(status.String)
		if err := json.Unmarshal([]byte(photos), &r.PhotoRefs); err != nil {
			return nil, fmt.Errorf("%w: decode photos: %w", ErrPersistence, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ranking rows: %w", ErrPersistence, err)
	}
	return out, nil
}

func nullPosition(p int) any {
	if p == 0 {
		return nil
	}
	return p
}

func nullStatus(s model.TasteStatus) any {
	if s == "" {
		return nil
	}
	return string(s)
}
