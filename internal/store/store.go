// Package store persists users and saved searches in Postgres. Filters live
// in structured columns; the historical query-embedded encoding is only
// decoded for rows written before the migration (see legacy.go).
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wallawatch/wallawatch/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         BIGINT PRIMARY KEY,
	username   TEXT NOT NULL DEFAULT '',
	active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS saved_searches (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	query      TEXT NOT NULL,
	min_price  DOUBLE PRECISION,
	max_price  DOUBLE PRECISION,
	radius_km  INTEGER,
	shipping   BOOLEAN NOT NULL DEFAULT FALSE,
	strict     BOOLEAN NOT NULL DEFAULT TRUE,
	omit       TEXT[] NOT NULL DEFAULT '{}',
	active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const searchColumns = `id, user_id, query, min_price, max_price, radius_km,
	shipping, strict, omit, active, created_at`

type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies connectivity.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// InitSchema creates the tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// EnsureUser registers a user on first contact and reactivates a known one.
func (s *Store) EnsureUser(ctx context.Context, id int64, username string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username`,
		id, username,
	)
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", id, err)
	}
	return nil
}

func (s *Store) SetUserActive(ctx context.Context, id int64, active bool) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set user %d active=%t: %w", id, active, err)
	}
	return nil
}

// ListActiveSearches returns the searches the poller must evaluate this
// cycle: active searches of active users.
func (s *Store) ListActiveSearches(ctx context.Context) ([]models.SavedSearch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.id, s.user_id, s.query, s.min_price, s.max_price, s.radius_km,
		        s.shipping, s.strict, s.omit, s.active, s.created_at
		 FROM saved_searches s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.active = TRUE AND u.active = TRUE
		 ORDER BY s.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query active searches: %w", err)
	}
	defer rows.Close()
	return scanSearches(rows)
}

// ListByUser returns all of a user's searches, active or not.
func (s *Store) ListByUser(ctx context.Context, userID int64) ([]models.SavedSearch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+searchColumns+`
		 FROM saved_searches WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query searches for user %d: %w", userID, err)
	}
	defer rows.Close()
	return scanSearches(rows)
}

// Add stores a new active search and returns its id.
func (s *Store) Add(ctx context.Context, userID int64, query string, f models.FilterSet) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO saved_searches
		   (user_id, query, min_price, max_price, radius_km, shipping, strict, omit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		userID, query, f.Min, f.Max, f.Km, f.Shipping, f.Strict, omitOrEmpty(f.Omit),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert search: %w", err)
	}
	return id, nil
}

// Update rewrites a search's query and filters, checking ownership.
func (s *Store) Update(ctx context.Context, id, userID int64, query string, f models.FilterSet) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE saved_searches
		 SET query = $3, min_price = $4, max_price = $5, radius_km = $6,
		     shipping = $7, strict = $8, omit = $9
		 WHERE id = $1 AND user_id = $2`,
		id, userID, query, f.Min, f.Max, f.Km, f.Shipping, f.Strict, omitOrEmpty(f.Omit),
	)
	if err != nil {
		return fmt.Errorf("update search %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("search %d not found for user %d", id, userID)
	}
	return nil
}

// Toggle flips a search's active flag and returns the new state.
func (s *Store) Toggle(ctx context.Context, id, userID int64) (bool, error) {
	var active bool
	err := s.pool.QueryRow(ctx,
		`UPDATE saved_searches SET active = NOT active
		 WHERE id = $1 AND user_id = $2
		 RETURNING active`,
		id, userID,
	).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("toggle search %d: %w", id, err)
	}
	return active, nil
}

// Delete removes a search, checking ownership.
func (s *Store) Delete(ctx context.Context, id, userID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM saved_searches WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete search %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("search %d not found for user %d", id, userID)
	}
	return nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSearches(rows rowScanner) ([]models.SavedSearch, error) {
	var searches []models.SavedSearch
	for rows.Next() {
		var ss models.SavedSearch
		if err := rows.Scan(
			&ss.ID, &ss.UserID, &ss.Query,
			&ss.Filters.Min, &ss.Filters.Max, &ss.Filters.Km,
			&ss.Filters.Shipping, &ss.Filters.Strict, &ss.Filters.Omit,
			&ss.Active, &ss.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		decodeLegacy(&ss)
		searches = append(searches, ss)
	}
	return searches, rows.Err()
}

func omitOrEmpty(omit []string) []string {
	if omit == nil {
		return []string{}
	}
	return omit
}
