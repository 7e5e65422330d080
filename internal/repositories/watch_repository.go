package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nextscene/backend/internal/db"
	"github.com/nextscene/backend/internal/models"
	"github.com/nextscene/backend/internal/watchstate"
)

// PostgresWatchRepository persists watch-state memberships. One row per
// (user, kind, list, item); presence of the row is the membership test.
type PostgresWatchRepository struct {
	pool db.Pool
}

// NewPostgresWatchRepository constructs a membership store backed by PostgreSQL.
func NewPostgresWatchRepository(pool db.Pool) *PostgresWatchRepository {
	return &PostgresWatchRepository{pool: pool}
}

// ListMembers returns every item id the user has marked under the given kind and list.
func (r *PostgresWatchRepository) ListMembers(ctx context.Context, userID string, kind models.ContentKind, list models.ListKind) ([]string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT item_id
        FROM watch_items
        WHERE user_id = $1 AND kind = $2 AND list = $3
    `, userID, string(kind), string(list))
	if err != nil {
		return nil, fmt.Errorf("query watch items: %w", err)
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var itemID string
		if err := rows.Scan(&itemID); err != nil {
			return nil, fmt.Errorf("scan watch item: %w", err)
		}
		items = append(items, itemID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch items: %w", err)
	}

	return items, nil
}

// Add upserts a membership row with a server-side timestamp. Adding an
// existing membership is a no-op; the lists are sets.
func (r *PostgresWatchRepository) Add(ctx context.Context, userID, itemID string, kind models.ContentKind, list models.ListKind) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_items (user_id, item_id, kind, list, added_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (user_id, kind, list, item_id) DO NOTHING
    `, userID, itemID, string(kind), string(list))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert watch item: %w", err)
	}

	return nil
}

// Remove deletes a membership row. Removing an absent membership is a no-op.
func (r *PostgresWatchRepository) Remove(ctx context.Context, userID, itemID string, kind models.ContentKind, list models.ListKind) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        DELETE FROM watch_items
        WHERE user_id = $1 AND item_id = $2 AND kind = $3 AND list = $4
    `, userID, itemID, string(kind), string(list))
	if err != nil {
		return fmt.Errorf("delete watch item: %w", err)
	}

	return nil
}

var _ watchstate.MembershipStore = (*PostgresWatchRepository)(nil)
