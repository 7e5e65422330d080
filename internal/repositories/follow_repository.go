package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nextscene/backend/internal/db"
	"github.com/nextscene/backend/internal/models"
	"github.com/nextscene/backend/internal/social"
)

// PostgresFollowRepository persists follow edges. Each follow/unfollow runs as
// one transaction covering the edge row and both denormalized counters, so a
// partial write can never leave the edge and the counters disagreeing.
type PostgresFollowRepository struct {
	pool db.Pool
}

// NewPostgresFollowRepository constructs a follow repository backed by PostgreSQL.
func NewPostgresFollowRepository(pool db.Pool) *PostgresFollowRepository {
	return &PostgresFollowRepository{pool: pool}
}

// Follow inserts the edge and increments both counters atomically.
func (r *PostgresFollowRepository) Follow(ctx context.Context, followerID, followeeID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin follow transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
        INSERT INTO follows (follower_id, followee_id, followed_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (follower_id, followee_id) DO NOTHING
    `, followerID, followeeID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert follow edge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return social.ErrAlreadyFollowing
	}

	if err := r.adjustCounters(ctx, tx, followerID, followeeID, 1); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit follow transaction: %w", err)
	}

	return nil
}

// Unfollow deletes the edge and decrements both counters atomically.
func (r *PostgresFollowRepository) Unfollow(ctx context.Context, followerID, followeeID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unfollow transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
        DELETE FROM follows
        WHERE follower_id = $1 AND followee_id = $2
    `, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("delete follow edge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return social.ErrNotFollowing
	}

	if err := r.adjustCounters(ctx, tx, followerID, followeeID, -1); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit unfollow transaction: %w", err)
	}

	return nil
}

func (r *PostgresFollowRepository) adjustCounters(ctx context.Context, tx pgx.Tx, followerID, followeeID string, delta int64) error {
	tag, err := tx.Exec(ctx, `
        UPDATE users SET following_count = following_count + $2 WHERE id = $1
    `, followerID, delta)
	if err != nil {
		return fmt.Errorf("adjust following count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	tag, err = tx.Exec(ctx, `
        UPDATE users SET follower_count = follower_count + $2 WHERE id = $1
    `, followeeID, delta)
	if err != nil {
		return fmt.Errorf("adjust follower count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// IsFollowing reports whether the directed edge exists.
func (r *PostgresFollowRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2
        )
    `, followerID, followeeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select follow edge: %w", err)
	}

	return exists, nil
}

// CountFollowers returns the number of identities following the user using a
// server-side aggregate rather than fetching the edge rows.
func (r *PostgresFollowRepository) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return r.countEdges(ctx, `SELECT count(*) FROM follows WHERE followee_id = $1`, userID)
}

// CountFollowing returns the number of identities the user follows.
func (r *PostgresFollowRepository) CountFollowing(ctx context.Context, userID string) (int64, error) {
	return r.countEdges(ctx, `SELECT count(*) FROM follows WHERE follower_id = $1`, userID)
}

// ListFollowers returns the profiles of every identity following the user,
// ordered by username.
func (r *PostgresFollowRepository) ListFollowers(ctx context.Context, userID string) ([]models.User, error) {
	return r.listUsers(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE id IN (SELECT follower_id FROM follows WHERE followee_id = $1)
        ORDER BY username
    `, userID)
}

// ListFollowing returns the profiles of every identity the user follows,
// ordered by username.
func (r *PostgresFollowRepository) ListFollowing(ctx context.Context, userID string) ([]models.User, error) {
	return r.listUsers(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE id IN (SELECT followee_id FROM follows WHERE follower_id = $1)
        ORDER BY username
    `, userID)
}

func (r *PostgresFollowRepository) listUsers(ctx context.Context, query, userID string) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query follow members: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan follow member: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate follow members: %w", err)
	}

	return users, nil
}

func (r *PostgresFollowRepository) countEdges(ctx context.Context, query, userID string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int64
	if err := conn.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count follow edges: %w", err)
	}

	return count, nil
}

var _ social.EdgeStore = (*PostgresFollowRepository)(nil)
