package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nextscene/backend/internal/db"
	"github.com/nextscene/backend/internal/feed"
	"github.com/nextscene/backend/internal/models"
)

const postColumns = `id, author_id, media_id, media_title, media_poster, media_kind,
        title, review_text, rating, like_count, liked_by, comment_count, created_at`

// PostgresPostRepository provides PostgreSQL-backed persistence for posts and comments.
type PostgresPostRepository struct {
	pool db.Pool
}

// NewPostgresPostRepository constructs a post repository backed by PostgreSQL.
func NewPostgresPostRepository(pool db.Pool) *PostgresPostRepository {
	return &PostgresPostRepository{pool: pool}
}

// Create stores a new post in a single write.
func (r *PostgresPostRepository) Create(ctx context.Context, post models.Post) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO posts (id, author_id, media_id, media_title, media_poster, media_kind,
                title, review_text, rating, like_count, liked_by, comment_count, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, '{}', 0, $10)
    `, post.ID, post.AuthorID, post.MediaID, post.MediaTitle, post.MediaPoster,
		post.MediaKind, post.Title, post.ReviewText, post.Rating, post.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

// Get fetches a single post by id.
func (r *PostgresPostRepository) Get(ctx context.Context, postID string) (models.Post, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Post{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, postID)

	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Post{}, ErrNotFound
		}
		return models.Post{}, fmt.Errorf("select post: %w", err)
	}

	return post, nil
}

// ListFeed returns the newest posts up to the limit, descending by timestamp.
func (r *PostgresPostRepository) ListFeed(ctx context.Context, limit int) ([]models.Post, error) {
	return r.list(ctx, `
        SELECT `+postColumns+`
        FROM posts
        ORDER BY created_at DESC
        LIMIT $1
    `, limit)
}

// ListByAuthor returns every post authored by the identity, newest first.
func (r *PostgresPostRepository) ListByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	return r.list(ctx, `
        SELECT `+postColumns+`
        FROM posts
        WHERE author_id = $1
        ORDER BY created_at DESC
    `, authorID)
}

func (r *PostgresPostRepository) list(ctx context.Context, query string, arg any) ([]models.Post, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}

// SetLike mutates the liker list and the like counter in one UPDATE. The
// pairing of the two is only as strong as this single statement; concurrent
// togglers are not serialized against each other beyond it.
func (r *PostgresPostRepository) SetLike(ctx context.Context, postID, userID string, liked bool) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var tag pgconn.CommandTag
	if liked {
		tag, err = conn.Exec(ctx, `
            UPDATE posts
            SET liked_by = array_append(liked_by, $2), like_count = like_count + 1
            WHERE id = $1 AND NOT ($2 = ANY(liked_by))
        `, postID, userID)
	} else {
		tag, err = conn.Exec(ctx, `
            UPDATE posts
            SET liked_by = array_remove(liked_by, $2), like_count = like_count - 1
            WHERE id = $1 AND $2 = ANY(liked_by)
        `, postID, userID)
	}
	if err != nil {
		return fmt.Errorf("update post like: %w", err)
	}

	// Zero rows means either the post is gone or the like state already
	// matched; both are terminal for the caller's toggle.
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, postID); getErr != nil {
			return getErr
		}
	}

	return nil
}

// AddComment creates the comment document.
func (r *PostgresPostRepository) AddComment(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO post_comments (id, post_id, author_id, body, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, comment.ID, comment.PostID, comment.AuthorID, comment.Text, comment.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert comment: %w", err)
	}

	return nil
}

// IncrementCommentCount bumps the denormalized counter on the parent post.
// Runs outside the AddComment insert; the counter may trail the rows.
func (r *PostgresPostRepository) IncrementCommentCount(ctx context.Context, postID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE posts SET comment_count = comment_count + 1 WHERE id = $1
    `, postID)
	if err != nil {
		return fmt.Errorf("increment comment count: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListComments returns the post's comments in ascending timestamp order.
func (r *PostgresPostRepository) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, post_id, author_id, body, created_at
        FROM post_comments
        WHERE post_id = $1
        ORDER BY created_at ASC
    `, postID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.PostID, &comment.AuthorID, &comment.Text, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

func scanPost(row pgx.Row) (models.Post, error) {
	var post models.Post
	err := row.Scan(&post.ID, &post.AuthorID, &post.MediaID, &post.MediaTitle,
		&post.MediaPoster, &post.MediaKind, &post.Title, &post.ReviewText,
		&post.Rating, &post.LikeCount, &post.LikedBy, &post.CommentCount, &post.CreatedAt)
	return post, err
}

var _ feed.PostStore = (*PostgresPostRepository)(nil)
