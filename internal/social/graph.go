package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/nextscene/backend/internal/models"
)

var (
	// ErrSelfFollow indicates an attempt to follow one's own identity.
	ErrSelfFollow = errors.New("cannot follow yourself")
	// ErrAlreadyFollowing indicates the follow edge already exists.
	ErrAlreadyFollowing = errors.New("already following")
	// ErrNotFollowing indicates there is no edge to remove.
	ErrNotFollowing = errors.New("not following")
)

// EdgeStore persists follow edges. Follow and Unfollow must apply the edge
// write and both counter updates as a single atomic unit: a failure leaves
// edge and counters at their pre-call values.
type EdgeStore interface {
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	CountFollowers(ctx context.Context, userID string) (int64, error)
	CountFollowing(ctx context.Context, userID string) (int64, error)
	ListFollowers(ctx context.Context, userID string) ([]models.User, error)
	ListFollowing(ctx context.Context, userID string) ([]models.User, error)
}

// Graph exposes the follow/unfollow operations and follower queries of the
// social graph.
type Graph struct {
	store EdgeStore
}

// NewGraph constructs a Graph over the provided edge store.
func NewGraph(store EdgeStore) *Graph {
	if store == nil {
		panic("social: edge store must not be nil")
	}
	return &Graph{store: store}
}

// Follow creates the directed edge follower → followee along with both
// denormalized counter updates.
func (g *Graph) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == "" || followeeID == "" {
		return errors.New("both user ids must be provided")
	}
	if followerID == followeeID {
		return ErrSelfFollow
	}

	if err := g.store.Follow(ctx, followerID, followeeID); err != nil {
		return fmt.Errorf("follow %s -> %s: %w", followerID, followeeID, err)
	}
	return nil
}

// Unfollow removes the directed edge and reverses both counters.
func (g *Graph) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if followerID == "" || followeeID == "" {
		return errors.New("both user ids must be provided")
	}
	if followerID == followeeID {
		return ErrSelfFollow
	}

	if err := g.store.Unfollow(ctx, followerID, followeeID); err != nil {
		return fmt.Errorf("unfollow %s -> %s: %w", followerID, followeeID, err)
	}
	return nil
}

// IsFollowing reports whether follower currently follows followee.
func (g *Graph) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	following, err := g.store.IsFollowing(ctx, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("check follow %s -> %s: %w", followerID, followeeID, err)
	}
	return following, nil
}

// FollowerCount returns how many identities follow the user. A query failure
// is returned as an error, never reported as a zero count.
func (g *Graph) FollowerCount(ctx context.Context, userID string) (int64, error) {
	count, err := g.store.CountFollowers(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count followers of %s: %w", userID, err)
	}
	return count, nil
}

// FollowingCount returns how many identities the user follows.
func (g *Graph) FollowingCount(ctx context.Context, userID string) (int64, error) {
	count, err := g.store.CountFollowing(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count following of %s: %w", userID, err)
	}
	return count, nil
}

// ListFollowers returns the profiles of the user's followers.
func (g *Graph) ListFollowers(ctx context.Context, userID string) ([]models.User, error) {
	users, err := g.store.ListFollowers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list followers of %s: %w", userID, err)
	}
	return users, nil
}

// ListFollowing returns the profiles the user follows.
func (g *Graph) ListFollowing(ctx context.Context, userID string) ([]models.User, error) {
	users, err := g.store.ListFollowing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list following of %s: %w", userID, err)
	}
	return users, nil
}
