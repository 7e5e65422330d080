package handlers

import (
	"context"
	"io"

	"github.com/nextscene/backend/internal/models"
	"github.com/nextscene/backend/internal/session"
)

// UserStore captures the persistence operations required by the auth and
// profile handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	UpdateProfile(ctx context.Context, user models.User) error
	SearchByUsernamePrefix(ctx context.Context, prefix, excludeID string, limit int) ([]models.User, error)
}

// SessionManager issues, validates and refreshes authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Validate(ctx context.Context, accessToken string) (string, error)
	Revoke(ctx context.Context, refreshToken string)
}

// SessionDirectory resolves the per-identity session bundle holding the
// cached profile and the watch-state registries.
type SessionDirectory interface {
	For(ctx context.Context, userID string) (*session.Bundle, error)
	Drop(ctx context.Context, userID string)
}

// CatalogProvider resolves search and detail lookups against the external
// movie and series metadata API.
type CatalogProvider interface {
	Search(ctx context.Context, query string, kind models.ContentKind) ([]models.CatalogItem, error)
	Detail(ctx context.Context, id string) (models.CatalogDetail, error)
}

// SocialGraph captures the follow operations required by the social handlers.
type SocialGraph interface {
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	FollowerCount(ctx context.Context, userID string) (int64, error)
	FollowingCount(ctx context.Context, userID string) (int64, error)
	ListFollowers(ctx context.Context, userID string) ([]models.User, error)
	ListFollowing(ctx context.Context, userID string) ([]models.User, error)
}

// MembershipReader lists watch-state memberships for any identity without
// going through that identity's session bundle.
type MembershipReader interface {
	ListMembers(ctx context.Context, userID string, kind models.ContentKind, list models.ListKind) ([]string, error)
}

// FeedService captures post authoring and the per-post social counters.
type FeedService interface {
	CreatePost(ctx context.Context, authorID string, item models.CatalogItem, rating int, title, text string) (models.Post, error)
	Feed(ctx context.Context) ([]models.Post, error)
	PostsByAuthor(ctx context.Context, authorID string) ([]models.Post, error)
	Post(ctx context.Context, postID string) (models.Post, error)
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)
	AddComment(ctx context.Context, postID, userID, text string) (models.Comment, error)
	Comments(ctx context.Context, postID string) ([]models.Comment, error)
}

// AvatarStorage persists uploaded profile images and returns their public URL.
type AvatarStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}
