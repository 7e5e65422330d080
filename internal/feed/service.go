package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nextscene/backend/internal/models"
)

// DefaultPageSize is the fixed feed window: repeated fetches re-read the same
// top-N slice, there is no cursor.
const DefaultPageSize = 50

var (
	// ErrBlankTitle indicates a post without a title.
	ErrBlankTitle = errors.New("post title must not be blank")
	// ErrNoCatalogItem indicates a post without a bound catalog item.
	ErrNoCatalogItem = errors.New("post must reference a catalog item")
	// ErrInvalidRating indicates a rating outside 1-10.
	ErrInvalidRating = errors.New("rating must be between 1 and 10")
	// ErrBlankComment indicates an empty comment body.
	ErrBlankComment = errors.New("comment text must not be blank")
)

// PostStore persists posts and their social counters. SetLike must apply the
// liker-list mutation and the signed counter increment in one statement;
// AddComment and IncrementCommentCount are separate calls, not one transaction.
type PostStore interface {
	Create(ctx context.Context, post models.Post) error
	Get(ctx context.Context, postID string) (models.Post, error)
	ListFeed(ctx context.Context, limit int) ([]models.Post, error)
	ListByAuthor(ctx context.Context, authorID string) ([]models.Post, error)
	SetLike(ctx context.Context, postID, userID string, liked bool) error
	AddComment(ctx context.Context, comment models.Comment) error
	IncrementCommentCount(ctx context.Context, postID string) error
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
}

// Service implements post authoring, the global feed and per-post social
// counters.
type Service struct {
	store    PostStore
	pageSize int
	nowFunc  func() time.Time
}

// NewService constructs a feed service with the provided page size.
func NewService(store PostStore, pageSize int) *Service {
	if store == nil {
		panic("feed: post store must not be nil")
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{store: store, pageSize: pageSize, nowFunc: func() time.Time { return time.Now().UTC() }}
}

// CreatePost authors a review bound to the catalog item and persists it in a
// single write using a client-generated id.
func (s *Service) CreatePost(ctx context.Context, authorID string, item models.CatalogItem, rating int, title, text string) (models.Post, error) {
	if authorID == "" {
		return models.Post{}, errors.New("author id must be provided")
	}
	if item.ID == "" {
		return models.Post{}, ErrNoCatalogItem
	}
	if strings.TrimSpace(title) == "" {
		return models.Post{}, ErrBlankTitle
	}
	if rating < 1 || rating > 10 {
		return models.Post{}, ErrInvalidRating
	}

	post := models.Post{
		ID:          uuid.NewString(),
		AuthorID:    authorID,
		MediaID:     item.ID,
		MediaTitle:  item.Title,
		MediaPoster: item.Poster,
		MediaKind:   strings.ToLower(item.Kind),
		Title:       strings.TrimSpace(title),
		ReviewText:  text,
		Rating:      rating,
		CreatedAt:   s.nowFunc(),
	}

	if err := s.store.Create(ctx, post); err != nil {
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}

	return post, nil
}

// Feed returns the newest posts, at most one page, descending by timestamp.
func (s *Service) Feed(ctx context.Context) ([]models.Post, error) {
	posts, err := s.store.ListFeed(ctx, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	return posts, nil
}

// PostsByAuthor returns all posts authored by the identity, newest first.
func (s *Service) PostsByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	posts, err := s.store.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("fetch posts by %s: %w", authorID, err)
	}
	return posts, nil
}

// Post fetches a single post.
func (s *Service) Post(ctx context.Context, postID string) (models.Post, error) {
	post, err := s.store.Get(ctx, postID)
	if err != nil {
		return models.Post{}, fmt.Errorf("fetch post %s: %w", postID, err)
	}
	return post, nil
}

// ToggleLike flips the caller's like on the post. Membership in the stored
// liker list decides the direction; the list mutation and the counter
// adjustment land in the same store update.
func (s *Service) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	if userID == "" {
		return false, errors.New("user id must be provided")
	}

	post, err := s.store.Get(ctx, postID)
	if err != nil {
		return false, fmt.Errorf("fetch post %s: %w", postID, err)
	}

	liked := false
	for _, id := range post.LikedBy {
		if id == userID {
			liked = true
			break
		}
	}

	if err := s.store.SetLike(ctx, postID, userID, !liked); err != nil {
		return liked, fmt.Errorf("toggle like on %s: %w", postID, err)
	}

	return !liked, nil
}

// AddComment appends a comment to the post and then bumps the parent's
// comment counter in a second write. The counter can briefly trail the
// comment rows; callers treating it as a hint must tolerate that.
func (s *Service) AddComment(ctx context.Context, postID, userID, text string) (models.Comment, error) {
	if userID == "" {
		return models.Comment{}, errors.New("user id must be provided")
	}
	if strings.TrimSpace(text) == "" {
		return models.Comment{}, ErrBlankComment
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		AuthorID:  userID,
		Text:      text,
		CreatedAt: s.nowFunc(),
	}

	if err := s.store.AddComment(ctx, comment); err != nil {
		return models.Comment{}, fmt.Errorf("add comment to %s: %w", postID, err)
	}

	if err := s.store.IncrementCommentCount(ctx, postID); err != nil {
		return comment, fmt.Errorf("increment comment count on %s: %w", postID, err)
	}

	return comment, nil
}

// Comments lists a post's comments in ascending timestamp order.
func (s *Service) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	comments, err := s.store.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("fetch comments of %s: %w", postID, err)
	}
	return comments, nil
}
