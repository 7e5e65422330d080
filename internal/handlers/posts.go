package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nextscene/backend/internal/feed"
	"github.com/nextscene/backend/internal/logging"
	"github.com/nextscene/backend/internal/models"
	"github.com/nextscene/backend/internal/repositories"
)

// PostHandler serves the review feed.
type PostHandler struct {
	Feed     FeedService
	Sessions SessionManager
}

// Posts handles /api/v1/posts: POST creates a review, GET returns the feed.
func (h PostHandler) Posts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.feed(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h PostHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid post payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item := models.CatalogItem{
		ID:     strings.TrimSpace(req.MediaID),
		Title:  strings.TrimSpace(req.MediaTitle),
		Poster: strings.TrimSpace(req.MediaPoster),
		Kind:   strings.TrimSpace(req.MediaKind),
	}

	post, err := h.Feed.CreatePost(ctx, userID, item, req.Rating, req.Title, req.ReviewText)
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrNoCatalogItem),
			errors.Is(err, feed.ErrBlankTitle),
			errors.Is(err, feed.ErrInvalidRating):
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			logger.Error("post creation failed", "error", err, "userId", userID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to create post"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusCreated, postResponse{Post: newPostPayload(post)})
}

func (h PostHandler) feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if _, ok := requireIdentity(w, r, h.Sessions); !ok {
		return
	}

	posts, err := h.Feed.Feed(ctx)
	if err != nil {
		logger.Error("feed fetch failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load feed"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, feedResponse{Posts: newPostPayloads(posts)})
}

// ByAuthor handles GET /api/v1/posts/by-author?user= requests.
func (h PostHandler) ByAuthor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	authorID := strings.TrimSpace(r.URL.Query().Get("user"))
	if authorID == "" {
		authorID = userID
	}

	posts, err := h.Feed.PostsByAuthor(ctx, authorID)
	if err != nil {
		logger.Error("author posts fetch failed", "error", err, "authorId", authorID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load posts"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, feedResponse{Posts: newPostPayloads(posts)})
}

// Detail handles GET /api/v1/posts/detail?id= requests.
func (h PostHandler) Detail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if _, ok := requireIdentity(w, r, h.Sessions); !ok {
		return
	}

	postID := strings.TrimSpace(r.URL.Query().Get("id"))
	if postID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "query parameter id is required"})
		return
	}

	post, err := h.Feed.Post(ctx, postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "post not found"})
			return
		}
		logger.Error("post fetch failed", "error", err, "postId", postID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load post"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, postResponse{Post: newPostPayload(post)})
}

// Like handles POST /api/v1/posts/like requests, toggling the caller's like.
func (h PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	var req likeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid like payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.PostID = strings.TrimSpace(req.PostID)
	if req.PostID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "postId is required"})
		return
	}

	liked, err := h.Feed.ToggleLike(ctx, req.PostID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "post not found"})
			return
		}
		logger.Error("like toggle failed", "error", err, "postId", req.PostID, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to toggle like"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, likeResponse{PostID: req.PostID, Liked: liked})
}

// Comments handles /api/v1/posts/comments: GET lists, POST appends.
func (h PostHandler) Comments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listComments(w, r)
	case http.MethodPost:
		h.addComment(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h PostHandler) listComments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if _, ok := requireIdentity(w, r, h.Sessions); !ok {
		return
	}

	postID := strings.TrimSpace(r.URL.Query().Get("postId"))
	if postID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "query parameter postId is required"})
		return
	}

	comments, err := h.Feed.Comments(ctx, postID)
	if err != nil {
		logger.Error("comments fetch failed", "error", err, "postId", postID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load comments"})
		return
	}

	payload := make([]commentPayload, 0, len(comments))
	for _, comment := range comments {
		payload = append(payload, newCommentPayload(comment))
	}

	respondJSON(ctx, w, http.StatusOK, commentsResponse{Comments: payload})
}

func (h PostHandler) addComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid comment payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.PostID = strings.TrimSpace(req.PostID)
	if req.PostID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "postId is required"})
		return
	}

	comment, err := h.Feed.AddComment(ctx, req.PostID, userID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrBlankComment):
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "comment text must not be blank"})
		case errors.Is(err, repositories.ErrNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "post not found"})
		default:
			logger.Error("comment creation failed", "error", err, "postId", req.PostID, "userId", userID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to add comment"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusCreated, commentResponse{Comment: newCommentPayload(comment)})
}

type createPostRequest struct {
	MediaID     string `json:"mediaId"`
	MediaTitle  string `json:"mediaTitle"`
	MediaPoster string `json:"mediaPoster"`
	MediaKind   string `json:"mediaKind"`
	Title       string `json:"title"`
	ReviewText  string `json:"reviewText"`
	Rating      int    `json:"rating"`
}

type likeRequest struct {
	PostID string `json:"postId"`
}

type likeResponse struct {
	PostID string `json:"postId"`
	Liked  bool   `json:"liked"`
}

type addCommentRequest struct {
	PostID string `json:"postId"`
	Text   string `json:"text"`
}

type postResponse struct {
	Post postPayload `json:"post"`
}

type feedResponse struct {
	Posts []postPayload `json:"posts"`
}

type commentResponse struct {
	Comment commentPayload `json:"comment"`
}

type commentsResponse struct {
	Comments []commentPayload `json:"comments"`
}

type postPayload struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"authorId"`
	MediaID      string    `json:"mediaId"`
	MediaTitle   string    `json:"mediaTitle,omitempty"`
	MediaPoster  string    `json:"mediaPoster,omitempty"`
	MediaKind    string    `json:"mediaKind,omitempty"`
	Title        string    `json:"title"`
	ReviewText   string    `json:"reviewText,omitempty"`
	Rating       int       `json:"rating"`
	LikeCount    int64     `json:"likeCount"`
	LikedBy      []string  `json:"likedBy"`
	CommentCount int64     `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

type commentPayload struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func newPostPayload(post models.Post) postPayload {
	likedBy := post.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}
	return postPayload{
		ID:           post.ID,
		AuthorID:     post.AuthorID,
		MediaID:      post.MediaID,
		MediaTitle:   post.MediaTitle,
		MediaPoster:  post.MediaPoster,
		MediaKind:    post.MediaKind,
		Title:        post.Title,
		ReviewText:   post.ReviewText,
		Rating:       post.Rating,
		LikeCount:    post.LikeCount,
		LikedBy:      likedBy,
		CommentCount: post.CommentCount,
		CreatedAt:    post.CreatedAt,
	}
}

func newPostPayloads(posts []models.Post) []postPayload {
	payload := make([]postPayload, 0, len(posts))
	for _, post := range posts {
		payload = append(payload, newPostPayload(post))
	}
	return payload
}

func newCommentPayload(comment models.Comment) commentPayload {
	return commentPayload{
		ID:        comment.ID,
		PostID:    comment.PostID,
		AuthorID:  comment.AuthorID,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt,
	}
}
