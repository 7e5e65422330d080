package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nextscene/backend/internal/logging"
	"github.com/nextscene/backend/internal/models"
	"github.com/nextscene/backend/internal/repositories"
	"github.com/nextscene/backend/internal/social"
)

// SocialHandler exposes the follow graph.
type SocialHandler struct {
	Graph    SocialGraph
	Sessions SessionManager
}

// Follow handles POST /api/v1/users/follow requests.
func (h SocialHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.mutateEdge(w, r, true)
}

// Unfollow handles POST /api/v1/users/unfollow requests.
func (h SocialHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.mutateEdge(w, r, false)
}

func (h SocialHandler) mutateEdge(w http.ResponseWriter, r *http.Request, follow bool) {
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

	var req followRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid follow payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	var err error
	if follow {
		err = h.Graph.Follow(ctx, userID, req.UserID)
	} else {
		err = h.Graph.Unfollow(ctx, userID, req.UserID)
	}

	if err != nil {
		switch {
		case errors.Is(err, social.ErrSelfFollow):
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cannot follow yourself"})
		case errors.Is(err, social.ErrAlreadyFollowing):
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "already following"})
		case errors.Is(err, social.ErrNotFollowing):
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "not following"})
		case errors.Is(err, repositories.ErrNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
		default:
			logger.Error("follow mutation failed", "error", err, "follower", userID, "followee", req.UserID, "follow", follow)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update follow state"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, followResponse{UserID: req.UserID, Following: follow})
}

// Status handles GET /api/v1/users/following?user= requests.
func (h SocialHandler) Status(w http.ResponseWriter, r *http.Request) {
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

	targetID := strings.TrimSpace(r.URL.Query().Get("user"))
	if targetID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "query parameter user is required"})
		return
	}

	following, err := h.Graph.IsFollowing(ctx, userID, targetID)
	if err != nil {
		logger.Error("follow status lookup failed", "error", err, "follower", userID, "followee", targetID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to check follow state"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, followResponse{UserID: targetID, Following: following})
}

// Counts handles GET /api/v1/users/counts?user= requests. A failed count query
// is reported as an error, never as a zero.
func (h SocialHandler) Counts(w http.ResponseWriter, r *http.Request) {
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

	targetID := strings.TrimSpace(r.URL.Query().Get("user"))
	if targetID == "" {
		targetID = userID
	}

	followers, err := h.Graph.FollowerCount(ctx, targetID)
	if err != nil {
		logger.Error("follower count failed", "error", err, "userId", targetID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to count followers"})
		return
	}

	following, err := h.Graph.FollowingCount(ctx, targetID)
	if err != nil {
		logger.Error("following count failed", "error", err, "userId", targetID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to count following"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, countsResponse{
		UserID:    targetID,
		Followers: followers,
		Following: following,
	})
}

// FollowList handles GET /api/v1/users/follow-list?user=&type= requests,
// returning the public profiles on one side of the follow edge.
func (h SocialHandler) FollowList(w http.ResponseWriter, r *http.Request) {
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

	targetID := strings.TrimSpace(r.URL.Query().Get("user"))
	if targetID == "" {
		targetID = userID
	}

	var (
		users    []models.User
		err      error
		listType = strings.TrimSpace(strings.ToLower(r.URL.Query().Get("type")))
	)
	switch listType {
	case "followers":
		users, err = h.Graph.ListFollowers(ctx, targetID)
	case "following":
		users, err = h.Graph.ListFollowing(ctx, targetID)
	default:
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "type must be followers or following"})
		return
	}
	if err != nil {
		logger.Error("follow list lookup failed", "error", err, "userId", targetID, "type", listType)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load follow list"})
		return
	}

	payloads := make([]publicUserPayload, 0, len(users))
	for _, user := range users {
		payloads = append(payloads, newPublicUserPayload(user))
	}

	respondJSON(ctx, w, http.StatusOK, followListResponse{
		UserID: targetID,
		Type:   listType,
		Users:  payloads,
	})
}

type followRequest struct {
	UserID string `json:"userId"`
}

type followResponse struct {
	UserID    string `json:"userId"`
	Following bool   `json:"following"`
}

type countsResponse struct {
	UserID    string `json:"userId"`
	Followers int64  `json:"followers"`
	Following int64  `json:"following"`
}

type followListResponse struct {
	UserID string              `json:"userId"`
	Type   string              `json:"type"`
	Users  []publicUserPayload `json:"users"`
}
