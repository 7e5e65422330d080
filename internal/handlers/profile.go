package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nextscene/backend/internal/logging"
	"github.com/nextscene/backend/internal/models"
	"github.com/nextscene/backend/internal/repositories"
)

const maxAvatarBytes = 5 << 20

// ProfileHandler serves the authenticated user's profile and the public
// profiles of other identities.
type ProfileHandler struct {
	Users     UserStore
	Sessions  SessionManager
	Directory SessionDirectory
	Avatars   AvatarStorage
}

// Me handles GET and PUT on /api/v1/profile.
func (h ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h ProfileHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	bundle, err := h.Directory.For(ctx, userID)
	if err != nil {
		logger.Error("failed to initialise session bundle", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load profile"})
		return
	}

	profile, cached := bundle.State.Profile()
	if !cached {
		if err := bundle.State.RefreshProfile(ctx); err != nil {
			logger.Error("profile refresh failed", "error", err, "userId", userID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load profile"})
			return
		}
		profile, _ = bundle.State.Profile()
	}

	respondJSON(ctx, w, http.StatusOK, profileResponse{User: newUserPayload(profile)})
}

func (h ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Error("profile lookup failed", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load profile"})
		return
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Surname != nil {
		user.Surname = strings.TrimSpace(*req.Surname)
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*req.PhoneNumber)
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}
	user.UpdatedAt = time.Now().UTC()

	if err := h.Users.UpdateProfile(ctx, user); err != nil {
		logger.Error("profile update failed", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update profile"})
		return
	}

	h.refreshCachedProfile(r, userID)

	respondJSON(ctx, w, http.StatusOK, profileResponse{User: newUserPayload(user)})
}

// UploadAvatar handles POST /api/v1/profile/avatar multipart uploads.
func (h ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
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

	if h.Avatars == nil {
		logger.Error("avatar storage unavailable")
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "avatar uploads are not configured"})
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		logger.Warn("invalid avatar upload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid multipart payload"})
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		logger.Warn("avatar file missing", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "avatar file is required"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(path.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
	default:
		logger.Warn("unsupported avatar format", "filename", header.Filename)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "avatar must be png, jpeg or webp"})
		return
	}

	name := fmt.Sprintf("%s/%s%s", userID, uuid.NewString(), ext)
	url, err := h.Avatars.Save(ctx, name, file)
	if err != nil {
		logger.Error("avatar upload failed", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to store avatar"})
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Error("profile lookup failed after upload", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update profile"})
		return
	}

	user.AvatarURL = url
	user.UpdatedAt = time.Now().UTC()
	if err := h.Users.UpdateProfile(ctx, user); err != nil {
		logger.Error("avatar url update failed", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update profile"})
		return
	}

	h.refreshCachedProfile(r, userID)

	respondJSON(ctx, w, http.StatusOK, map[string]string{"avatarUrl": url})
}

// Search handles GET /api/v1/users/search?q= requests.
func (h ProfileHandler) Search(w http.ResponseWriter, r *http.Request) {
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

	prefix := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("q")))
	if prefix == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "query parameter q is required"})
		return
	}

	users, err := h.Users.SearchByUsernamePrefix(ctx, prefix, userID, 10)
	if err != nil {
		logger.Error("user search failed", "error", err, "prefix", prefix)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to search users"})
		return
	}

	results := make([]publicUserPayload, 0, len(users))
	for _, user := range users {
		results = append(results, newPublicUserPayload(user))
	}

	respondJSON(ctx, w, http.StatusOK, userSearchResponse{Users: results})
}

// PublicProfile handles GET /api/v1/users/profile?user= requests.
func (h ProfileHandler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if _, ok := requireIdentity(w, r, h.Sessions); !ok {
		return
	}

	targetID := strings.TrimSpace(r.URL.Query().Get("user"))
	if targetID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "query parameter user is required"})
		return
	}

	user, err := h.Users.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		logger.Error("public profile lookup failed", "error", err, "userId", targetID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load profile"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, publicProfileResponse{User: newPublicUserPayload(user)})
}

// refreshCachedProfile best-effort refreshes the session bundle after a
// profile write so subsequent reads see the new values.
func (h ProfileHandler) refreshCachedProfile(r *http.Request, userID string) {
	if h.Directory == nil {
		return
	}
	ctx := r.Context()
	bundle, err := h.Directory.For(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Warn("session bundle refresh failed", "error", err, "userId", userID)
		return
	}
	if err := bundle.State.RefreshProfile(ctx); err != nil {
		logging.FromContext(ctx).Warn("cached profile refresh failed", "error", err, "userId", userID)
	}
}

type updateProfileRequest struct {
	Name        *string `json:"name"`
	Surname     *string `json:"surname"`
	PhoneNumber *string `json:"phoneNumber"`
	Bio         *string `json:"bio"`
}

type profileResponse struct {
	User userPayload `json:"user"`
}

type userSearchResponse struct {
	Users []publicUserPayload `json:"users"`
}

type publicProfileResponse struct {
	User publicUserPayload `json:"user"`
}

// userPayload is reserved for the profile owner; it carries contact fields
// that must never appear in responses about other users.
type userPayload struct {
	ID             string `json:"id"`
	Email          string `json:"email,omitempty"`
	Username       string `json:"username"`
	Name           string `json:"name,omitempty"`
	Surname        string `json:"surname,omitempty"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	Bio            string `json:"bio,omitempty"`
	AvatarURL      string `json:"avatarUrl,omitempty"`
	FollowerCount  int64  `json:"followerCount"`
	FollowingCount int64  `json:"followingCount"`
}

func newUserPayload(user models.User) userPayload {
	return userPayload{
		ID:             user.ID,
		Email:          user.Email,
		Username:       user.Username,
		Name:           user.Name,
		Surname:        user.Surname,
		PhoneNumber:    user.PhoneNumber,
		Bio:            user.Bio,
		AvatarURL:      user.AvatarURL,
		FollowerCount:  user.FollowerCount,
		FollowingCount: user.FollowingCount,
	}
}

func newUserPayloadPtr(user models.User) *userPayload {
	payload := newUserPayload(user)
	return &payload
}

// publicUserPayload is the view of a profile exposed to other users.
type publicUserPayload struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Name           string `json:"name,omitempty"`
	Surname        string `json:"surname,omitempty"`
	Bio            string `json:"bio,omitempty"`
	AvatarURL      string `json:"avatarUrl,omitempty"`
	FollowerCount  int64  `json:"followerCount"`
	FollowingCount int64  `json:"followingCount"`
}

func newPublicUserPayload(user models.User) publicUserPayload {
	return publicUserPayload{
		ID:             user.ID,
		Username:       user.Username,
		Name:           user.Name,
		Surname:        user.Surname,
		Bio:            user.Bio,
		AvatarURL:      user.AvatarURL,
		FollowerCount:  user.FollowerCount,
		FollowingCount: user.FollowingCount,
	}
}
