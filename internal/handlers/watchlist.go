package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/nextscene/backend/internal/logging"
	"github.com/nextscene/backend/internal/models"
	"github.com/nextscene/backend/internal/watchstate"
)

// WatchHandler exposes the favorite, watched and watchlist sets. The
// authenticated user's own sets go through their session bundle; another
// user's sets are read straight from the membership store.
type WatchHandler struct {
	Sessions    SessionManager
	Directory   SessionDirectory
	Memberships MembershipReader
}

// Toggle handles POST /api/v1/watchlists/toggle requests.
func (h WatchHandler) Toggle(w http.ResponseWriter, r *http.Request) {
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

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid toggle payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.ItemID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "itemId is required"})
		return
	}

	kind, registry, list, ok := h.resolve(w, r, userID, req.Kind, req.List)
	if !ok {
		return
	}

	member, err := registry.Toggle(ctx, list, req.ItemID)
	if err != nil {
		if errors.Is(err, watchstate.ErrUnknownList) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "list must be favorite, watched or watchlist"})
			return
		}
		logger.Error("watch-state toggle failed", "error", err, "userId", userID, "kind", kind, "list", list, "itemId", req.ItemID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update list"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, toggleResponse{
		ItemID: req.ItemID,
		Kind:   string(kind),
		List:   string(list),
		Member: member,
	})
}

// List handles GET /api/v1/watchlists?kind=&list= requests. An optional user
// parameter reads another identity's sets instead of the caller's own.
func (h WatchHandler) List(w http.ResponseWriter, r *http.Request) {
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

	kind, ok := parseContentKind(r.URL.Query().Get("kind"))
	if !ok {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "kind must be movie, series or item"})
		return
	}

	list, ok := parseListKind(r.URL.Query().Get("list"))
	if !ok {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "list must be favorite, watched or watchlist"})
		return
	}

	targetID := strings.TrimSpace(r.URL.Query().Get("user"))
	if targetID != "" && targetID != userID {
		if h.Memberships == nil {
			logger.Error("membership reader unavailable")
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load watch state"})
			return
		}

		items, err := h.Memberships.ListMembers(ctx, targetID, kind, list)
		if err != nil {
			logger.Error("watch-state lookup failed", "error", err, "userId", targetID, "kind", kind, "list", list)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load watch state"})
			return
		}
		if items == nil {
			items = []string{}
		}
		sort.Strings(items)

		respondJSON(ctx, w, http.StatusOK, listResponse{
			Kind:  string(kind),
			List:  string(list),
			Items: items,
		})
		return
	}

	registry, ok := h.registryFor(w, r, userID, kind)
	if !ok {
		return
	}

	respondJSON(ctx, w, http.StatusOK, listResponse{
		Kind:  string(kind),
		List:  string(list),
		Items: registry.Snapshot(list),
	})
}

func (h WatchHandler) resolve(w http.ResponseWriter, r *http.Request, userID, rawKind, rawList string) (models.ContentKind, *watchstate.Registry, models.ListKind, bool) {
	ctx := r.Context()

	kind, ok := parseContentKind(rawKind)
	if !ok {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "kind must be movie, series or item"})
		return "", nil, "", false
	}

	list, ok := parseListKind(rawList)
	if !ok {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "list must be favorite, watched or watchlist"})
		return "", nil, "", false
	}

	registry, ok := h.registryFor(w, r, userID, kind)
	if !ok {
		return "", nil, "", false
	}

	return kind, registry, list, true
}

func (h WatchHandler) registryFor(w http.ResponseWriter, r *http.Request, userID string, kind models.ContentKind) (*watchstate.Registry, bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	bundle, err := h.Directory.For(ctx, userID)
	if err != nil {
		logger.Error("failed to initialise session bundle", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load watch state"})
		return nil, false
	}

	registry := bundle.Registry(kind)
	if registry == nil {
		logger.Error("no registry for kind", "kind", kind)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load watch state"})
		return nil, false
	}

	return registry, true
}

func parseContentKind(raw string) (models.ContentKind, bool) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "movie":
		return models.KindMovie, true
	case "series":
		return models.KindSeries, true
	case "item":
		return models.KindItem, true
	}
	return "", false
}

func parseListKind(raw string) (models.ListKind, bool) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "favorite":
		return models.ListFavorite, true
	case "watched":
		return models.ListWatched, true
	case "watchlist":
		return models.ListWatchlist, true
	}
	return "", false
}

type toggleRequest struct {
	ItemID string `json:"itemId"`
	Kind   string `json:"kind"`
	List   string `json:"list"`
}

type toggleResponse struct {
	ItemID string `json:"itemId"`
	Kind   string `json:"kind"`
	List   string `json:"list"`
	Member bool   `json:"member"`
}

type listResponse struct {
	Kind  string   `json:"kind"`
	List  string   `json:"list"`
	Items []string `json:"items"`
}
