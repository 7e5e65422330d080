package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nextscene/backend/internal/catalog"
	"github.com/nextscene/backend/internal/logging"
	"github.com/nextscene/backend/internal/models"
)

// CatalogHandler proxies search and detail lookups to the external catalog.
type CatalogHandler struct {
	Catalog  CatalogProvider
	Sessions SessionManager
}

// Search handles GET /api/v1/catalog/search?q=&kind= requests.
func (h CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if _, ok := requireIdentity(w, r, h.Sessions); !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "query parameter q is required"})
		return
	}

	kind, ok := parseKind(r.URL.Query().Get("kind"))
	if !ok {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "kind must be movie or series"})
		return
	}

	items, err := h.Catalog.Search(ctx, query, kind)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondJSON(ctx, w, http.StatusOK, catalogSearchResponse{Items: []catalogItemPayload{}})
			return
		}
		logger.Error("catalog search failed", "error", err, "query", query, "kind", kind)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "catalog lookup failed"})
		return
	}

	payload := make([]catalogItemPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, newCatalogItemPayload(item))
	}

	respondJSON(ctx, w, http.StatusOK, catalogSearchResponse{Items: payload})
}

// Detail handles GET /api/v1/catalog/detail?id= requests.
func (h CatalogHandler) Detail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if _, ok := requireIdentity(w, r, h.Sessions); !ok {
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "query parameter id is required"})
		return
	}

	detail, err := h.Catalog.Detail(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "catalog record not found"})
			return
		}
		logger.Error("catalog detail failed", "error", err, "id", id)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "catalog lookup failed"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, detail)
}

func parseKind(raw string) (models.ContentKind, bool) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "movie", "":
		return models.KindMovie, true
	case "series":
		return models.KindSeries, true
	}
	return "", false
}

type catalogSearchResponse struct {
	Items []catalogItemPayload `json:"items"`
}

type catalogItemPayload struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Year   string `json:"year,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Poster string `json:"poster,omitempty"`
}

func newCatalogItemPayload(item models.CatalogItem) catalogItemPayload {
	return catalogItemPayload{
		ID:     item.ID,
		Title:  item.Title,
		Year:   item.Year,
		Kind:   item.Kind,
		Poster: item.Poster,
	}
}
