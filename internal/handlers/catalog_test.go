package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nextscene/backend/internal/catalog"
	"github.com/nextscene/backend/internal/models"
)

type stubCatalog struct {
	items     []models.CatalogItem
	detail    models.CatalogDetail
	searchErr error
	detailErr error

	lastQuery string
	lastKind  models.ContentKind
}

func (s *stubCatalog) Search(_ context.Context, query string, kind models.ContentKind) ([]models.CatalogItem, error) {
	s.lastQuery = query
	s.lastKind = kind
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.items, nil
}

func (s *stubCatalog) Detail(_ context.Context, id string) (models.CatalogDetail, error) {
	if s.detailErr != nil {
		return models.CatalogDetail{}, s.detailErr
	}
	return s.detail, nil
}

func TestCatalogHandlerSearch(t *testing.T) {
	provider := &stubCatalog{items: []models.CatalogItem{
		{ID: "tt0076759", Title: "Star Wars", Year: "1977", Kind: "movie"},
	}}
	handler := CatalogHandler{Catalog: provider, Sessions: staticSessions{userID: "user-1"}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/search?q=star+wars&kind=movie", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if provider.lastQuery != "star wars" || provider.lastKind != models.KindMovie {
		t.Fatalf("unexpected provider call query=%q kind=%q", provider.lastQuery, provider.lastKind)
	}

	var resp catalogSearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "tt0076759" {
		t.Fatalf("unexpected items %+v", resp.Items)
	}
}

func TestCatalogHandlerSearchNoMatchesIsEmptyList(t *testing.T) {
	provider := &stubCatalog{searchErr: catalog.ErrNotFound}
	handler := CatalogHandler{Catalog: provider, Sessions: staticSessions{userID: "user-1"}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/search?q=zzz", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp catalogSearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Items == nil || len(resp.Items) != 0 {
		t.Fatalf("expected empty item list got %+v", resp.Items)
	}
}

func TestCatalogHandlerSearchUpstreamFailure(t *testing.T) {
	provider := &stubCatalog{searchErr: errors.New("connection refused")}
	handler := CatalogHandler{Catalog: provider, Sessions: staticSessions{userID: "user-1"}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/search?q=star", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d got %d", http.StatusBadGateway, rec.Code)
	}
}

func TestCatalogHandlerSearchRejectsBadKind(t *testing.T) {
	handler := CatalogHandler{Catalog: &stubCatalog{}, Sessions: staticSessions{userID: "user-1"}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/search?q=star&kind=album", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestCatalogHandlerDetail(t *testing.T) {
	provider := &stubCatalog{detail: models.CatalogDetail{ID: "tt0076759", Title: "Star Wars", Plot: "A long time ago"}}
	handler := CatalogHandler{Catalog: provider, Sessions: staticSessions{userID: "user-1"}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/detail?id=tt0076759", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.Detail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var detail models.CatalogDetail
	if err := json.NewDecoder(rec.Body).Decode(&detail); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if detail.ID != "tt0076759" || detail.Plot != "A long time ago" {
		t.Fatalf("unexpected detail %+v", detail)
	}
}

func TestCatalogHandlerDetailNotFound(t *testing.T) {
	provider := &stubCatalog{detailErr: catalog.ErrNotFound}
	handler := CatalogHandler{Catalog: provider, Sessions: staticSessions{userID: "user-1"}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/detail?id=tt9999999", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.Detail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}
