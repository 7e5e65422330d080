package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/nextscene/backend/internal/models"
	"github.com/nextscene/backend/internal/session"
	"github.com/nextscene/backend/internal/watchstate"
)

// staticSessions resolves every bearer token to a fixed user id.
type staticSessions struct {
	userID string
}

func (s staticSessions) Issue(context.Context, string) (models.SessionTokens, error) {
	return models.SessionTokens{}, nil
}

func (s staticSessions) Refresh(context.Context, string) (models.SessionTokens, error) {
	return models.SessionTokens{}, nil
}

func (s staticSessions) Validate(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("no token")
	}
	return s.userID, nil
}

func (s staticSessions) Revoke(context.Context, string) {}

type memoryMembership struct {
	mu   sync.Mutex
	rows map[string]struct{}
}

func newMemoryMembership() *memoryMembership {
	return &memoryMembership{rows: make(map[string]struct{})}
}

func (m *memoryMembership) key(userID, itemID string, kind models.ContentKind, list models.ListKind) string {
	return fmt.Sprintf("%s|%s|%s|%s", userID, kind, list, itemID)
}

func (m *memoryMembership) ListMembers(_ context.Context, userID string, kind models.ContentKind, list models.ListKind) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := fmt.Sprintf("%s|%s|%s|", userID, kind, list)
	var items []string
	for key := range m.rows {
		if strings.HasPrefix(key, prefix) {
			items = append(items, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(items)
	return items, nil
}

func (m *memoryMembership) Add(_ context.Context, userID, itemID string, kind models.ContentKind, list models.ListKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[m.key(userID, itemID, kind, list)] = struct{}{}
	return nil
}

func (m *memoryMembership) Remove(_ context.Context, userID, itemID string, kind models.ContentKind, list models.ListKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, m.key(userID, itemID, kind, list))
	return nil
}

func newWatchHandler(t *testing.T, userID string) (WatchHandler, *memoryMembership) {
	t.Helper()

	users := newInMemoryUserStore()
	users.users[userID] = models.User{ID: userID, Username: "watcher"}
	membership := newMemoryMembership()

	directory := session.NewTracker(func() *session.Bundle {
		registries := map[models.ContentKind]*watchstate.Registry{
			models.KindMovie:  watchstate.NewRegistry(models.KindMovie, membership),
			models.KindSeries: watchstate.NewRegistry(models.KindSeries, membership),
			models.KindItem:   watchstate.NewRegistry(models.KindItem, membership),
		}
		state := session.NewState(users)
		for _, registry := range registries {
			state.AddListener(registry)
		}
		return &session.Bundle{State: state, Watch: registries}
	})

	return WatchHandler{Sessions: staticSessions{userID: userID}, Directory: directory, Memberships: membership}, membership
}

func doToggle(t *testing.T, handler WatchHandler, payload toggleRequest) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watchlists/toggle", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.Toggle(rec, req)
	return rec
}

func TestWatchHandlerToggleAndList(t *testing.T) {
	handler, membership := newWatchHandler(t, "user-1")

	rec := doToggle(t, handler, toggleRequest{ItemID: "tt0076759", Kind: "movie", List: "favorite"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp toggleResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Member {
		t.Fatal("expected item to be a member after first toggle")
	}
	if len(membership.rows) != 1 {
		t.Fatalf("expected one persisted membership got %d", len(membership.rows))
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/watchlists?kind=movie&list=favorite", nil)
	listReq.Header.Set("Authorization", "Bearer token")
	listRec := httptest.NewRecorder()
	handler.List(listRec, listReq)

	if listRec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, listRec.Code)
	}

	var list listResponse
	if err := json.NewDecoder(listRec.Body).Decode(&list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0] != "tt0076759" {
		t.Fatalf("expected listed item got %v", list.Items)
	}

	rec = doToggle(t, handler, toggleRequest{ItemID: "tt0076759", Kind: "movie", List: "favorite"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Member {
		t.Fatal("expected item removed after second toggle")
	}
	if len(membership.rows) != 0 {
		t.Fatalf("expected no persisted memberships got %d", len(membership.rows))
	}
}

func TestWatchHandlerKindsAreIndependent(t *testing.T) {
	handler, _ := newWatchHandler(t, "user-1")

	rec := doToggle(t, handler, toggleRequest{ItemID: "tt0944947", Kind: "series", List: "watchlist"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/watchlists?kind=movie&list=watchlist", nil)
	listReq.Header.Set("Authorization", "Bearer token")
	listRec := httptest.NewRecorder()
	handler.List(listRec, listReq)

	var list listResponse
	if err := json.NewDecoder(listRec.Body).Decode(&list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list.Items) != 0 {
		t.Fatalf("series toggle must not leak into movie namespace, got %v", list.Items)
	}
}

func TestWatchHandlerListOtherUser(t *testing.T) {
	handler, membership := newWatchHandler(t, "user-1")

	ctx := context.Background()
	if err := membership.Add(ctx, "user-2", "tt0133093", models.KindMovie, models.ListWatched); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	if err := membership.Add(ctx, "user-2", "tt0110912", models.KindMovie, models.ListWatched); err != nil {
		t.Fatalf("seed membership: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watchlists?kind=movie&list=watched&user=user-2", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var list listResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list.Items) != 2 || list.Items[0] != "tt0110912" || list.Items[1] != "tt0133093" {
		t.Fatalf("expected user-2's watched movies got %v", list.Items)
	}

	ownReq := httptest.NewRequest(http.MethodGet, "/api/v1/watchlists?kind=movie&list=watched", nil)
	ownReq.Header.Set("Authorization", "Bearer token")
	ownRec := httptest.NewRecorder()
	handler.List(ownRec, ownReq)

	if err := json.NewDecoder(ownRec.Body).Decode(&list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list.Items) != 0 {
		t.Fatalf("caller's own watched set must stay empty, got %v", list.Items)
	}
}

func TestWatchHandlerValidation(t *testing.T) {
	handler, _ := newWatchHandler(t, "user-1")

	cases := []toggleRequest{
		{ItemID: "", Kind: "movie", List: "favorite"},
		{ItemID: "tt1", Kind: "album", List: "favorite"},
		{ItemID: "tt1", Kind: "movie", List: "liked"},
	}
	for _, payload := range cases {
		rec := doToggle(t, handler, payload)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("payload %+v: expected status %d got %d", payload, http.StatusBadRequest, rec.Code)
		}
	}
}

func TestWatchHandlerRequiresAuth(t *testing.T) {
	handler, _ := newWatchHandler(t, "user-1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watchlists?kind=movie&list=favorite", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}
