package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nextscene/backend/internal/auth"
	"github.com/nextscene/backend/internal/models"
	"github.com/nextscene/backend/internal/repositories"
	"github.com/nextscene/backend/internal/session"
)

type inMemoryUserStore struct {
	users map[string]models.User
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) UpdateProfile(_ context.Context, user models.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) SearchByUsernamePrefix(_ context.Context, prefix, excludeID string, limit int) ([]models.User, error) {
	var matches []models.User
	for _, user := range s.users {
		if user.ID == excludeID {
			continue
		}
		if strings.HasPrefix(user.Username, prefix) {
			matches = append(matches, user)
		}
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}

func newTestDirectory(users *inMemoryUserStore) *session.Tracker {
	return session.NewTracker(func() *session.Bundle {
		return &session.Bundle{State: session.NewState(users)}
	})
}

func TestAuthHandlerSignUp(t *testing.T) {
	store := newInMemoryUserStore()
	manager := auth.NewManager(time.Minute, time.Hour, auth.NewInMemorySessionStore())
	handler := AuthHandler{Users: store, Sessions: manager, Directory: newTestDirectory(store)}

	body, err := json.Marshal(signUpRequest{Email: "test@example.com", Password: "supersafe", Username: "testuser"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.SignUp(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued, got %+v", resp.Tokens)
	}
	if resp.User == nil || resp.User.Username != "testuser" {
		t.Fatalf("expected user payload with username, got %+v", resp.User)
	}

	stored, err := store.FindByEmail(context.Background(), "test@example.com")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersafe")) != nil {
		t.Fatal("stored password is not hashed")
	}
	if stored.Role != "user" {
		t.Fatalf("expected default role user got %q", stored.Role)
	}
}

func TestAuthHandlerSignUpDuplicateUsername(t *testing.T) {
	store := newInMemoryUserStore()
	store.users["user-1"] = models.User{ID: "user-1", Email: "taken@example.com", Username: "taken"}
	manager := auth.NewManager(time.Minute, time.Hour, auth.NewInMemorySessionStore())
	handler := AuthHandler{Users: store, Sessions: manager}

	body, err := json.Marshal(signUpRequest{Email: "new@example.com", Password: "supersafe", Username: "taken"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.SignUp(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d got %d", http.StatusConflict, rec.Code)
	}
}

func TestAuthHandlerSignUpRejectsBadUsername(t *testing.T) {
	store := newInMemoryUserStore()
	manager := auth.NewManager(time.Minute, time.Hour, auth.NewInMemorySessionStore())
	handler := AuthHandler{Users: store, Sessions: manager}

	for _, username := range []string{"", "ab", "Has Spaces", "UPPER", strings.Repeat("x", 31)} {
		body, err := json.Marshal(signUpRequest{Email: "new@example.com", Password: "supersafe", Username: username})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.SignUp(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("username %q: expected status %d got %d", username, http.StatusBadRequest, rec.Code)
		}
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	store := newInMemoryUserStore()
	manager := auth.NewManager(time.Minute, time.Hour, auth.NewInMemorySessionStore())
	handler := AuthHandler{Users: store, Sessions: manager}

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	store.users["user-1"] = models.User{ID: "user-1", Email: "login@example.com", Username: "login", Password: string(hashed)}

	body, err := json.Marshal(loginRequest{Email: "login@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued, got %+v", resp.Tokens)
	}
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	store := newInMemoryUserStore()
	manager := auth.NewManager(time.Minute, time.Hour, auth.NewInMemorySessionStore())
	handler := AuthHandler{Users: store, Sessions: manager}

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	store.users["user-1"] = models.User{ID: "user-1", Email: "login@example.com", Password: string(hashed)}

	body, err := json.Marshal(loginRequest{Email: "login@example.com", Password: "wrong"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthHandlerRefresh(t *testing.T) {
	manager := auth.NewManager(time.Minute, time.Hour, auth.NewInMemorySessionStore())
	tokens, err := manager.Issue(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	handler := AuthHandler{Sessions: manager}

	body, err := json.Marshal(refreshRequest{RefreshToken: tokens.RefreshToken})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Tokens.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected a new refresh token to be issued")
	}
}

func TestAuthHandlerLogoutRevokesSession(t *testing.T) {
	sessionStore := auth.NewInMemorySessionStore()
	manager := auth.NewManager(time.Minute, time.Hour, sessionStore)
	tokens, err := manager.Issue(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	users := newInMemoryUserStore()
	users.users["user-123"] = models.User{ID: "user-123", Username: "logout"}
	handler := AuthHandler{Users: users, Sessions: manager, Directory: newTestDirectory(users)}

	body, err := json.Marshal(logoutRequest{RefreshToken: tokens.RefreshToken})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec := httptest.NewRecorder()

	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if sessionStore.Has(tokens.RefreshToken) {
		t.Fatal("expected refresh token to be revoked")
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func TestAuthHandlerLoginRateLimited(t *testing.T) {
	handler := AuthHandler{
		Users:    newInMemoryUserStore(),
		Sessions: auth.NewManager(time.Minute, time.Hour, auth.NewInMemorySessionStore()),
		Limiter:  denyAllLimiter{},
	}

	body, err := json.Marshal(loginRequest{Email: "login@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d got %d", http.StatusTooManyRequests, rec.Code)
	}
}
