package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/nextscene/backend/internal/logging"
	"github.com/nextscene/backend/internal/models"
	"github.com/nextscene/backend/internal/watchstate"
)

// ProfileStore loads the profile document for an identity.
type ProfileStore interface {
	FindByID(ctx context.Context, userID string) (models.User, error)
}

// IdentityListener reacts to identity changes. Watch-state registries register
// here so their sets reload whenever a different user signs in.
type IdentityListener interface {
	SetIdentity(ctx context.Context, userID string) error
}

// State tracks the authenticated identity and its cached profile. One State is
// owned by one session lifecycle and injected into its call sites; there is no
// process-wide instance.
type State struct {
	profiles ProfileStore

	mu       sync.RWMutex
	userID   string
	profile  *models.User
	watchers []IdentityListener
}

// NewState constructs a signed-out State.
func NewState(profiles ProfileStore, listeners ...IdentityListener) *State {
	return &State{profiles: profiles, watchers: listeners}
}

// AddListener registers an additional identity listener.
func (s *State) AddListener(l IdentityListener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.watchers = append(s.watchers, l)
	s.mu.Unlock()
}

// SetIdentity associates the state with a new identity and refreshes the
// cached profile. A failed profile fetch leaves the cached profile absent but
// keeps the identity; the error is returned so callers can surface it.
// Listener reload failures are collected into the returned error as well.
func (s *State) SetIdentity(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.userID = userID
	s.profile = nil
	listeners := s.watchers
	s.mu.Unlock()

	var firstErr error
	for _, l := range listeners {
		if err := l.SetIdentity(ctx, userID); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if userID == "" {
		return firstErr
	}

	if err := s.RefreshProfile(ctx); err != nil {
		logging.FromContext(ctx).Warn("profile fetch failed on identity change", "userId", userID, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Clear signs the state out, dropping the identity and cached profile.
func (s *State) Clear(ctx context.Context) {
	_ = s.SetIdentity(ctx, "")
}

// RefreshProfile refetches the profile document for the current identity.
func (s *State) RefreshProfile(ctx context.Context) error {
	s.mu.RLock()
	userID := s.userID
	s.mu.RUnlock()

	if userID == "" {
		return nil
	}

	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		s.mu.Lock()
		if s.userID == userID {
			s.profile = nil
		}
		s.mu.Unlock()
		return fmt.Errorf("fetch profile %s: %w", userID, err)
	}

	s.mu.Lock()
	if s.userID == userID {
		s.profile = &profile
	}
	s.mu.Unlock()
	return nil
}

// Identity returns the current uid, empty when signed out.
func (s *State) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Profile returns the cached profile and whether one is present.
func (s *State) Profile() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return models.User{}, false
	}
	return *s.profile, true
}

// Bundle groups one identity's State with the watch-state registries that are
// registered as its listeners. The registries reload when the State's identity
// changes and go empty when it clears.
type Bundle struct {
	State *State
	Watch map[models.ContentKind]*watchstate.Registry
}

// Registry returns the watch-state registry for the content kind, or nil when
// the kind is not tracked.
func (b *Bundle) Registry(kind models.ContentKind) *watchstate.Registry {
	return b.Watch[kind]
}

// Tracker hands out one Bundle per identity so every authenticated session
// works against its own state and registries.
type Tracker struct {
	build func() *Bundle

	mu       sync.Mutex
	sessions map[string]*Bundle
}

// NewTracker constructs a Tracker using the provided Bundle factory.
func NewTracker(build func() *Bundle) *Tracker {
	if build == nil {
		panic("session: bundle factory must not be nil")
	}
	return &Tracker{build: build, sessions: make(map[string]*Bundle)}
}

// For returns the Bundle bound to the identity, creating and initialising it
// on first use. A bundle whose initial load fails is discarded so the next
// call retries instead of serving half-initialised state.
func (t *Tracker) For(ctx context.Context, userID string) (*Bundle, error) {
	if userID == "" {
		return nil, fmt.Errorf("tracker: empty user id")
	}

	t.mu.Lock()
	bundle, ok := t.sessions[userID]
	if !ok {
		bundle = t.build()
		t.sessions[userID] = bundle
	}
	t.mu.Unlock()

	if !ok {
		if err := bundle.State.SetIdentity(ctx, userID); err != nil {
			t.mu.Lock()
			if t.sessions[userID] == bundle {
				delete(t.sessions, userID)
			}
			t.mu.Unlock()
			return nil, err
		}
	}

	return bundle, nil
}

// Drop discards the Bundle for an identity (sign-out).
func (t *Tracker) Drop(ctx context.Context, userID string) {
	t.mu.Lock()
	bundle, ok := t.sessions[userID]
	delete(t.sessions, userID)
	t.mu.Unlock()

	if ok {
		bundle.State.Clear(ctx)
	}
}
