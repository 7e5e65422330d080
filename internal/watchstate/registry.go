package watchstate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nextscene/backend/internal/models"
)

var (
	// ErrNoIdentity indicates no user is associated with the registry.
	ErrNoIdentity = errors.New("no identity associated with registry")
	// ErrUnknownList indicates a list kind outside favorite/watched/watchlist.
	ErrUnknownList = errors.New("unknown list kind")
)

// MembershipStore persists watch-state memberships. Presence of a row is the
// membership test; the payload is only the server-side timestamp.
type MembershipStore interface {
	ListMembers(ctx context.Context, userID string, kind models.ContentKind, list models.ListKind) ([]string, error)
	Add(ctx context.Context, userID, itemID string, kind models.ContentKind, list models.ListKind) error
	Remove(ctx context.Context, userID, itemID string, kind models.ContentKind, list models.ListKind) error
}

// Subscriber is invoked after a membership set changes. The registry holds no
// lock while notifying; subscribers read fresh state via Snapshot or Contains.
type Subscriber func(list models.ListKind)

// Registry tracks the favorite, watched and watchlist membership sets for one
// content kind and one identity. It keeps an in-memory mirror of the store:
// a toggle writes to the store first and mutates the mirror only on success,
// so a failed write leaves local state consistent with what the store
// actually holds.
type Registry struct {
	kind  models.ContentKind
	store MembershipStore

	mu     sync.RWMutex
	userID string
	sets   map[models.ListKind]map[string]struct{}

	subMu sync.RWMutex
	subs  []Subscriber
}

// NewRegistry constructs an empty registry for the provided content kind.
func NewRegistry(kind models.ContentKind, store MembershipStore) *Registry {
	return &Registry{
		kind:  kind,
		store: store,
		sets:  emptySets(),
	}
}

// Kind reports which content namespace this registry tracks.
func (r *Registry) Kind() models.ContentKind {
	return r.kind
}

// SetIdentity drops all three sets and, for a non-empty uid, reloads them from
// the store. An empty uid clears the registry (sign-out). On a reload failure
// the registry is left empty and the error is returned.
func (r *Registry) SetIdentity(ctx context.Context, userID string) error {
	r.mu.Lock()
	r.userID = userID
	r.sets = emptySets()
	r.mu.Unlock()
	r.notifyAll()

	if userID == "" {
		return nil
	}

	loaded := emptySets()
	for _, list := range models.ListKinds {
		members, err := r.store.ListMembers(ctx, userID, r.kind, list)
		if err != nil {
			return fmt.Errorf("load %s %s set: %w", r.kind, list, err)
		}
		for _, id := range members {
			loaded[list][id] = struct{}{}
		}
	}

	r.mu.Lock()
	// The identity may have changed again while loading; only apply the
	// result if it is still current.
	if r.userID == userID {
		r.sets = loaded
	}
	r.mu.Unlock()
	r.notifyAll()

	return nil
}

// Identity returns the uid the registry currently tracks.
func (r *Registry) Identity() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.userID
}

// Toggle flips membership of the item in the named set. It reports whether the
// item is a member after the call. The store write happens before the local
// mutation; on failure the local set is unchanged and the error is returned.
func (r *Registry) Toggle(ctx context.Context, list models.ListKind, itemID string) (bool, error) {
	if !validList(list) {
		return false, ErrUnknownList
	}

	r.mu.RLock()
	userID := r.userID
	_, member := r.sets[list][itemID]
	r.mu.RUnlock()

	if userID == "" {
		return false, ErrNoIdentity
	}

	if member {
		if err := r.store.Remove(ctx, userID, itemID, r.kind, list); err != nil {
			return true, fmt.Errorf("remove %s from %s %s: %w", itemID, r.kind, list, err)
		}
		r.mu.Lock()
		if r.userID == userID {
			delete(r.sets[list], itemID)
		}
		r.mu.Unlock()
		r.notify(list)
		return false, nil
	}

	if err := r.store.Add(ctx, userID, itemID, r.kind, list); err != nil {
		return false, fmt.Errorf("add %s to %s %s: %w", itemID, r.kind, list, err)
	}
	r.mu.Lock()
	if r.userID == userID {
		r.sets[list][itemID] = struct{}{}
	}
	r.mu.Unlock()
	r.notify(list)
	return true, nil
}

// Contains reports membership of the item in the named set.
func (r *Registry) Contains(list models.ListKind, itemID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sets[list][itemID]
	return ok
}

// Snapshot returns the members of the named set in sorted order.
func (r *Registry) Snapshot(list models.ListKind) []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sets[list]))
	for id := range r.sets[list] {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Len reports the size of the named set.
func (r *Registry) Len(list models.ListKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sets[list])
}

// Subscribe registers a callback invoked after any set changes.
func (r *Registry) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	r.subMu.Lock()
	r.subs = append(r.subs, fn)
	r.subMu.Unlock()
}

func (r *Registry) notify(list models.ListKind) {
	r.subMu.RLock()
	subs := r.subs
	r.subMu.RUnlock()
	for _, fn := range subs {
		fn(list)
	}
}

func (r *Registry) notifyAll() {
	for _, list := range models.ListKinds {
		r.notify(list)
	}
}

func emptySets() map[models.ListKind]map[string]struct{} {
	sets := make(map[models.ListKind]map[string]struct{}, len(models.ListKinds))
	for _, list := range models.ListKinds {
		sets[list] = make(map[string]struct{})
	}
	return sets
}

func validList(list models.ListKind) bool {
	switch list {
	case models.ListFavorite, models.ListWatched, models.ListWatchlist:
		return true
	}
	return false
}
