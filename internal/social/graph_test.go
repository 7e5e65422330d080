package social

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/nextscene/backend/internal/models"
)

// memoryEdgeStore applies the edge and both counters under one lock, matching
// the all-or-nothing contract of the SQL implementation.
type memoryEdgeStore struct {
	mu         sync.Mutex
	edges      map[[2]string]struct{}
	followers  map[string]int64
	following  map[string]int64
	failWrites error
	failCounts error
}

func newMemoryEdgeStore() *memoryEdgeStore {
	return &memoryEdgeStore{
		edges:     make(map[[2]string]struct{}),
		followers: make(map[string]int64),
		following: make(map[string]int64),
	}
}

func (s *memoryEdgeStore) Follow(_ context.Context, followerID, followeeID string) error {
	if s.failWrites != nil {
		return s.failWrites
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{followerID, followeeID}
	if _, ok := s.edges[key]; ok {
		return ErrAlreadyFollowing
	}
	s.edges[key] = struct{}{}
	s.following[followerID]++
	s.followers[followeeID]++
	return nil
}

func (s *memoryEdgeStore) Unfollow(_ context.Context, followerID, followeeID string) error {
	if s.failWrites != nil {
		return s.failWrites
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{followerID, followeeID}
	if _, ok := s.edges[key]; !ok {
		return ErrNotFollowing
	}
	delete(s.edges, key)
	s.following[followerID]--
	s.followers[followeeID]--
	return nil
}

func (s *memoryEdgeStore) IsFollowing(_ context.Context, followerID, followeeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.edges[[2]string{followerID, followeeID}]
	return ok, nil
}

func (s *memoryEdgeStore) CountFollowers(_ context.Context, userID string) (int64, error) {
	if s.failCounts != nil {
		return 0, s.failCounts
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.followers[userID], nil
}

func (s *memoryEdgeStore) CountFollowing(_ context.Context, userID string) (int64, error) {
	if s.failCounts != nil {
		return 0, s.failCounts
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.following[userID], nil
}

func (s *memoryEdgeStore) ListFollowers(_ context.Context, userID string) ([]models.User, error) {
	return s.listSide(userID, true)
}

func (s *memoryEdgeStore) ListFollowing(_ context.Context, userID string) ([]models.User, error) {
	return s.listSide(userID, false)
}

func (s *memoryEdgeStore) listSide(userID string, followers bool) ([]models.User, error) {
	if s.failCounts != nil {
		return nil, s.failCounts
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []models.User
	for edge := range s.edges {
		if followers && edge[1] == userID {
			users = append(users, models.User{ID: edge[0]})
		}
		if !followers && edge[0] == userID {
			users = append(users, models.User{ID: edge[1]})
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func snapshot(t *testing.T, g *Graph, follower, followee string) (bool, int64, int64) {
	t.Helper()
	ctx := context.Background()
	following, err := g.IsFollowing(ctx, follower, followee)
	if err != nil {
		t.Fatalf("is following: %v", err)
	}
	followingCount, err := g.FollowingCount(ctx, follower)
	if err != nil {
		t.Fatalf("following count: %v", err)
	}
	followerCount, err := g.FollowerCount(ctx, followee)
	if err != nil {
		t.Fatalf("follower count: %v", err)
	}
	return following, followingCount, followerCount
}

func TestGraphFollowAppliesAllEffects(t *testing.T) {
	g := NewGraph(newMemoryEdgeStore())
	ctx := context.Background()

	if err := g.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("follow: %v", err)
	}

	following, followingCount, followerCount := snapshot(t, g, "alice", "bob")
	if !following {
		t.Fatal("expected alice to follow bob")
	}
	if followingCount != 1 {
		t.Fatalf("expected alice followingCount 1 got %d", followingCount)
	}
	if followerCount != 1 {
		t.Fatalf("expected bob followerCount 1 got %d", followerCount)
	}
}

func TestGraphUnfollowRoundTrip(t *testing.T) {
	g := NewGraph(newMemoryEdgeStore())
	ctx := context.Background()

	if err := g.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := g.Unfollow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("unfollow: %v", err)
	}

	following, followingCount, followerCount := snapshot(t, g, "alice", "bob")
	if following {
		t.Fatal("expected edge removed")
	}
	if followingCount != 0 || followerCount != 0 {
		t.Fatalf("expected counts restored got following=%d follower=%d", followingCount, followerCount)
	}
}

func TestGraphFailedFollowLeavesStateUntouched(t *testing.T) {
	store := newMemoryEdgeStore()
	g := NewGraph(store)
	ctx := context.Background()

	store.failWrites = errors.New("remote error")
	if err := g.Follow(ctx, "alice", "bob"); err == nil {
		t.Fatal("expected follow error")
	}
	store.failWrites = nil

	following, followingCount, followerCount := snapshot(t, g, "alice", "bob")
	if following || followingCount != 0 || followerCount != 0 {
		t.Fatalf("failed follow must leave pre-call state: following=%v counts=%d/%d",
			following, followingCount, followerCount)
	}
}

func TestGraphDuplicateFollow(t *testing.T) {
	g := NewGraph(newMemoryEdgeStore())
	ctx := context.Background()

	if err := g.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := g.Follow(ctx, "alice", "bob"); !errors.Is(err, ErrAlreadyFollowing) {
		t.Fatalf("expected ErrAlreadyFollowing got %v", err)
	}

	// The duplicate attempt must not bump counters.
	_, followingCount, followerCount := snapshot(t, g, "alice", "bob")
	if followingCount != 1 || followerCount != 1 {
		t.Fatalf("expected counts unchanged got %d/%d", followingCount, followerCount)
	}
}

func TestGraphSelfFollowRejected(t *testing.T) {
	g := NewGraph(newMemoryEdgeStore())
	if err := g.Follow(context.Background(), "alice", "alice"); !errors.Is(err, ErrSelfFollow) {
		t.Fatalf("expected ErrSelfFollow got %v", err)
	}
	if err := g.Unfollow(context.Background(), "alice", "alice"); !errors.Is(err, ErrSelfFollow) {
		t.Fatalf("expected ErrSelfFollow got %v", err)
	}
}

func TestGraphListsBothSidesOfTheEdge(t *testing.T) {
	g := NewGraph(newMemoryEdgeStore())
	ctx := context.Background()

	if err := g.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := g.Follow(ctx, "carol", "bob"); err != nil {
		t.Fatalf("follow: %v", err)
	}

	followers, err := g.ListFollowers(ctx, "bob")
	if err != nil {
		t.Fatalf("list followers: %v", err)
	}
	if len(followers) != 2 || followers[0].ID != "alice" || followers[1].ID != "carol" {
		t.Fatalf("unexpected followers %+v", followers)
	}

	following, err := g.ListFollowing(ctx, "alice")
	if err != nil {
		t.Fatalf("list following: %v", err)
	}
	if len(following) != 1 || following[0].ID != "bob" {
		t.Fatalf("unexpected following %+v", following)
	}
}

func TestGraphCountFailureIsAnError(t *testing.T) {
	store := newMemoryEdgeStore()
	g := NewGraph(store)

	store.failCounts = errors.New("aggregate unavailable")
	if _, err := g.FollowerCount(context.Background(), "bob"); err == nil {
		t.Fatal("count failure must surface as an error, not a zero")
	}
	if _, err := g.FollowingCount(context.Background(), "bob"); err == nil {
		t.Fatal("count failure must surface as an error, not a zero")
	}
}
