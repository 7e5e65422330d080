package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nextscene/backend/internal/auth"
	"github.com/nextscene/backend/internal/catalog"
	"github.com/nextscene/backend/internal/config"
	"github.com/nextscene/backend/internal/db"
	"github.com/nextscene/backend/internal/feed"
	"github.com/nextscene/backend/internal/handlers"
	"github.com/nextscene/backend/internal/middleware"
	"github.com/nextscene/backend/internal/models"
	"github.com/nextscene/backend/internal/repositories"
	"github.com/nextscene/backend/internal/session"
	"github.com/nextscene/backend/internal/social"
	"github.com/nextscene/backend/internal/storage"
	"github.com/nextscene/backend/internal/watchstate"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	users := repositories.NewPostgresUserRepository(pool)
	memberships := repositories.NewPostgresWatchRepository(pool)
	follows := repositories.NewPostgresFollowRepository(pool)
	posts := repositories.NewPostgresPostRepository(pool)
	sessionStore := repositories.NewPostgresSessionStore(pool)

	client := catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogAPIKey, cfg.CatalogTimeout)
	provider := catalog.NewCachingProvider(client, cfg.CatalogCacheTTL)

	tracker := session.NewTracker(func() *session.Bundle {
		registries := map[models.ContentKind]*watchstate.Registry{
			models.KindMovie:  watchstate.NewRegistry(models.KindMovie, memberships),
			models.KindSeries: watchstate.NewRegistry(models.KindSeries, memberships),
			models.KindItem:   watchstate.NewRegistry(models.KindItem, memberships),
		}
		state := session.NewState(users)
		for _, registry := range registries {
			state.AddListener(registry)
		}
		return &session.Bundle{State: state, Watch: registries}
	})

	deps := handlers.Dependencies{
		Users:       users,
		Sessions:    auth.NewManager(15*time.Minute, 24*time.Hour, sessionStore),
		Directory:   tracker,
		Memberships: memberships,
		Catalog:     provider,
		Social:      social.NewGraph(follows),
		Feed:        feed.NewService(posts, cfg.FeedPageSize),
		AuthLimiter: middleware.NewKeyRateLimiter(10, time.Minute, 5, 10*time.Minute),
	}

	if cfg.ObjectStore.Bucket != "" {
		avatars, err := storage.NewAvatarStore(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, fmt.Errorf("configure avatar storage: %w", err)
		}
		deps.Avatars = avatars
	}

	return deps, nil
}
