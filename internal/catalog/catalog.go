package catalog

import (
	"context"

	"github.com/nextscene/backend/internal/models"
)

// Provider resolves catalog search and detail lookups against the external
// movie/series metadata API.
type Provider interface {
	Search(ctx context.Context, query string, kind models.ContentKind) ([]models.CatalogItem, error)
	Detail(ctx context.Context, id string) (models.CatalogDetail, error)
}
