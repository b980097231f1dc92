package assets

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

// Repository is the metadata store of assets. There is no update: rows are
// written once by ingestion and removed by deletion or the sweep.
type Repository interface {
	// Insert stores a and sets a.ID.
	Insert(ctx context.Context, a *models.Asset) error
	// InsertMany stores every asset or none of them.
	InsertMany(ctx context.Context, assets []*models.Asset) error
	// FindByID returns common.ErrorNotFound for an unknown id.
	FindByID(ctx context.Context, id string) (*models.Asset, error)
	FindAllByOwner(ctx context.Context, ownerID string) ([]*models.Asset, error)
	// FindAll includes unowned legacy rows.
	FindAll(ctx context.Context) ([]*models.Asset, error)
	DistinctCategories(ctx context.Context) ([]string, error)
	// DeleteByID returns common.ErrorNotFound when nothing was deleted.
	DeleteByID(ctx context.Context, id string) error
}
