package assets

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

// MemoryRepository keeps assets in process memory. Records are copied in
// and out, so callers never share state with the store.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]models.Asset
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: map[string]models.Asset{}}
}

func (r *MemoryRepository) Insert(_ context.Context, a *models.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a.ID = uuid.NewString()
	r.rows[a.ID] = *a
	return nil
}

func (r *MemoryRepository) InsertMany(_ context.Context, assets []*models.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range assets {
		a.ID = uuid.NewString()
		r.rows[a.ID] = *a
	}
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*models.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) FindAllByOwner(_ context.Context, ownerID string) ([]*models.Asset, error) {
	return r.filter(func(a *models.Asset) bool { return a.OwnerID == ownerID }), nil
}

func (r *MemoryRepository) FindAll(_ context.Context) ([]*models.Asset, error) {
	return r.filter(func(*models.Asset) bool { return true }), nil
}

func (r *MemoryRepository) filter(keep func(*models.Asset) bool) []*models.Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Asset
	for _, a := range r.rows {
		if keep(&a) {
			cp := a
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (r *MemoryRepository) DistinctCategories(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]struct{}{}
	var result []string
	for _, a := range r.rows {
		if _, ok := seen[a.Category]; ok {
			continue
		}
		seen[a.Category] = struct{}{}
		result = append(result, a.Category)
	}
	return result, nil
}

func (r *MemoryRepository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.rows, id)
	return nil
}
