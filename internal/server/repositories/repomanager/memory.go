package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/assets"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/users"
)

// MemoryRepositoryManager keeps all metadata in process memory. Selected by
// the memory:// DSN; nothing survives a restart.
type MemoryRepositoryManager struct {
	users  *users.MemoryRepository
	assets *assets.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:  users.NewMemoryRepository(),
		assets: assets.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *MemoryRepositoryManager) Users() users.Repository           { return m.users }
func (m *MemoryRepositoryManager) Assets() assets.Repository         { return m.assets }
func (m *MemoryRepositoryManager) Close(context.Context) error       { return nil }
