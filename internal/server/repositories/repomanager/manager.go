package repomanager

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/assets"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/users"
)

// RepositoryManager owns the metadata store connection and vends the
// repositories bound to it.
type RepositoryManager interface {
	// RunMigrations brings the schema (tables or indexes) up to date.
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	Assets() assets.Repository
	Close(ctx context.Context) error
}

// Open connects to the metadata store named by dsn. The scheme picks the
// backend: postgres:// and postgresql:// for Postgres, mongodb:// and
// mongodb+srv:// for MongoDB, memory:// for an in-process store.
func Open(ctx context.Context, dsn string) (RepositoryManager, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database dsn: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return OpenPostgres(dsn)
	case "mongodb", "mongodb+srv":
		return OpenMongo(ctx, dsn)
	case "memory":
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}
