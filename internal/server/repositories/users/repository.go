package users

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

// Repository persists registered principals. Create reports a taken
// username as common.ErrDuplicateUsername, GetUserByLogin reports an
// unknown one as common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}
