// Package users declares the persistence contract for directory users and
// its SQL implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/userdir/internal/server/models"
)

// Repository stores users. Lookups of absent records return
// common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// List returns every user ordered by name, then id.
	List(ctx context.Context) ([]*models.User, error)
	// SearchByName matches a case-insensitive substring of the name.
	SearchByName(ctx context.Context, query string) ([]*models.User, error)
}
