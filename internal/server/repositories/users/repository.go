package users

import (
	"context"

	"github.com/dmitrijs2005/portfolio/internal/server/models"
)

// Repository stores accounts able to sign in.
type Repository interface {
	// Upsert creates the account or replaces its email and password hash.
	Upsert(ctx context.Context, user *models.User) error
	// GetByEmail returns common.ErrorNotFound when no account has that email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByID returns common.ErrorNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (*models.User, error)
}
