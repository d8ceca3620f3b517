// Package refreshtokens declares the repository contract for the owner's
// server-stored sign-in sessions.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/portfolio/internal/server/models"
)

// Repository issues, looks up and revokes refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID with an expiry of now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find looks up a refresh token by its opaque token string.
	// It returns common.ErrorNotFound when the token is absent or revoked.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete revokes a single token. Deleting a missing token is not an error.
	Delete(ctx context.Context, token string) error

	// Consume revokes a token exactly once. A token that is already gone
	// yields common.ErrorNotFound.
	Consume(ctx context.Context, token string) error

	// DeleteByUser revokes every session of userID and returns how many were removed.
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired drops userID's tokens that expired before now.
	DeleteExpired(ctx context.Context, userID string, now time.Time) (int64, error)
}
