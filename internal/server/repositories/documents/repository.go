// Package documents stores schemaless records grouped in named collections.
package documents

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/portfolio/internal/server/models"
)

// Direction is the sort direction of a listing.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Repository is the persistence contract behind the data gateway.
type Repository interface {
	// Get returns common.ErrorNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (*models.Document, error)

	// List returns every document of the collection ordered by orderBy, which is
	// either "created_at", "updated_at" or a top-level field of the data object.
	// Ties are broken by id in the same direction.
	List(ctx context.Context, collection, orderBy string, dir Direction) ([]*models.Document, error)

	// Create inserts doc; its CreatedAt and UpdatedAt are filled from the database.
	Create(ctx context.Context, doc *models.Document) error

	// Merge applies patch on top of the stored data after removing the keys in
	// remove. Returns common.ErrorNotFound when the document does not exist.
	Merge(ctx context.Context, collection, id string, patch json.RawMessage, remove []string) error

	// Upsert behaves like Merge but creates the document when it is missing.
	Upsert(ctx context.Context, collection, id string, patch json.RawMessage, remove []string) error

	// Delete returns common.ErrorNotFound when nothing was deleted.
	Delete(ctx context.Context, collection, id string) error
}
