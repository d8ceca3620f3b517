package services

import (
	"context"

	"github.com/dmitrijs2005/portfolio/internal/server/gateway"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
)

// Store is the part of the data gateway the form pipelines use.
type Store interface {
	Get(ctx context.Context, collection, id string) (*models.Document, error)
	Create(ctx context.Context, collection string, fields gateway.Fields) (string, error)
	Update(ctx context.Context, collection, id string, fields gateway.Fields) error
	UpsertMerge(ctx context.Context, collection, id string, fields gateway.Fields) error
	Delete(ctx context.Context, collection, id string) error
	UploadBlob(ctx context.Context, pathHint string, data []byte, contentType, filename string) (string, error)
	DeleteBlob(ctx context.Context, url string) (bool, error)
	ManagesBlob(url string) bool
}

// Revalidator marks rendered pages stale.
type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string)
}

// Pages to revalidate after a change of each entity.
var (
	ProjectPaths = []string{"/admin/projects", "/projects", "/"}
	SkillPaths   = []string{"/admin/skills", "/skills", "/"}
	ProfilePaths = []string{"/admin/about", "/about", "/contact", "/"}
)
