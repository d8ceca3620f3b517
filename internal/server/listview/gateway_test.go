package listview

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/portfolio/internal/logging"
	"github.com/dmitrijs2005/portfolio/internal/server/gateway"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
	"github.com/dmitrijs2005/portfolio/internal/server/notify"
	"github.com/dmitrijs2005/portfolio/internal/server/repositories/documents"
)

// appendOnlyDocs is just enough of documents.Repository for Create and List.
type appendOnlyDocs struct {
	documents.Repository
	mu   sync.Mutex
	docs []*models.Document
}

func (a *appendOnlyDocs) Create(_ context.Context, d *models.Document) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs = append([]*models.Document{d}, a.docs...)
	return nil
}

func (a *appendOnlyDocs) List(_ context.Context, collection, _ string, _ documents.Direction) ([]*models.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []*models.Document{}
	for _, d := range a.docs {
		if d.Collection == collection {
			out = append(out, d)
		}
	}
	return out, nil
}

func newMemoryGateway(t *testing.T) *gateway.Gateway {
	t.Helper()
	return gateway.New(&appendOnlyDocs{}, nil, notify.NewMemory(), logging.NewNop())
}
