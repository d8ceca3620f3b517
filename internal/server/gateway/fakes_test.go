package gateway

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/portfolio/internal/common"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
	"github.com/dmitrijs2005/portfolio/internal/server/repositories/documents"
)

type memDocs struct {
	mu      sync.Mutex
	docs    map[string]*models.Document
	clock   time.Time
	lastRm  []string
	listErr error
	err     error
}

func newMemDocs() *memDocs {
	return &memDocs{docs: map[string]*models.Document{}, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func key(c, id string) string { return c + "/" + id }

func (m *memDocs) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memDocs) Get(_ context.Context, c, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.docs[key(c, id)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDocs) List(_ context.Context, c, orderBy string, dir documents.Direction) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []*models.Document{}
	for _, d := range m.docs {
		if d.Collection == c {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if dir == documents.Desc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memDocs) Create(_ context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	d.CreatedAt = m.tick()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	m.docs[key(d.Collection, d.ID)] = &cp
	return nil
}

func (m *memDocs) merge(c, id string, patch json.RawMessage, remove []string, upsert bool) error {
	if m.err != nil {
		return m.err
	}
	m.lastRm = remove
	d, ok := m.docs[key(c, id)]
	if !ok {
		if !upsert {
			return common.ErrorNotFound
		}
		d = &models.Document{Collection: c, ID: id, Data: json.RawMessage(`{}`), CreatedAt: m.tick()}
		m.docs[key(c, id)] = d
	}
	fields := map[string]any{}
	_ = json.Unmarshal(d.Data, &fields)
	for _, k := range remove {
		delete(fields, k)
	}
	p := map[string]any{}
	_ = json.Unmarshal(patch, &p)
	for k, v := range p {
		fields[k] = v
	}
	d.Data, _ = json.Marshal(fields)
	d.UpdatedAt = m.tick()
	return nil
}

func (m *memDocs) Merge(_ context.Context, c, id string, patch json.RawMessage, remove []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.merge(c, id, patch, remove, false)
}

func (m *memDocs) Upsert(_ context.Context, c, id string, patch json.RawMessage, remove []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.merge(c, id, patch, remove, true)
}

func (m *memDocs) Delete(_ context.Context, c, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.docs[key(c, id)]; !ok {
		return common.ErrorNotFound
	}
	delete(m.docs, key(c, id))
	return nil
}

type fakeBlobs struct {
	uploaded  []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeBlobs) Upload(_ context.Context, pathHint string, _ []byte, _, filename string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	u := "https://blobs.test/" + pathHint + "/" + filename
	f.uploaded = append(f.uploaded, u)
	return u, nil
}

func (f *fakeBlobs) Delete(_ context.Context, url string) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	f.deleted = append(f.deleted, url)
	return true, nil
}

func (f *fakeBlobs) Manages(url string) bool {
	return strings.HasPrefix(url, "https://blobs.test/")
}
