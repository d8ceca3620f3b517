package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/portfolio/internal/common"
	"github.com/dmitrijs2005/portfolio/internal/server/gateway"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
)

const managedPrefix = "https://blobs.test/"

type fakeStore struct {
	mu sync.Mutex

	docs    map[string]map[string]gateway.Fields
	nextID  int
	writes  int
	uploads []string
	deleted []string

	getErr     error
	writeErr   error
	uploadErr  error
	deleteBErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]map[string]gateway.Fields{}}
}

func (f *fakeStore) put(collection, id string, fields gateway.Fields) {
	if f.docs[collection] == nil {
		f.docs[collection] = map[string]gateway.Fields{}
	}
	f.docs[collection][id] = fields
}

func (f *fakeStore) Get(_ context.Context, collection, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	fields, ok := f.docs[collection][id]
	if !ok {
		return nil, &gateway.Error{Kind: gateway.KindNotFound, Op: "get", Err: common.ErrorNotFound}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return &models.Document{Collection: collection, ID: id, Data: b}, nil
}

func (f *fakeStore) stored(fields gateway.Fields) gateway.Fields {
	out := gateway.Fields{}
	for k, v := range fields {
		if v != gateway.DeleteField {
			out[k] = v
		}
	}
	return out
}

func (f *fakeStore) Create(_ context.Context, collection string, fields gateway.Fields) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return "", f.writeErr
	}
	f.nextID++
	id := fmt.Sprintf("id-%d", f.nextID)
	f.put(collection, id, f.stored(fields))
	f.writes++
	return id, nil
}

func (f *fakeStore) merge(collection, id string, fields gateway.Fields, upsert bool) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	cur, ok := f.docs[collection][id]
	if !ok {
		if !upsert {
			return &gateway.Error{Kind: gateway.KindNotFound, Op: "update", Err: common.ErrorNotFound}
		}
		cur = gateway.Fields{}
	}
	for k, v := range fields {
		if v == gateway.DeleteField {
			delete(cur, k)
			continue
		}
		cur[k] = v
	}
	f.put(collection, id, cur)
	f.writes++
	return nil
}

func (f *fakeStore) Update(_ context.Context, collection, id string, fields gateway.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.merge(collection, id, fields, false)
}

func (f *fakeStore) UpsertMerge(_ context.Context, collection, id string, fields gateway.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.merge(collection, id, fields, true)
}

func (f *fakeStore) Delete(_ context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if _, ok := f.docs[collection][id]; !ok {
		return &gateway.Error{Kind: gateway.KindNotFound, Op: "delete", Err: common.ErrorNotFound}
	}
	delete(f.docs[collection], id)
	f.writes++
	return nil
}

func (f *fakeStore) UploadBlob(_ context.Context, pathHint string, _ []byte, _, filename string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	u := fmt.Sprintf("%s%s/%d-%s", managedPrefix, pathHint, len(f.uploads), filename)
	f.uploads = append(f.uploads, u)
	return u, nil
}

func (f *fakeStore) DeleteBlob(_ context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	if f.deleteBErr != nil {
		return false, f.deleteBErr
	}
	return true, nil
}

func (f *fakeStore) ManagesBlob(url string) bool {
	return strings.HasPrefix(url, managedPrefix)
}

func (f *fakeStore) field(collection, id, key string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[collection][id][key]
}

type fakeRevalidator struct {
	paths []string
}

func (r *fakeRevalidator) Revalidate(_ context.Context, paths ...string) {
	r.paths = append(r.paths, paths...)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}
