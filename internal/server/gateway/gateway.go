// Package gateway is the single entry point to persisted portfolio data:
// schemaless documents grouped in collections, live collection
// subscriptions, and image blobs.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/portfolio/internal/logging"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
	"github.com/dmitrijs2005/portfolio/internal/server/notify"
	"github.com/dmitrijs2005/portfolio/internal/server/repositories/documents"
	"github.com/oklog/ulid/v2"
)

type deleteMarker struct{}

// DeleteField marks a field for removal in Update and UpsertMerge.
var DeleteField = deleteMarker{}

// Fields is a partial record. Values are marshalled with encoding/json.
type Fields map[string]any

// Order selects the sort of List and Subscribe.
type Order struct {
	Field string
	Dir   documents.Direction
}

// NewestFirst orders by creation time, newest first.
var NewestFirst = Order{Field: "created_at", Dir: documents.Desc}

// BlobStore keeps binary objects addressed by public URL.
type BlobStore interface {
	Upload(ctx context.Context, pathHint string, data []byte, contentType, filename string) (string, error)
	Delete(ctx context.Context, url string) (deleted bool, err error)
	Manages(url string) bool
}

type Gateway struct {
	docs     documents.Repository
	blobs    BlobStore
	notifier notify.Notifier
	log      logging.Logger
	newID    func() string
}

func New(docs documents.Repository, blobs BlobStore, notifier notify.Notifier, log logging.Logger) *Gateway {
	return &Gateway{
		docs:     docs,
		blobs:    blobs,
		notifier: notifier,
		log:      log.With("module", "gateway"),
		newID:    func() string { return ulid.Make().String() },
	}
}

func (g *Gateway) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	d, err := g.docs.Get(ctx, collection, id)
	return d, wrap("get "+collection, err)
}

func (g *Gateway) List(ctx context.Context, collection string, order Order) ([]*models.Document, error) {
	docs, err := g.docs.List(ctx, collection, order.Field, order.Dir)
	return docs, wrap("list "+collection, err)
}

// split separates the fields to write from the ones marked with DeleteField.
func split(fields Fields) (json.RawMessage, []string, error) {
	patch := make(map[string]any, len(fields))
	var remove []string
	for k, v := range fields {
		if k == "id" || k == "createdAt" {
			continue
		}
		if _, ok := v.(deleteMarker); ok {
			remove = append(remove, k)
			continue
		}
		patch[k] = v
	}
	b, err := json.Marshal(patch)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal fields: %w", err)
	}
	return b, remove, nil
}

func (g *Gateway) changed(ctx context.Context, collection string) {
	if err := g.notifier.Publish(ctx, collection); err != nil {
		g.log.Warn(ctx, "change notification failed", "collection", collection, "error", err)
	}
}

// Create stores fields as a new document and returns its generated id.
// DeleteField values are ignored.
func (g *Gateway) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	op := "create " + collection
	data, _, err := split(fields)
	if err != nil {
		return "", &Error{Kind: KindInvalid, Op: op, Err: err}
	}

	doc := &models.Document{Collection: collection, ID: g.newID(), Data: data}
	if err := g.docs.Create(ctx, doc); err != nil {
		return "", wrap(op, err)
	}
	g.changed(ctx, collection)
	return doc.ID, nil
}

// Update merges fields into an existing document. Fields not named keep
// their value; fields set to DeleteField are removed.
func (g *Gateway) Update(ctx context.Context, collection, id string, fields Fields) error {
	op := "update " + collection
	patch, remove, err := split(fields)
	if err != nil {
		return &Error{Kind: KindInvalid, Op: op, Err: err}
	}
	if err := g.docs.Merge(ctx, collection, id, patch, remove); err != nil {
		return wrap(op, err)
	}
	g.changed(ctx, collection)
	return nil
}

// UpsertMerge is Update that creates the document when it does not exist.
func (g *Gateway) UpsertMerge(ctx context.Context, collection, id string, fields Fields) error {
	op := "upsert " + collection
	patch, remove, err := split(fields)
	if err != nil {
		return &Error{Kind: KindInvalid, Op: op, Err: err}
	}
	if err := g.docs.Upsert(ctx, collection, id, patch, remove); err != nil {
		return wrap(op, err)
	}
	g.changed(ctx, collection)
	return nil
}

func (g *Gateway) Delete(ctx context.Context, collection, id string) error {
	if err := g.docs.Delete(ctx, collection, id); err != nil {
		return wrap("delete "+collection, err)
	}
	g.changed(ctx, collection)
	return nil
}

// UploadBlob stores data and returns its public URL.
func (g *Gateway) UploadBlob(ctx context.Context, pathHint string, data []byte, contentType, filename string) (string, error) {
	url, err := g.blobs.Upload(ctx, pathHint, data, contentType, filename)
	return url, wrap("upload blob", err)
}

// ManagesBlob reports whether url was issued by the blob store.
func (g *Gateway) ManagesBlob(url string) bool {
	return url != "" && g.blobs.Manages(url)
}

// DeleteBlob removes the blob behind url. URLs the store does not manage and
// blobs that are already gone are not errors; deleted reports whether an
// object was actually removed.
func (g *Gateway) DeleteBlob(ctx context.Context, url string) (deleted bool, err error) {
	deleted, err = g.blobs.Delete(ctx, url)
	return deleted, wrap("delete blob", err)
}

// Subscribe pushes the ordered collection to onData once immediately and
// again after every change notification until the returned function is
// called or ctx ends. Failures go to onError; the subscription stays open.
// The returned function is safe to call more than once.
func (g *Gateway) Subscribe(ctx context.Context, collection string, order Order,
	onData func([]*models.Document), onError func(error)) (func(), error) {

	signals, cancelSub, err := g.notifier.Subscribe(ctx, collection)
	if err != nil {
		return nil, wrap("subscribe "+collection, err)
	}

	ctx, stop := context.WithCancel(ctx)
	var closed atomic.Bool

	push := func() {
		docs, err := g.List(ctx, collection, order)
		if closed.Load() || ctx.Err() != nil {
			return
		}
		if err != nil {
			onError(err)
			return
		}
		onData(docs)
	}

	go func() {
		defer cancelSub()
		push()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				push()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			closed.Store(true)
			stop()
			cancelSub()
		})
	}, nil
}
