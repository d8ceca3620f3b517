// Package listview keeps a decoded, ordered copy of a collection in step with
// a live gateway subscription.
package listview

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/portfolio/internal/server/gateway"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
)

// Status of a view. Loading, Empty and Error are distinct so each can be
// rendered differently.
type Status int

const (
	Loading Status = iota
	Empty
	Ready
	Error
)

func (s Status) String() string {
	switch s {
	case Empty:
		return "empty"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "loading"
	}
}

// State is a snapshot of a view.
type State[T any] struct {
	Status Status
	Items  []T
	Err    error
}

// Subscriber is the subscription half of the data gateway.
type Subscriber interface {
	Subscribe(ctx context.Context, collection string, order gateway.Order,
		onData func([]*models.Document), onError func(error)) (func(), error)
}

// View owns exactly one subscription. Close releases it once; pushes that
// arrive afterwards are dropped.
type View[T any] struct {
	deliver  sync.Mutex
	mu       sync.Mutex
	state    State[T]
	onChange func(State[T])
	closed   bool

	unsubscribe func()
	closeOnce   sync.Once
}

// Open subscribes to collection newest first. onChange receives every state
// transition, starting with the first push, one call at a time. No call
// starts once Close has been called.
func Open[T any](ctx context.Context, sub Subscriber, collection string, onChange func(State[T])) (*View[T], error) {
	v := &View[T]{onChange: onChange}

	unsubscribe, err := sub.Subscribe(ctx, collection, gateway.NewestFirst, v.push, v.fail)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.unsubscribe = unsubscribe
	closed := v.closed
	v.mu.Unlock()
	if closed {
		unsubscribe()
	}
	return v, nil
}

func (v *View[T]) push(docs []*models.Document) {
	items, err := models.DecodeAll[T](docs)
	if err != nil {
		v.fail(err)
		return
	}

	st := State[T]{Status: Ready, Items: items}
	if len(items) == 0 {
		st.Status = Empty
	}
	v.set(st)
}

func (v *View[T]) fail(err error) {
	v.set(State[T]{Status: Error, Err: err})
}

func (v *View[T]) set(st State[T]) {
	v.deliver.Lock()
	defer v.deliver.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.state = st
	v.mu.Unlock()

	if v.onChange != nil {
		v.onChange(st)
	}
}

// State returns the latest snapshot.
func (v *View[T]) State() State[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Close stops updates and releases the subscription. Safe to call repeatedly.
func (v *View[T]) Close() {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		unsubscribe := v.unsubscribe
		v.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
	})
}
