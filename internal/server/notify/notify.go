// Package notify broadcasts "collection changed" signals between writers and
// live subscriptions. Signals carry no payload; subscribers re-read the
// collection when they receive one.
package notify

import "context"

// Notifier publishes and delivers change signals per collection.
//
// Subscribe returns a channel that receives at least one value after every
// Publish for the collection that happens once Subscribe has returned.
// Bursts may be coalesced into a single value. The cancel function closes the
// channel and is safe to call more than once.
type Notifier interface {
	Publish(ctx context.Context, collection string) error
	Subscribe(ctx context.Context, collection string) (<-chan struct{}, func(), error)
}

// signal performs a non-blocking send so a slow subscriber only ever has one
// pending signal.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
