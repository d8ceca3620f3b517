// Package revalidate marks rendered pages stale after content changes: it
// drops them from the page cache and optionally notifies an external
// frontend through a webhook.
package revalidate

import "context"

// Target reacts to pages becoming stale.
type Target interface {
	Revalidate(ctx context.Context, paths ...string)
}

// Multi fans a revalidation out to every target in order.
type Multi []Target

func (m Multi) Revalidate(ctx context.Context, paths ...string) {
	for _, t := range m {
		if t != nil {
			t.Revalidate(ctx, paths...)
		}
	}
}
