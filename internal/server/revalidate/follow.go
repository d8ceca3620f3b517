package revalidate

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/portfolio/internal/logging"
)

// Signals delivers "collection changed" notifications (see notify.Notifier).
type Signals interface {
	Subscribe(ctx context.Context, collection string) (<-chan struct{}, func(), error)
}

// Follower revalidates pages whenever a collection they are built from
// changes, including changes written by other server processes.
type Follower struct {
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Follow subscribes to every collection in routes and revalidates the mapped
// paths on target after each signal. Subscriptions are established before it
// returns and end with ctx or Stop. On error none are left running.
func Follow(ctx context.Context, signals Signals, target Target, routes map[string][]string, log logging.Logger) (*Follower, error) {
	log = log.With("module", "revalidate_follow")
	ctx, cancel := context.WithCancel(ctx)

	f := &Follower{cancel: cancel}
	type sub struct {
		ch     <-chan struct{}
		cancel func()
		paths  []string
	}
	subs := make([]sub, 0, len(routes))
	for collection, paths := range routes {
		ch, unsubscribe, err := signals.Subscribe(ctx, collection)
		if err != nil {
			for _, s := range subs {
				s.cancel()
			}
			cancel()
			return nil, fmt.Errorf("follow %s: %w", collection, err)
		}
		subs = append(subs, sub{ch: ch, cancel: unsubscribe, paths: paths})
	}

	for _, s := range subs {
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			defer s.cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-s.ch:
					if !ok {
						return
					}
					target.Revalidate(ctx, s.paths...)
					log.Debug(ctx, "pages revalidated", "paths", s.paths)
				}
			}
		}()
	}

	return f, nil
}

// Stop ends every subscription and waits for the followers to return.
func (f *Follower) Stop() {
	f.cancel()
	f.wg.Wait()
}
