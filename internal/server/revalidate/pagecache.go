package revalidate

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// PageCache holds rendered pages keyed by request path. A zero TTL disables
// caching.
//
// Each path carries a generation bumped by Revalidate. A render records the
// generation before reading data and stores its page only if no
// revalidation happened in between, so a slow render cannot put back a page
// built from data older than the last change.
type PageCache struct {
	c       *cache.Cache
	enabled bool

	mu  sync.Mutex
	gen map[string]uint64
}

func NewPageCache(ttl time.Duration) *PageCache {
	p := &PageCache{gen: map[string]uint64{}}
	if ttl <= 0 {
		p.c = cache.New(cache.NoExpiration, 0)
		return p
	}
	p.c = cache.New(ttl, 2*ttl)
	p.enabled = true
	return p
}

func (p *PageCache) Get(path string) ([]byte, bool) {
	if !p.enabled {
		return nil, false
	}
	v, ok := p.c.Get(path)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Generation returns the current revalidation count of path.
func (p *PageCache) Generation(path string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen[path]
}

// Set stores page if path has not been revalidated since generation gen was
// read. It reports whether the page was stored.
func (p *PageCache) Set(path string, gen uint64, page []byte) bool {
	if !p.enabled {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen[path] != gen {
		return false
	}
	p.c.Set(path, page, cache.DefaultExpiration)
	return true
}

// Revalidate drops the given paths so the next request renders them again.
func (p *PageCache) Revalidate(_ context.Context, paths ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, path := range paths {
		p.gen[path]++
		p.c.Delete(path)
	}
}

func (p *PageCache) Len() int { return p.c.ItemCount() }
