package schema

import (
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/capnweave/capnp"
)

// Cache is the process-wide schema cache spec.md §5 and §9 describe:
// "an optional schema cache keyed by absolute path, which must serialise
// concurrent loads of the same key and return the same result to all
// callers." golang.org/x/sync/singleflight collapses concurrent loads of
// the same path into a single decode; a plain map then serves repeat
// calls without re-decoding.
type Cache struct {
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]*Request
}

// NewCache returns an empty Cache. Most callers should use DefaultCache
// instead; NewCache exists for tests and for embedders that want cache
// isolation per compilation.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Request)}
}

var (
	defaultCacheOnce sync.Once
	defaultCache     *Cache
)

// DefaultCache returns the process-wide cache, initializing it on first
// use (spec.md §9 "Global schema cache ... explicit init (first use)").
func DefaultCache() *Cache {
	defaultCacheOnce.Do(func() {
		defaultCache = NewCache()
	})
	return defaultCache
}

// ResetDefaultCache discards the process-wide cache's contents. It is the
// "teardown (program exit)" half of spec.md §9's cache lifecycle; long-
// running hosts (or tests) call it to release decoded schema memory.
func ResetDefaultCache() {
	defaultCacheOnce.Do(func() { defaultCache = NewCache() })
	defaultCache.mu.Lock()
	defaultCache.entries = make(map[string]*Request)
	defaultCache.mu.Unlock()
}

// Load returns the decoded Request for path, calling fetch to obtain the
// raw CodeGeneratorRequest bytes on a cache miss. fetch is the external
// collaborator's job (spec.md §1: "schema-file loading from disk" is out
// of scope for this core) — Load only owns the caching and decoding.
func (c *Cache) Load(path string, fetch func() ([]byte, error)) (*Request, error) {
	c.mu.RLock()
	if req, ok := c.entries[path]; ok {
		c.mu.RUnlock()
		log.Debug().Str("path", path).Msg("schema cache hit")
		return req, nil
	}
	c.mu.RUnlock()

	v, err, shared := c.group.Do(path, func() (interface{}, error) {
		// A caller that missed the map above may reach Do after an
		// earlier flight for path has already finished and stored it.
		c.mu.RLock()
		cached, ok := c.entries[path]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}
		b, err := fetch()
		if err != nil {
			return nil, err
		}
		msg, err := capnp.Unmarshal(b)
		if err != nil {
			return nil, err
		}
		req, err := DecodeRequest(msg)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[path] = req
		c.mu.Unlock()
		return req, nil
	})
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("schema decode failed")
		return nil, err
	}
	log.Debug().Str("path", path).Bool("shared", shared).Msg("schema cache load")
	return v.(*Request), nil
}
