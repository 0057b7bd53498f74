package ceremony

import (
	"context"

	lru "github.com/hashicorp/golang-lru"

	"github.com/fairdeck/fairdeck/log"
)

// NewCachingStore wraps a transcript store with an LRU cache of recently
// read transcripts. Transcripts are immutable once archived, so cached
// entries never go stale.
func NewCachingStore(s Store, size int, l log.Logger) (Store, error) {
	cache, err := lru.NewARC(size)
	if err != nil {
		return nil, err
	}
	return &cachingStore{
		Store: s,
		cache: cache,
		log:   l,
	}, nil
}

type cachingStore struct {
	Store

	cache *lru.ARCCache
	log   log.Logger
}

// Get returns the transcript for the game id, from cache when possible.
func (c *cachingStore) Get(ctx context.Context, gameID string) (*Transcript, error) {
	if val, ok := c.cache.Get(gameID); ok {
		return val.(*Transcript), nil
	}
	t, err := c.Store.Get(ctx, gameID)
	if err == nil && t != nil {
		c.cache.Add(gameID, t)
	}
	return t, err
}

// Put archives the transcript and primes the cache with it.
func (c *cachingStore) Put(ctx context.Context, t *Transcript) error {
	if err := c.Store.Put(ctx, t); err != nil {
		return err
	}
	c.cache.Add(t.GameID, t)
	return nil
}
