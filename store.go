package skyfetch

import (
	"hash/fnv"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-memory Store implementation sharded to reduce lock
// contention. It is the default backend when no Store is configured; the
// production app plugs in its preferences-backed store instead.
type MemoryStore struct {
	shards    []*storeShard
	numShards int
}

type storeShard struct {
	mu    sync.RWMutex
	store map[string]string
}

// NewMemoryStore creates an in-memory key-value store.
func NewMemoryStore() *MemoryStore {
	numShards := 16
	shards := make([]*storeShard, numShards)
	for i := range shards {
		shards[i] = &storeShard{
			store: make(map[string]string),
		}
	}
	return &MemoryStore{
		shards:    shards,
		numShards: numShards,
	}
}

func (s *MemoryStore) getShard(key string) *storeShard {
	hash := fnv.New32a()
	hash.Write([]byte(key))
	return s.shards[hash.Sum32()%uint32(s.numShards)]
}

// Get implements Store.
func (s *MemoryStore) Get(key string) (string, bool, error) {
	shard := s.getShard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	value, exists := shard.store[key]
	return value, exists, nil
}

// Set implements Store.
func (s *MemoryStore) Set(key, value string) error {
	shard := s.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.store[key] = value
	return nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(key string) error {
	shard := s.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.store, key)
	return nil
}

// Len returns the number of stored keys across all shards.
func (s *MemoryStore) Len() int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		total += len(shard.store)
		shard.mu.RUnlock()
	}
	return total
}

// GoCacheStore adapts a patrickmn/go-cache instance to the Store interface.
// Expiration is left to the cache layer above, so entries are stored without
// a per-item TTL.
type GoCacheStore struct {
	c *gocache.Cache
}

// NewGoCacheStore creates a Store backed by go-cache.
func NewGoCacheStore() *GoCacheStore {
	return &GoCacheStore{
		c: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get implements Store.
func (s *GoCacheStore) Get(key string) (string, bool, error) {
	v, found := s.c.Get(key)
	if !found {
		return "", false, nil
	}
	value, ok := v.(string)
	if !ok {
		return "", false, nil
	}
	return value, true, nil
}

// Set implements Store.
func (s *GoCacheStore) Set(key, value string) error {
	s.c.Set(key, value, gocache.NoExpiration)
	return nil
}

// Remove implements Store.
func (s *GoCacheStore) Remove(key string) error {
	s.c.Delete(key)
	return nil
}
