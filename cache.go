package skyfetch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const cacheIndexKey = "cache_index"

// CacheEntry is a cached payload together with its creation time.
type CacheEntry struct {
	Key       string
	Data      json.RawMessage
	CreatedAt time.Time
}

// indexEntry records one known cache key in insertion order. The persisted
// index lets eviction find the oldest entries without enumerating the store.
type indexEntry struct {
	Key       string `json:"key"`
	Timestamp int64  `json:"ts"`
}

// CacheStore persists payloads through a Store collaborator with TTL-aware
// reads, stale reads and size-bounded eviction. It is TTL-agnostic: callers
// supply the lifetime appropriate to the resource class on every read.
//
// Storage I/O failures never propagate; they degrade to a miss or a skipped
// write with a warning log, since the cache is an optimization rather than a
// correctness requirement.
type CacheStore struct {
	store      Store
	prefix     string
	maxEntries int
	// evictTarget stays below maxEntries so a single overflow does not
	// trigger an eviction on every subsequent Put.
	evictTarget int

	mu     sync.Mutex // serializes index mutation
	logger Logger
	now    func() time.Time
}

// NewCacheStore creates a cache over the given Store. maxEntries bounds the
// number of retained entries; eviction trims to 80% of the bound.
func NewCacheStore(store Store, prefix string, maxEntries int, logger Logger) *CacheStore {
	target := maxEntries - maxEntries/5
	if target >= maxEntries {
		target = maxEntries - 1
	}
	if target < 1 {
		target = 1
	}
	return &CacheStore{
		store:       store,
		prefix:      prefix,
		maxEntries:  maxEntries,
		evictTarget: target,
		logger:      logger,
		now:         time.Now,
	}
}

// GenerateKey derives the deterministic resource key for a URL and its query
// parameters. Parameters are canonicalized by sorting keys, so permutations
// of the same request map to the same key.
func GenerateKey(rawURL string, params map[string]string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		for _, k := range keys {
			b.WriteByte('&')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(params[k])
		}
		h.Write([]byte(b.String()))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// BuildURL merges params into rawURL's query string in canonical order.
func BuildURL(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (cs *CacheStore) dataKey(key string) string {
	return cs.prefix + key + "_data"
}

func (cs *CacheStore) timestampKey(key string) string {
	return cs.prefix + key + "_timestamp"
}

// Get returns the entry for key if it is younger than ttl. Expired entries
// report a miss but are retained for GetStale.
func (cs *CacheStore) Get(key string, ttl time.Duration) (*CacheEntry, bool) {
	entry, ok := cs.read(key)
	if !ok {
		return nil, false
	}

	if cs.now().Sub(entry.CreatedAt) > ttl {
		return nil, false
	}
	return entry, true
}

// GetStale returns the entry for key regardless of age. Used only as a
// last-resort fallback after a failed fetch.
func (cs *CacheStore) GetStale(key string) (*CacheEntry, bool) {
	return cs.read(key)
}

func (cs *CacheStore) read(key string) (*CacheEntry, bool) {
	tsRaw, ok, err := cs.store.Get(cs.timestampKey(key))
	if err != nil {
		cs.warn("cache read failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		cs.warn("cache timestamp corrupt, treating as miss", "key", key, "error", err)
		return nil, false
	}

	data, ok, err := cs.store.Get(cs.dataKey(key))
	if err != nil {
		cs.warn("cache read failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	return &CacheEntry{
		Key:       key,
		Data:      json.RawMessage(data),
		CreatedAt: time.UnixMilli(ts),
	}, true
}

// Put writes or overwrites the entry for key and enforces the size bound.
func (cs *CacheStore) Put(key string, data json.RawMessage, now time.Time) {
	if err := cs.store.Set(cs.dataKey(key), string(data)); err != nil {
		cs.warn("cache write failed, skipping", "key", key, "error", err)
		return
	}
	ts := now.UnixMilli()
	if err := cs.store.Set(cs.timestampKey(key), strconv.FormatInt(ts, 10)); err != nil {
		cs.warn("cache write failed, skipping", "key", key, "error", err)
		return
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	index := cs.loadIndex()
	updated := false
	for i := range index {
		if index[i].Key == key {
			index[i].Timestamp = ts
			updated = true
			break
		}
	}
	if !updated {
		index = append(index, indexEntry{Key: key, Timestamp: ts})
	}

	if len(index) > cs.maxEntries {
		index = cs.enforceSizeLimit(index)
	}

	cs.saveIndex(index)
}

// enforceSizeLimit evicts oldest-timestamp entries (insertion order breaks
// ties) until the index is at the eviction target. Caller holds cs.mu.
func (cs *CacheStore) enforceSizeLimit(index []indexEntry) []indexEntry {
	for len(index) > cs.evictTarget {
		oldest := 0
		for i := 1; i < len(index); i++ {
			if index[i].Timestamp < index[oldest].Timestamp {
				oldest = i
			}
		}

		victim := index[oldest].Key
		index = append(index[:oldest], index[oldest+1:]...)
		cs.removeEntry(victim)

		if cs.logger != nil {
			cs.logger.Debug("cache entry evicted", "key", victim)
		}
	}
	return index
}

// Remove deletes the entry for key.
func (cs *CacheStore) Remove(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	index := cs.loadIndex()
	for i := range index {
		if index[i].Key == key {
			index = append(index[:i], index[i+1:]...)
			break
		}
	}
	cs.removeEntry(key)
	cs.saveIndex(index)
}

// Clear deletes every known entry and the index.
func (cs *CacheStore) Clear() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, entry := range cs.loadIndex() {
		cs.removeEntry(entry.Key)
	}
	if err := cs.store.Remove(cacheIndexKey); err != nil {
		cs.warn("cache index remove failed", "error", err)
	}
}

// Len returns the number of entries currently tracked by the index.
func (cs *CacheStore) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.loadIndex())
}

func (cs *CacheStore) removeEntry(key string) {
	if err := cs.store.Remove(cs.dataKey(key)); err != nil {
		cs.warn("cache remove failed", "key", key, "error", err)
	}
	if err := cs.store.Remove(cs.timestampKey(key)); err != nil {
		cs.warn("cache remove failed", "key", key, "error", err)
	}
}

func (cs *CacheStore) loadIndex() []indexEntry {
	raw, ok, err := cs.store.Get(cacheIndexKey)
	if err != nil {
		cs.warn("cache index read failed, starting empty", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	var index []indexEntry
	if err := json.Unmarshal([]byte(raw), &index); err != nil {
		cs.warn("cache index corrupt, starting empty", "error", err)
		return nil
	}
	return index
}

func (cs *CacheStore) saveIndex(index []indexEntry) {
	raw, err := json.Marshal(index)
	if err != nil {
		cs.warn("cache index encode failed", "error", err)
		return
	}
	if err := cs.store.Set(cacheIndexKey, string(raw)); err != nil {
		cs.warn("cache index write failed", "error", err)
	}
}

func (cs *CacheStore) warn(msg string, keysAndValues ...interface{}) {
	if cs.logger != nil {
		cs.logger.Warn(msg, keysAndValues...)
	}
}
