package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/ensembleai/ensemble/model"
)

// responseCache memoizes final model responses keyed by a digest of the full
// request. Entries expire after a TTL; when the cache is full the oldest
// entry is evicted. Safe for concurrent use.
type responseCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]cacheEntry
}

type cacheEntry struct {
	resp    *model.Response
	addedAt time.Time
}

func newResponseCache(ttl time.Duration, maxEntries int) *responseCache {
	return &responseCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]cacheEntry),
	}
}

// key digests the model identity, resolved instructions and request contents.
func (c *responseCache) key(modelName, instructions string, req model.Request) string {
	h := sha256.New()
	h.Write([]byte(modelName))
	h.Write([]byte{0})
	h.Write([]byte(instructions))
	h.Write([]byte{0})
	if raw, err := json.Marshal(req.Contents); err == nil {
		h.Write(raw)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *responseCache) get(key string) (*model.Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(entry.addedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.resp, true
}

func (c *responseCache) put(key string, resp *model.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		var oldestKey string
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.addedAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.addedAt
			}
		}
		delete(c.entries, oldestKey)
	}
	c.entries[key] = cacheEntry{resp: resp, addedAt: time.Now()}
}
