package analysis

import (
	"bytes"
	"math/bits"
	"strconv"
	"sync"
	"time"

	"github.com/garyjia/tax-document-analyzer/internal/models"
)

// cacheKey is "<type>_<hash>" where the hash sums byte values with a 5-bit rotation
func cacheKey(docType models.DocumentType, payload []byte) string {
	var h uint32
	for _, b := range payload {
		h = bits.RotateLeft32(h, 5) + uint32(b)
	}
	return string(docType) + "_" + strconv.FormatUint(uint64(h), 36) + strconv.FormatInt(int64(len(payload)), 36)
}

type cacheEntry struct {
	payload    []byte
	result     *models.AnalysisResult
	insertedAt time.Time
}

// resultCache holds provider-derived analyses. Entries expire ttl after insertion;
// expired entries are not evicted, they are overwritten by the next successful call.
type resultCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// get returns a copy of the cached result. A hit requires the stored document to match
// payload exactly, so a hash collision is treated as a miss.
func (c *resultCache) get(key string, payload []byte) (*models.AnalysisResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.insertedAt) >= c.ttl {
		return nil, false
	}
	if !bytes.Equal(entry.payload, payload) {
		return nil, false
	}
	return entry.result.Clone(), true
}

func (c *resultCache) put(key string, payload []byte, result *models.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		payload:    payload,
		result:     result.Clone(),
		insertedAt: c.now(),
	}
}

func (c *resultCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
