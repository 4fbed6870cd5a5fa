package analysis

import (
	"sync"
	"time"
)

// circuit tracks rate-limit backoff for a single provider
type circuit struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed
}

func (c *circuit) openUntil(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuit) trip(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}
