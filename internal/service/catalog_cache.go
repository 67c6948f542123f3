package service

import (
	"slices"
	"sync"
	"time"

	"github.com/set-night/shareit/internal/domain"
)

// catalogCache holds the business list between catalog imports. Imports from
// another process are picked up once the entry expires.
type catalogCache struct {
	mu         sync.RWMutex
	businesses []domain.Business
	cachedAt   time.Time
	ttl        time.Duration
}

func newCatalogCache(ttl time.Duration) *catalogCache {
	return &catalogCache{ttl: ttl}
}

func (c *catalogCache) get(now time.Time) ([]domain.Business, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.businesses == nil || now.Sub(c.cachedAt) > c.ttl {
		return nil, false
	}
	return slices.Clone(c.businesses), true
}

func (c *catalogCache) set(businesses []domain.Business, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.businesses = slices.Clone(businesses)
	c.cachedAt = now
}

func (c *catalogCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.businesses = nil
}
