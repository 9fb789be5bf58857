package field

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of validators kept when no size is configured.
const DefaultCacheSize = 1024

// Cache memoizes validators by definition id and version. Every update to a
// definition bumps its version, so stale validators are never returned.
type Cache struct {
	lru *lru.Cache[string, Validator]
}

// NewCache returns a Cache holding at most size validators.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, Validator](size)
	if err != nil {
		return nil, fmt.Errorf("field: new validator cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Validator returns the memoized validator for def, building it on a miss.
// Definitions without an id are never cached.
func (c *Cache) Validator(def Definition) Validator {
	if c == nil || def.ID == "" {
		return BuildValidator(def.Config, def.Required)
	}
	key := fmt.Sprintf("%s@%d", def.ID, def.Version)
	if v, ok := c.lru.Get(key); ok {
		return v
	}
	v := BuildValidator(def.Config, def.Required)
	c.lru.Add(key, v)
	return v
}

// Len returns the number of cached validators.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
