package zql

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is an LRU of compiled queries keyed by query text. Parsed queries
// are immutable, so a cached *Query is safe to share across concurrent
// executions. Compilation failures are not cached.
type Cache struct {
	c *lru.Cache[string, *Query]
}

// NewCache creates a cache holding up to size compiled queries.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New[string, *Query](size)
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Compile returns the cached query for text, parsing and caching on miss.
func (c *Cache) Compile(text string) (*Query, error) {
	if q, ok := c.c.Get(text); ok {
		return q, nil
	}
	q, err := Parse(text)
	if err != nil {
		return nil, err
	}
	c.c.Add(text, q)
	return q, nil
}

// Contains reports whether text is already compiled, without promoting it.
func (c *Cache) Contains(text string) bool { return c.c.Contains(text) }

// Len reports the number of cached queries.
func (c *Cache) Len() int { return c.c.Len() }
