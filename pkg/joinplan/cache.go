package joinplan

import (
	"sync"

	"go.uber.org/zap"
)

// Cache holds built FK graphs keyed by the content hash of their edge set
// (schema.EdgeHash). Graphs are immutable, so a hit is shared as-is across
// concurrent questions. Invalidation is a full rebuild under a new key or an
// explicit Invalidate; entries are never mutated in place.
type Cache struct {
	mu     sync.RWMutex
	graphs map[string]*Graph
	logger *zap.Logger
}

// NewCache creates an empty graph cache.
func NewCache(logger *zap.Logger) *Cache {
	return &Cache{
		graphs: make(map[string]*Graph),
		logger: logger.Named("joinplan-cache"),
	}
}

// GetOrBuild returns the cached graph for hash, building and storing it on a
// miss. build runs outside the write lock only once per key in the common
// path; a racing duplicate build is harmless since graphs are value-equal.
func (c *Cache) GetOrBuild(hash string, build func() *Graph) *Graph {
	c.mu.RLock()
	g, ok := c.graphs[hash]
	c.mu.RUnlock()
	if ok {
		return g
	}

	g = build()
	c.mu.Lock()
	if existing, ok := c.graphs[hash]; ok {
		g = existing
	} else {
		c.graphs[hash] = g
	}
	c.mu.Unlock()

	c.logger.Debug("built join graph", zap.String("hash", hash), zap.Int("edges", g.EdgeCount()))
	return g
}

// Invalidate drops one cached graph.
func (c *Cache) Invalidate(hash string) {
	c.mu.Lock()
	delete(c.graphs, hash)
	c.mu.Unlock()
}

// Reset drops every cached graph.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.graphs = make(map[string]*Graph)
	c.mu.Unlock()
}

// Len returns the number of cached graphs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.graphs)
}
