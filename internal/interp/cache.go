package interp

import (
	"sync"

	"github.com/ivlev/keyframer/internal/animation"
	"github.com/ivlev/keyframer/internal/vector"
)

type cacheKey struct {
	param string
	frame int
}

// frameCache remembers values for exactly one (animation, revision) pair.
type frameCache struct {
	mu       sync.Mutex
	id       string
	revision uint64
	values   map[cacheKey]vector.Vector
}

func (c *frameCache) get(snap *animation.Snapshot, param string, frame int) (vector.Vector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sync(snap)
	v, ok := c.values[cacheKey{param, frame}]
	return v, ok
}

func (c *frameCache) put(snap *animation.Snapshot, param string, frame int, v vector.Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sync(snap)
	c.values[cacheKey{param, frame}] = v
}

func (c *frameCache) sync(snap *animation.Snapshot) {
	if c.values != nil && c.id == snap.ID() && c.revision == snap.Revision() {
		return
	}
	c.id = snap.ID()
	c.revision = snap.Revision()
	c.values = make(map[cacheKey]vector.Vector)
}

func (c *frameCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}
