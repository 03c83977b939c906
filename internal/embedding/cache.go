package embedding

import (
	"container/list"
	"sync"
)

// EmbeddingCache remembers recent question embeddings, evicting the least recently
// used text once it holds capacity entries. Capacity <= 0 turns it into a no-op.
// Vectors are copied on the way in and out, so callers may mutate what they hold.
type EmbeddingCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front is most recent
	byText   map[string]*list.Element
	hits     uint64
	misses   uint64
}

type cached struct {
	text   string
	vector []float32
}

// NewEmbeddingCache returns an empty cache holding at most capacity vectors.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: capacity,
		order:    list.New(),
		byText:   make(map[string]*list.Element),
	}
}

// Get looks up text and marks it as recently used.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.byText[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return append([]float32(nil), el.Value.(*cached).vector...), true
}

// Set records the vector for text.
func (c *EmbeddingCache) Set(text string, vector []float32) {
	if c.capacity <= 0 {
		return
	}
	vector = append([]float32(nil), vector...)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byText[text]; ok {
		el.Value.(*cached).vector = vector
		c.order.MoveToFront(el)
		return
	}
	c.byText[text] = c.order.PushFront(&cached{text: text, vector: vector})
	for c.order.Len() > c.capacity {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.byText, last.Value.(*cached).text)
	}
}

// Len returns the number of cached vectors.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the lookup hit and miss counts since creation.
func (c *EmbeddingCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
