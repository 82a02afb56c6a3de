package nlp

import (
	"container/list"
	"context"
	"crypto/sha256"
	"sync"
)

const DefaultCacheSize = 16

// CachedParser memoises parsed documents by the SHA-256 of their text so
// duplicated files only pay for the parse once. At most capacity documents
// are kept; the least recently used one is evicted first. Returned documents
// are shared and must be treated as read-only.
type CachedParser struct {
	parser   Parser
	capacity int

	mu     sync.Mutex
	items  map[[sha256.Size]byte]*list.Element
	order  *list.List
	hits   int
	misses int
}

type cacheEntry struct {
	key [sha256.Size]byte
	doc *Document
}

func NewCachedParser(parser Parser, capacity int) *CachedParser {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &CachedParser{
		parser:   parser,
		capacity: capacity,
		items:    make(map[[sha256.Size]byte]*list.Element),
		order:    list.New(),
	}
}

func (c *CachedParser) Name() string {
	return c.parser.Name()
}

func (c *CachedParser) Parse(ctx context.Context, text string) (*Document, error) {
	key := sha256.Sum256([]byte(text))

	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.hits++
		c.order.MoveToFront(elem)
		doc := elem.Value.(*cacheEntry).doc
		c.mu.Unlock()
		return doc, nil
	}
	c.mu.Unlock()

	doc, err := c.parser.Parse(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.misses++
	if _, ok := c.items[key]; !ok {
		c.items[key] = c.order.PushFront(&cacheEntry{key: key, doc: doc})
		for c.order.Len() > c.capacity {
			oldest := c.order.Back()
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}

	return doc, nil
}

func (c *CachedParser) Close() error {
	return c.parser.Close()
}

func (c *CachedParser) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *CachedParser) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hits+c.misses > 0 {
		return float64(c.hits) / float64(c.hits+c.misses)
	}
	return 0.0
}
