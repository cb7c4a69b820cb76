package delta

import (
	"container/list"
	"sync"

	"github.com/chr33s/git/objects"
)

// Entry is a cached delta: the base object it deltas against, and the delta
// instruction bytes themselves.
type Entry struct {
	Base objects.OID
	Data []byte
}

// Cache is a FIFO-evicted oid→Entry map bounded by a fixed capacity
// (default 100, per spec §4.F).
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[objects.OID]*list.Element
}

// DefaultCapacity is the cache size used when none is specified.
const DefaultCapacity = 100

// NewCache returns an empty cache bounded to capacity entries.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[objects.OID]*list.Element),
	}
}

type record struct {
	oid   objects.OID
	entry Entry
}

// Put inserts or replaces the cached delta for oid, evicting the oldest
// entry if the cache is at capacity.
func (c *Cache) Put(oid objects.OID, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[oid]; ok {
		el.Value.(*record).entry = e
		return
	}

	el := c.order.PushBack(&record{oid: oid, entry: e})
	c.items[oid] = el

	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*record).oid)
	}
}

// Get returns the cached delta for oid, if present.
func (c *Cache) Get(oid objects.OID) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[oid]
	if !ok {
		return Entry{}, false
	}
	return el.Value.(*record).entry, true
}
