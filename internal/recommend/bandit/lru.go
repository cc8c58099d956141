// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package bandit

// modelCache is a bounded LRU cache of per-user models.
//
// The eviction callback fires synchronously, at most once per evicted
// entry, before the entry is removed. modelCache does no locking; the
// owning Hierarchical serializes all access under its mutex.
type modelCache struct {
	capacity int
	entries  map[string]*cacheNode
	onEvict  func(userID string, m *Model)

	// Sentinel nodes. head.next is most recently used,
	// tail.prev is least recently used.
	head *cacheNode
	tail *cacheNode
}

type cacheNode struct {
	key   string
	model *Model
	prev  *cacheNode
	next  *cacheNode
}

func newModelCache(capacity int, onEvict func(userID string, m *Model)) *modelCache {
	if capacity <= 0 {
		capacity = 1
	}
	c := &modelCache{
		capacity: capacity,
		entries:  make(map[string]*cacheNode, capacity),
		onEvict:  onEvict,
		head:     &cacheNode{},
		tail:     &cacheNode{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// get returns the cached model and marks it most recently used.
func (c *modelCache) get(key string) (*Model, bool) {
	node, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(node)
	return node.model, true
}

// put inserts or replaces a model, evicting the least recently used
// entry when over capacity.
func (c *modelCache) put(key string, m *Model) {
	if node, ok := c.entries[key]; ok {
		node.model = m
		c.moveToFront(node)
		return
	}

	node := &cacheNode{key: key, model: m}
	c.entries[key] = node
	c.pushFront(node)

	if len(c.entries) > c.capacity {
		lru := c.tail.prev
		if c.onEvict != nil {
			c.onEvict(lru.key, lru.model)
		}
		c.unlink(lru)
		delete(c.entries, lru.key)
	}
}

// peek returns the cached model without touching recency.
func (c *modelCache) peek(key string) (*Model, bool) {
	node, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return node.model, true
}

func (c *modelCache) len() int {
	return len(c.entries)
}

// each visits every cached entry from most to least recently used.
func (c *modelCache) each(fn func(key string, m *Model)) {
	for node := c.head.next; node != c.tail; node = node.next {
		fn(node.key, node.model)
	}
}

func (c *modelCache) pushFront(node *cacheNode) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *modelCache) unlink(node *cacheNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
	node.prev = nil
	node.next = nil
}

func (c *modelCache) moveToFront(node *cacheNode) {
	c.unlink(node)
	c.pushFront(node)
}
