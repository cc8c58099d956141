// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package bandit

import "testing"

func TestModelCacheEviction(t *testing.T) {
	var evicted []string
	c := newModelCache(2, func(key string, _ *Model) {
		evicted = append(evicted, key)
	})

	c.put("a", NewModel(nil, 1, ContextDim))
	c.put("b", NewModel(nil, 1, ContextDim))
	c.put("c", NewModel(nil, 1, ContextDim))

	if len(evicted) != 1 || evicted[0] != "a" {
		t.Fatalf("evicted = %v, want [a]", evicted)
	}
	if c.len() != 2 {
		t.Fatalf("len = %d, want 2", c.len())
	}
	if _, ok := c.get("a"); ok {
		t.Error("evicted entry still retrievable")
	}
}

func TestModelCacheRecencyRefresh(t *testing.T) {
	var evicted []string
	c := newModelCache(2, func(key string, _ *Model) {
		evicted = append(evicted, key)
	})

	c.put("a", NewModel(nil, 1, ContextDim))
	c.put("b", NewModel(nil, 1, ContextDim))

	// Touch "a" so "b" becomes the LRU entry.
	if _, ok := c.get("a"); !ok {
		t.Fatal("entry a missing")
	}
	c.put("c", NewModel(nil, 1, ContextDim))

	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted = %v, want [b]", evicted)
	}
	if _, ok := c.get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
}

func TestModelCacheReplaceExisting(t *testing.T) {
	evictions := 0
	c := newModelCache(1, func(string, *Model) { evictions++ })

	m1 := NewModel(nil, 1, ContextDim)
	m2 := NewModel(nil, 1, ContextDim)
	c.put("a", m1)
	c.put("a", m2)

	if evictions != 0 {
		t.Errorf("replacing an entry fired %d evictions", evictions)
	}
	got, ok := c.get("a")
	if !ok || got != m2 {
		t.Error("replacement model not returned")
	}
}

func TestModelCacheEach(t *testing.T) {
	c := newModelCache(3, nil)
	c.put("a", NewModel(nil, 1, ContextDim))
	c.put("b", NewModel(nil, 1, ContextDim))
	c.put("c", NewModel(nil, 1, ContextDim))

	var order []string
	c.each(func(key string, _ *Model) { order = append(order, key) })

	// Most recently used first.
	want := []string{"c", "b", "a"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("iteration order = %v, want %v", order, want)
		}
	}
}

func TestModelCachePeekKeepsRecency(t *testing.T) {
	var evicted []string
	c := newModelCache(2, func(key string, _ *Model) {
		evicted = append(evicted, key)
	})

	c.put("a", NewModel(nil, 1, ContextDim))
	c.put("b", NewModel(nil, 1, ContextDim))

	// peek must not promote "a".
	if _, ok := c.peek("a"); !ok {
		t.Fatal("entry a missing")
	}
	c.put("c", NewModel(nil, 1, ContextDim))

	if len(evicted) != 1 || evicted[0] != "a" {
		t.Fatalf("evicted = %v, want [a]", evicted)
	}
}
