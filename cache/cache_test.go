package cache

import (
	"strconv"
	"sync"
	"testing"
)

func TestGetSet(t *testing.T) {
	c := NewSharded[string, int](10, StringHasher)

	c.Set("key1", 42)

	val, ok := c.Get("key1")
	if !ok {
		t.Error("expected key1 to exist")
	}
	if val != 42 {
		t.Errorf("expected 42, got %d", val)
	}

	if _, ok = c.Get("nonexistent"); ok {
		t.Error("expected nonexistent key to not exist")
	}
}

func TestSetOverwrites(t *testing.T) {
	c := NewSharded[string, int](10, StringHasher)
	c.Set("k", 1)
	c.Set("k", 2)
	if val, _ := c.Get("k"); val != 2 {
		t.Errorf("expected 2, got %d", val)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestDelete(t *testing.T) {
	c := NewSharded[string, int](10, StringHasher)
	c.Set("k", 1)
	if !c.Delete("k") {
		t.Error("Delete returned false for existing key")
	}
	if c.Delete("k") {
		t.Error("Delete returned true for missing key")
	}
	if _, ok := c.Get("k"); ok {
		t.Error("deleted key still present")
	}
}

func TestEvictionAtCapacity(t *testing.T) {
	// Capacity 2 per shard; fill one shard far beyond that.
	c := NewSharded[string, int](2, func(string) uint64 { return 0 })
	for i := 0; i < 10; i++ {
		c.Set("key"+strconv.Itoa(i), i)
	}
	if c.Len() > 2 {
		t.Errorf("shard exceeded capacity: %d entries", c.Len())
	}
	if c.Stats().Evictions == 0 {
		t.Error("expected evictions")
	}
}

func TestOnEvictCallback(t *testing.T) {
	var evicted []string
	c := NewSharded[string, int](10, StringHasher)
	c.OnEvict(func(k string, _ int) { evicted = append(evicted, k) })

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	c.Clear()

	if len(evicted) != 2 {
		t.Fatalf("expected 2 evict callbacks, got %d (%v)", len(evicted), evicted)
	}
}

func TestLRUOrder(t *testing.T) {
	c := NewSharded[string, int](2, func(string) uint64 { return 0 })
	c.Set("a", 1)
	c.Set("b", 2)
	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", 3)

	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
}

func TestStats(t *testing.T) {
	c := NewSharded[string, int](10, StringHasher)
	c.Set("k", 1)
	c.Get("k")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit and 1 miss", s)
	}
	if s.Len != 1 {
		t.Errorf("stats len = %d, want 1", s.Len)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := NewSharded[string, int](64, StringHasher)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := "key" + strconv.Itoa((g*200+i)%50)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() == 0 {
		t.Error("cache empty after concurrent writes")
	}
}
