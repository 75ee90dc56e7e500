package embedding

import (
	"sync"
	"testing"
)

func TestCache_GetSet(t *testing.T) {
	c := NewCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

// Get reorders the recency list on a hit, so concurrent hits must not corrupt
// it. Run with -race.
func TestCache_concurrentGet(t *testing.T) {
	c := NewCache(4)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		key := "a"
		if i%2 == 0 {
			key = "b"
		}
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if _, ok := c.Get(key); !ok {
					t.Errorf("expected hit for %q", key)
					return
				}
			}
		}(key)
	}
	wg.Wait()

	if _, ok := c.Get("a"); !ok {
		t.Error("a missing after concurrent gets")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b missing after concurrent gets")
	}
}
