package cache

import (
	"fmt"
	"testing"

	"github.com/clearcart/relevance/internal/catalog"
	"github.com/clearcart/relevance/internal/rank"
)

func results(id int64) []rank.Scored {
	return []rank.Scored{{Product: &catalog.Product{ID: id}, Score: 1.0}}
}

func TestGetSet(t *testing.T) {
	c := New(10)

	key := Key{Query: "iphone", Category: "phone", Limit: 10}
	if _, ok := c.Get(key); ok {
		t.Fatal("empty cache should miss")
	}

	c.Set(key, results(1))
	got, ok := c.Get(key)
	if !ok || len(got) != 1 || got[0].Product.ID != 1 {
		t.Fatalf("expected hit with product 1, got %v ok=%v", got, ok)
	}

	// Distinct limits are distinct keys.
	other := Key{Query: "iphone", Category: "phone", Limit: 20}
	if _, ok := c.Get(other); ok {
		t.Error("different limit should be a different key")
	}
}

func TestEvictsExactlyLRU(t *testing.T) {
	c := New(3)

	for i := 0; i < 3; i++ {
		c.Set(Key{Query: fmt.Sprintf("q%d", i)}, results(int64(i)))
	}
	// Capacity+1th insert evicts exactly q0, the least recently used.
	c.Set(Key{Query: "q3"}, results(3))

	if _, ok := c.Get(Key{Query: "q0"}); ok {
		t.Error("q0 should have been evicted")
	}
	for i := 1; i <= 3; i++ {
		if _, ok := c.Get(Key{Query: fmt.Sprintf("q%d", i)}); !ok {
			t.Errorf("q%d should still be cached", i)
		}
	}
	if c.Len() != 3 {
		t.Errorf("len = %d, want 3", c.Len())
	}
}

func TestGetPromotesRecency(t *testing.T) {
	c := New(3)

	c.Set(Key{Query: "a"}, results(1))
	c.Set(Key{Query: "b"}, results(2))
	c.Set(Key{Query: "c"}, results(3))

	// Touch "a" so "b" becomes the LRU entry.
	if _, ok := c.Get(Key{Query: "a"}); !ok {
		t.Fatal("expected hit on a")
	}

	c.Set(Key{Query: "d"}, results(4))

	if _, ok := c.Get(Key{Query: "a"}); !ok {
		t.Error("a was promoted and should survive eviction")
	}
	if _, ok := c.Get(Key{Query: "b"}); ok {
		t.Error("b should have been evicted as LRU")
	}
}

func TestSetExistingKeyUpdates(t *testing.T) {
	c := New(2)

	key := Key{Query: "x"}
	c.Set(key, results(1))
	c.Set(key, results(2))

	if c.Len() != 1 {
		t.Errorf("len = %d, want 1 after overwriting the same key", c.Len())
	}
	got, _ := c.Get(key)
	if got[0].Product.ID != 2 {
		t.Errorf("expected updated results, got product %d", got[0].Product.ID)
	}
}

func TestClear(t *testing.T) {
	c := New(2)
	c.Set(Key{Query: "x"}, results(1))
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("len = %d after Clear, want 0", c.Len())
	}
	if _, ok := c.Get(Key{Query: "x"}); ok {
		t.Error("cleared cache should miss")
	}
}
