package cache

import (
	"testing"
	"time"

	"github.com/ppiankov/clientscore/internal/model"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	c.Set(&model.ClientRecord{ID: 7, Gender: ptr("F")}, 0)

	got, ok := c.Get(7)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.ID != 7 || got.Gender == nil || *got.Gender != "F" {
		t.Errorf("unexpected record: %+v", got)
	}

	if _, ok := c.Get(8); ok {
		t.Error("expected miss for unknown id")
	}
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	c.Set(&model.ClientRecord{ID: 1, Features: `{"a":1}`}, 0)

	first, _ := c.Get(1)
	first.Features = "mutated"

	second, _ := c.Get(1)
	if second.Features != `{"a":1}` {
		t.Errorf("cached record was mutated through a returned copy: %q", second.Features)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	c.Set(&model.ClientRecord{ID: 1}, 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get(1); ok {
		t.Error("expected entry to expire")
	}
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	c.Set(&model.ClientRecord{ID: 1}, 0)
	c.Set(&model.ClientRecord{ID: 2}, 0)

	c.Delete(1)
	if _, ok := c.Get(1); ok {
		t.Error("expected id 1 to be deleted")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after Clear, got %d", c.Len())
	}
}

func TestCacheKey(t *testing.T) {
	if got := CacheKey(42); got != "clientscore:v1:client:42" {
		t.Errorf("unexpected key %q", got)
	}
}

// ptr returns a pointer to v
func ptr[T any](v T) *T { return &v }
