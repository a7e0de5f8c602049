// ABOUTME: Tests for the TTL cache used for backend lookup results.
// ABOUTME: Validates TTL expiration, size limits, eviction, and concurrency safety.

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_GetMissing(t *testing.T) {
	c := New[string](5*time.Minute, 100)
	defer c.Close()

	_, ok := c.Get("never-stored")
	assert.False(t, ok)
}

func TestCache_PutGet(t *testing.T) {
	c := New[string](5*time.Minute, 100)
	defer c.Close()

	c.Put("realms:p-1", "value")
	got, ok := c.Get("realms:p-1")
	assert.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestCache_Expiry(t *testing.T) {
	c := New[int](10*time.Millisecond, 100)
	defer c.Close()

	c.Put("k", 42)
	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_PutRefreshesValue(t *testing.T) {
	c := New[int](time.Minute, 100)
	defer c.Close()

	c.Put("k", 1)
	c.Put("k", 2)
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 2, got)
	assert.Equal(t, 1, c.Len())
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	c := New[int](time.Minute, 3)
	defer c.Close()

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	c.Put("d", 4)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Get("d")
	assert.True(t, ok)
	assert.Equal(t, 3, c.Len())
}

func TestCache_Invalidate(t *testing.T) {
	c := New[int](time.Minute, 100)
	defer c.Close()

	c.Put("k", 1)
	c.Invalidate("k")
	_, ok := c.Get("k")
	assert.False(t, ok)

	// Invalidating a missing key is a no-op.
	c.Invalidate("missing")
}

func TestCache_RunCleanup(t *testing.T) {
	c := New[int](10*time.Millisecond, 100)
	defer c.Close()

	c.Put("k", 1)
	time.Sleep(20 * time.Millisecond)
	c.runCleanup()
	assert.Equal(t, 0, c.Len())
}

func TestCache_Concurrency(t *testing.T) {
	c := New[int](time.Minute, 1000)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", i, j)
				c.Put(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
}

func TestCache_CloseTwice(t *testing.T) {
	c := New[int](time.Minute, 10)
	c.Close()
	c.Close()
}
