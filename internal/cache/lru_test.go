package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
}

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("a", 2)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	c.Set("a", "A")
	c.Set("b", "B")
	c.Get("a") // b is now the oldest
	c.Set("c", "C")

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUCache_TTL(t *testing.T) {
	clock := newClock()
	c := NewLRUCacheWithClock[int](8, time.Minute, clock.Now)

	c.Set("a", 1)
	clock.Advance(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestLRUCache_ZeroTTLStoresNothing(t *testing.T) {
	c := NewLRUCache[int](8, 0)
	c.Set("a", 1)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[int](16, time.Minute)
	for i := range 3 {
		c.Set(fmt.Sprintf("dashboard|u1|%d", i), i)
		c.Set(fmt.Sprintf("dashboard|u2|%d", i), i)
	}

	assert.Equal(t, 3, c.DeletePrefix("dashboard|u1|"))
	assert.Equal(t, 3, c.Size())

	c.Delete("dashboard|u2|0")
	assert.Equal(t, 2, c.Size())
}

func TestManager_CleanOnce(t *testing.T) {
	clock := newClock()
	short := NewLRUCacheWithClock[int](8, time.Second, clock.Now)
	long := NewLRUCacheWithClock[int](8, time.Hour, clock.Now)
	short.Set("a", 1)
	short.Set("b", 2)
	long.Set("c", 3)

	m := NewManager(nil)
	m.Register(short)
	m.Register(long)

	clock.Advance(2 * time.Second)
	assert.Equal(t, 2, m.CleanOnce())
	assert.Equal(t, 1, long.Size())

	m.Stop() // never started
	m.StartCleanup(time.Millisecond)
	m.Stop()
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := NewLRUCache[int](32, time.Minute)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				key := fmt.Sprintf("k%d", (g*100+i)%64)
				c.Set(key, i)
				c.Get(key)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Size(), 32)
}
