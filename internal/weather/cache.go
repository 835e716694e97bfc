package weather

import (
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// cell is one provider result cached for a grid square.
type cell[T any] struct {
	value     *T
	fetchedAt time.Time
}

// gridCache holds provider results keyed by grid square. Concurrent misses
// for the same square share a single upstream call.
type gridCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]cell[T]
	flight  singleflight.Group
}

func newGridCache[T any]() *gridCache[T] {
	return &gridCache[T]{entries: make(map[string]cell[T])}
}

func (c *gridCache[T]) get(key string) (cell[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *gridCache[T]) put(key string, v *T, at time.Time) {
	c.mu.Lock()
	c.entries[key] = cell[T]{value: v, fetchedAt: at}
	c.mu.Unlock()
}

func (c *gridCache[T]) reset() {
	c.mu.Lock()
	c.entries = make(map[string]cell[T])
	c.mu.Unlock()
}

// prune drops entries fetched before cutoff and returns how many went.
func (c *gridCache[T]) prune(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, e := range c.entries {
		if e.fetchedAt.Before(cutoff) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// count returns the number of entries and how many were fetched after freshAfter.
func (c *gridCache[T]) count(freshAfter time.Time) (total, fresh int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if e.fetchedAt.After(freshAfter) {
			fresh++
		}
	}
	return len(c.entries), fresh
}

// cellKey names the grid square containing a point. At the default 0.1°
// a square is roughly 11 km across, so boats fishing together share one
// upstream call.
func cellKey(lat, lon, size float64) string {
	return fmt.Sprintf("%d:%d", int(math.Floor(lat/size)), int(math.Floor(lon/size)))
}
