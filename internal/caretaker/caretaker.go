// Package caretaker tracks how many of each creature remain available to
// recruit, summon or return to.
package caretaker

import (
	"fmt"
	"sort"
	"sync"

	"titan-battle/internal/battle"
)

// Caretaker is the shared creature pool. It is safe for concurrent use so
// that several battle sessions can draw from one stock.
type Caretaker struct {
	mu    sync.Mutex
	max   map[string]int
	count map[string]int
}

// New creates a caretaker with every creature at its catalog maximum.
func New(catalog *battle.Catalog) *Caretaker {
	c := &Caretaker{
		max:   make(map[string]int),
		count: make(map[string]int),
	}
	for _, name := range catalog.Names() {
		t, _ := catalog.Lookup(name)
		c.max[name] = t.MaxCount
		c.count[name] = t.MaxCount
	}
	return c
}

// TakeOne removes one creature from the pool. Returns false if none remain.
func (c *Caretaker) TakeOne(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count[name] <= 0 {
		return false
	}
	c.count[name]--
	return true
}

// PutBack returns one creature to the pool, never beyond its maximum.
func (c *Caretaker) PutBack(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.max[name]; !ok {
		return
	}
	if c.count[name] < c.max[name] {
		c.count[name]++
	}
}

// Available returns how many of a creature remain.
func (c *Caretaker) Available(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count[name]
}

// SetAvailable overrides the remaining count, e.g. when loading a saved game.
func (c *Caretaker) SetAvailable(name string, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	limit, ok := c.max[name]
	if !ok {
		return fmt.Errorf("%w: %s", battle.ErrUnknownCreature, name)
	}
	if n < 0 || n > limit {
		return fmt.Errorf("count %d for %s outside 0..%d", n, name, limit)
	}
	c.count[name] = n
	return nil
}

// Counts returns a copy of the remaining counts.
func (c *Caretaker) Counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int, len(c.count))
	for k, v := range c.count {
		out[k] = v
	}
	return out
}

// Exhausted lists the creatures with none left, sorted by name.
func (c *Caretaker) Exhausted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for name, n := range c.count {
		if n == 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
