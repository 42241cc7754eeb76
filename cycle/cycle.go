// Package cycle implements the per-selection-cycle count table described by
// spec.md §4.D: an ID -> count map backed by the shared aptamer pool, with
// running total/unique totals that stay consistent under concurrent Add
// calls.
package cycle

import (
	"sync"
	"sync/atomic"

	"github.com/aptlab/selex/pool"
)

// Cycle is one selection round. A Cycle does not own the pool; it holds a
// shared, read-safe reference to it (spec.md §9, "Shared back-pointer to
// pool").
type Cycle struct {
	Name              string
	Round             int
	Control           bool
	CounterSelection  bool
	barcode5, barcode3 []byte

	pool *pool.Pool

	mu         sync.Mutex
	counts     map[int]int
	totalSize  int64
	uniqueSize int64
}

// New creates a cycle backed by p. Barcode5/Barcode3 may be nil.
func New(name string, round int, control, counterSelection bool, barcode5, barcode3 []byte, p *pool.Pool) *Cycle {
	return &Cycle{
		Name:             name,
		Round:            round,
		Control:          control,
		CounterSelection: counterSelection,
		barcode5:         copyBytes(barcode5),
		barcode3:         copyBytes(barcode3),
		pool:             p,
		counts:           make(map[int]int),
	}
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Pool returns the shared pool backing this cycle.
func (c *Cycle) Pool() *pool.Pool { return c.pool }

// Barcode5 returns a defensive copy of the cycle's 5' barcode, or nil.
func (c *Cycle) Barcode5() []byte { return copyBytes(c.barcode5) }

// Barcode3 returns a defensive copy of the cycle's 3' barcode, or nil.
func (c *Cycle) Barcode3() []byte { return copyBytes(c.barcode3) }

// Add registers seq in the shared pool, then increments this cycle's count
// for the resulting ID by count. It is safe under concurrent
// invocation: totalSize always increases by count, and uniqueSize increases
// by 1 exactly when the per-ID counter transitions from absent to present.
func (c *Cycle) Add(seqBytes []byte, rrStart, rrEnd int, count int) int {
	id := c.pool.Register(seqBytes, rrStart, rrEnd)

	c.mu.Lock()
	_, existed := c.counts[id]
	c.counts[id] += count
	if !existed {
		c.uniqueSize++
	}
	c.mu.Unlock()

	atomic.AddInt64(&c.totalSize, int64(count))
	return id
}

// ContainsID reports whether id has a nonzero count in this cycle.
func (c *Cycle) ContainsID(id int) bool {
	c.mu.Lock()
	_, ok := c.counts[id]
	c.mu.Unlock()
	return ok
}

// ContainsSeq reports whether seq has a nonzero count in this cycle.
func (c *Cycle) ContainsSeq(seqBytes []byte) bool {
	id, ok := c.pool.LookupID(seqBytes)
	if !ok {
		return false
	}
	return c.ContainsID(id)
}

// CardinalityID returns the count recorded for id, or 0 if absent.
func (c *Cycle) CardinalityID(id int) int {
	c.mu.Lock()
	n := c.counts[id]
	c.mu.Unlock()
	return n
}

// CardinalitySeq returns the count recorded for seq, or 0 if absent.
func (c *Cycle) CardinalitySeq(seqBytes []byte) int {
	id, ok := c.pool.LookupID(seqBytes)
	if !ok {
		return 0
	}
	return c.CardinalityID(id)
}

// Size returns the number of distinct IDs with a nonzero count (== uniqueSize).
func (c *Cycle) Size() int {
	return int(atomic.LoadInt64(&c.uniqueSize))
}

// UniqueSize returns the number of distinct IDs with a nonzero count.
func (c *Cycle) UniqueSize() int {
	return int(atomic.LoadInt64(&c.uniqueSize))
}

// TotalSize returns the sum of all counts ever added.
func (c *Cycle) TotalSize() int {
	return int(atomic.LoadInt64(&c.totalSize))
}

// CountEntry is one element of the sequence produced by Iterate.
type CountEntry struct {
	ID    int
	Count int
}

// Iterate calls fn for every (ID, count) pair currently recorded. Consistent
// only once writes have stopped.
func (c *Cycle) Iterate(fn func(CountEntry) bool) {
	c.mu.Lock()
	snapshot := make([]CountEntry, 0, len(c.counts))
	for id, n := range c.counts {
		snapshot = append(snapshot, CountEntry{ID: id, Count: n})
	}
	c.mu.Unlock()
	for _, e := range snapshot {
		if !fn(e) {
			return
		}
	}
}
