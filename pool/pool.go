// Package pool implements the shared aptamer pool: a concurrent intern
// table mapping full (possibly primer-flanked) sequence bytes to stable,
// monotonically assigned integer IDs, together with the randomized-region
// bounds recorded for each ID.
//
// The write-side map is sharded and content-hashed exactly like the
// bamprovider package's mate-pairing table (encoding/bamprovider/concurrentmap.go):
// seahash of the sequence bytes selects one of numShards independent
// mutex-guarded maps, so registrations for unrelated sequences never
// contend. The ID-indexed side is a github.com/biogo/store/llrb tree keyed
// by ID, giving Iterate a cheap, deterministic ID-ascending traversal once
// the pool is read-only.
package pool

import (
	"bytes"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/biogo/store/llrb"
	"github.com/minio/highwayhash"

	"github.com/blainsmith/seahash"
)

const numShards = 1024

// Bounds is a half-open [Start, End) range identifying the randomized
// region within a stored sequence.
type Bounds struct {
	Start, End int
}

type entry struct {
	id     int
	seq    []byte
	bounds Bounds
}

type shard struct {
	mu      sync.Mutex
	byBytes map[string]*entry
}

// idKey adapts an *entry for ordered storage in an llrb.Tree keyed by ID.
type idKey struct {
	id int
	e  *entry
}

func (k idKey) Compare(other llrb.Comparable) int {
	return k.id - other.(idKey).id
}

// Pool is the concurrent, content-addressed sequence intern table described
// by spec.md §4.C. The zero value is not usable; construct with New.
type Pool struct {
	shards   [numShards]shard
	nextID   uint64
	byID     llrb.Tree
	byIDMu   sync.Mutex // guards byID; writes happen under a shard lock already, this only serializes the tree insert itself
	readOnly int32
}

// New returns an empty, write-phase pool.
func New() *Pool {
	p := &Pool{}
	for i := range p.shards {
		p.shards[i].byBytes = make(map[string]*entry)
	}
	return p
}

func (p *Pool) shardFor(seq []byte) *shard {
	h := seahash.Sum64(seq)
	return &p.shards[h%uint64(numShards)]
}

// Register interns seq, returning its stable ID. If seq has already been
// registered, Register is idempotent: it returns the existing ID and does
// not grow the pool. Concurrent calls with identical seq bytes are
// guaranteed to return the same ID, with exactly one winner consuming a new
// ID.
func (p *Pool) Register(seq []byte, rrStart, rrEnd int) int {
	key := string(seq)
	sh := p.shardFor(seq)

	sh.mu.Lock()
	if e, ok := sh.byBytes[key]; ok {
		sh.mu.Unlock()
		return e.id
	}
	id := int(atomic.AddUint64(&p.nextID, 1))
	stored := make([]byte, len(seq))
	copy(stored, seq)
	e := &entry{id: id, seq: stored, bounds: Bounds{rrStart, rrEnd}}
	sh.byBytes[key] = e
	sh.mu.Unlock()

	p.byIDMu.Lock()
	p.byID.Insert(idKey{id: id, e: e})
	p.byIDMu.Unlock()

	return id
}

// LookupID returns the ID registered for seq, if any.
func (p *Pool) LookupID(seq []byte) (int, bool) {
	sh := p.shardFor(seq)
	sh.mu.Lock()
	e, ok := sh.byBytes[string(seq)]
	sh.mu.Unlock()
	if !ok {
		return 0, false
	}
	return e.id, true
}

func (p *Pool) lookupEntry(id int) (*entry, bool) {
	p.byIDMu.Lock()
	c := p.byID.Get(idKey{id: id})
	p.byIDMu.Unlock()
	if c == nil {
		return nil, false
	}
	return c.(idKey).e, true
}

// LookupSeq returns the sequence bytes stored for id, if any. The returned
// slice is a defensive copy.
func (p *Pool) LookupSeq(id int) ([]byte, bool) {
	e, ok := p.lookupEntry(id)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(e.seq))
	copy(out, e.seq)
	return out, true
}

// LookupBounds returns the randomized-region bounds recorded for id, if any.
func (p *Pool) LookupBounds(id int) (Bounds, bool) {
	e, ok := p.lookupEntry(id)
	if !ok {
		return Bounds{}, false
	}
	return e.bounds, true
}

// Size returns the number of distinct sequences interned so far.
func (p *Pool) Size() int {
	return int(atomic.LoadUint64(&p.nextID))
}

// SetReadOnly marks the pool as entering its observation phase. There is no
// enforced locking in this in-memory implementation (spec.md §4.C) — the
// flag exists so callers (and persistent variants) can assert the phase.
func (p *Pool) SetReadOnly()  { atomic.StoreInt32(&p.readOnly, 1) }
func (p *Pool) SetReadWrite() { atomic.StoreInt32(&p.readOnly, 0) }
func (p *Pool) IsReadOnly() bool {
	return atomic.LoadInt32(&p.readOnly) != 0
}

// SeqEntry is one element of the sequence produced by IterateSeqs.
type SeqEntry struct {
	ID  int
	Seq []byte
}

// IterateSeqs calls fn for every (ID, sequence) pair in ascending ID order.
// Consistent results are only guaranteed once the pool is read-only.
func (p *Pool) IterateSeqs(fn func(SeqEntry) bool) {
	p.byID.Do(func(c llrb.Comparable) bool {
		e := c.(idKey).e
		return !fn(SeqEntry{ID: e.id, Seq: e.seq})
	})
}

// BoundsEntry is one element of the sequence produced by IterateBounds.
type BoundsEntry struct {
	ID     int
	Bounds Bounds
}

// IterateBounds calls fn for every (ID, bounds) pair in ascending ID order.
func (p *Pool) IterateBounds(fn func(BoundsEntry) bool) {
	p.byID.Do(func(c llrb.Comparable) bool {
		e := c.(idKey).e
		return !fn(BoundsEntry{ID: e.id, Bounds: e.bounds})
	})
}

// Checksum folds every (sequence, bounds) pair into a single highwayhash
// digest, ordered lexicographically by sequence bytes rather than by ID.
// Two pools built from identical input, processed to completion, produce
// identical checksums regardless of the nondeterministic order in which
// IDs were assigned during the concurrent write phase — IDs themselves are
// deliberately excluded from the digest and from its ordering, since
// assignment order (and therefore ID value) is not reproducible across
// runs even when the registered content is.
//
// Grounded on cmd/bio-pamtool/checksum.go's per-reference checksum
// accumulator; used here to verify run-to-run pool equality without a
// persistence/wire format (out of scope per spec.md §1).
func (p *Pool) Checksum() [highwayhash.Size]byte {
	var zeroKey [highwayhash.Size]byte
	var entries []*entry
	p.byID.Do(func(c llrb.Comparable) bool {
		entries = append(entries, c.(idKey).e)
		return false
	})
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].seq, entries[j].seq) < 0
	})

	var buf []byte
	var scratch [8]byte
	for _, e := range entries {
		buf = append(buf, e.seq...)
		putUvarint(scratch[:], uint64(e.bounds.Start))
		buf = append(buf, scratch[:]...)
		putUvarint(scratch[:], uint64(e.bounds.End))
		buf = append(buf, scratch[:]...)
	}
	return highwayhash.Sum(buf, zeroKey[:])
}

func putUvarint(buf []byte, v uint64) {
	for i := range buf {
		buf[i] = byte(v >> uint(8*i))
	}
}
