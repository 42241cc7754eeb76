// Package metadata implements the per-cycle quality-score and
// nucleotide-composition accumulators of spec.md §4.E. Each accumulator
// family is keyed first by cycle name (a concurrent map allocated lazily on
// first write), then by read position; positions are small bounded
// integers (a read length), so each cycle's inner tables are plain
// mutex-guarded slices rather than a hash-sharded map — the approach this
// module instead gives to the barcode index (pipeline/barcode.go), which
// has an unbounded, string-shaped key space.
package metadata

import "sync"

// qualityAccum is a running mean accumulator: sum of (Phred-33-adjusted)
// quality scores and the number of observations.
type qualityAccum struct {
	sum int64
	n   int64
}

// Mean returns the running mean quality at this position, or 0 if n==0.
func (q qualityAccum) Mean() float64 {
	if q.n == 0 {
		return 0
	}
	return float64(q.sum) / float64(q.n)
}

// NucCounts counts observed bases at one position, keyed by base.
type NucCounts struct {
	A, C, G, T, N int64
}

func (n *NucCounts) add(b byte) {
	switch b {
	case 'A':
		n.A++
	case 'C':
		n.C++
	case 'G':
		n.G++
	case 'T':
		n.T++
	default:
		n.N++
	}
}

// Sum returns the total number of bases counted at this position.
func (n NucCounts) Sum() int64 { return n.A + n.C + n.G + n.T + n.N }

// perCycle holds the three accumulator families for one cycle name.
type perCycle struct {
	mu sync.Mutex

	qualityFwd []qualityAccum
	qualityRev []qualityAccum

	nucFwd []NucCounts
	nucRev []NucCounts

	// accepted[rrLength][position] is the nucleotide distribution of
	// accepted randomized regions of length rrLength.
	accepted map[int][]NucCounts
}

func newPerCycle() *perCycle {
	return &perCycle{accepted: make(map[int][]NucCounts)}
}

func growQuality(s []qualityAccum, n int) []qualityAccum {
	if len(s) >= n {
		return s
	}
	grown := make([]qualityAccum, n)
	copy(grown, s)
	return grown
}

func growNuc(s []NucCounts, n int) []NucCounts {
	if len(s) >= n {
		return s
	}
	grown := make([]NucCounts, n)
	copy(grown, s)
	return grown
}

// Accumulators is the set of per-cycle-name metadata tables for one
// experiment run. The zero value is ready to use.
type Accumulators struct {
	mu     sync.Mutex
	cycles map[string]*perCycle
}

// NewAccumulators returns an empty accumulator set.
func NewAccumulators() *Accumulators {
	return &Accumulators{cycles: make(map[string]*perCycle)}
}

func (a *Accumulators) cycleFor(name string) *perCycle {
	a.mu.Lock()
	if a.cycles == nil {
		a.cycles = make(map[string]*perCycle)
	}
	c, ok := a.cycles[name]
	if !ok {
		c = newPerCycle()
		a.cycles[name] = c
	}
	a.mu.Unlock()
	return c
}

// AddQuality folds one read's quality string into the forward or reverse
// running-mean table for cycle, indexed by position in the original read.
// qual holds raw ASCII Phred+33 bytes; AddQuality subtracts 33 itself.
func (a *Accumulators) AddQuality(cycleName string, reverse bool, qual []byte) {
	c := a.cycleFor(cycleName)
	c.mu.Lock()
	defer c.mu.Unlock()
	table := &c.qualityFwd
	if reverse {
		table = &c.qualityRev
	}
	*table = growQuality(*table, len(qual))
	for i, q := range qual {
		(*table)[i].sum += int64(q) - 33
		(*table)[i].n++
	}
}

// AddNucleotides folds one read's bases into the forward or reverse
// nucleotide-count table for cycle, indexed by position in the original
// read.
func (a *Accumulators) AddNucleotides(cycleName string, reverse bool, bases []byte) {
	c := a.cycleFor(cycleName)
	c.mu.Lock()
	defer c.mu.Unlock()
	table := &c.nucFwd
	if reverse {
		table = &c.nucRev
	}
	*table = growNuc(*table, len(bases))
	for i, b := range bases {
		(*table)[i].add(b)
	}
}

// AddAccepted folds one accepted read's extracted randomized region into
// the accepted-distribution table for cycle, keyed by the region's length
// and indexed by position *within the extracted region*.
func (a *Accumulators) AddAccepted(cycleName string, rr []byte) {
	c := a.cycleFor(cycleName)
	c.mu.Lock()
	defer c.mu.Unlock()
	table, ok := c.accepted[len(rr)]
	if !ok {
		table = make([]NucCounts, len(rr))
		c.accepted[len(rr)] = table
	}
	for i, b := range rr {
		table[i].add(b)
	}
}

// QualityAt returns the running mean quality at position for cycleName,
// forward or reverse.
func (a *Accumulators) QualityAt(cycleName string, reverse bool, position int) float64 {
	c := a.cycleFor(cycleName)
	c.mu.Lock()
	defer c.mu.Unlock()
	table := c.qualityFwd
	if reverse {
		table = c.qualityRev
	}
	if position < 0 || position >= len(table) {
		return 0
	}
	return table[position].Mean()
}

// NucleotidesAt returns the nucleotide counts at position for cycleName,
// forward or reverse.
func (a *Accumulators) NucleotidesAt(cycleName string, reverse bool, position int) NucCounts {
	c := a.cycleFor(cycleName)
	c.mu.Lock()
	defer c.mu.Unlock()
	table := c.nucFwd
	if reverse {
		table = c.nucRev
	}
	if position < 0 || position >= len(table) {
		return NucCounts{}
	}
	return table[position]
}

// AcceptedAt returns the accepted-distribution nucleotide counts for
// cycleName at the given randomized-region length and position.
func (a *Accumulators) AcceptedAt(cycleName string, rrLength, position int) NucCounts {
	c := a.cycleFor(cycleName)
	c.mu.Lock()
	defer c.mu.Unlock()
	table, ok := c.accepted[rrLength]
	if !ok || position < 0 || position >= len(table) {
		return NucCounts{}
	}
	return table[position]
}
