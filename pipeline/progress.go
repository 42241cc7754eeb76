package pipeline

import "sync/atomic"

// Progress holds the eight independent atomic counters of spec.md §3,
// deliberately not bundled under a single lock (Design Note "Progress
// counters").
type Progress struct {
	processed          int64
	accepted           int64
	contigAssemblyFail int64
	invalidAlphabet    int64
	unmatched5Prime    int64
	unmatched3Prime    int64
	invalidCycle       int64
	primerOverlaps     int64
}

func (p *Progress) incProcessed()          { atomic.AddInt64(&p.processed, 1) }
func (p *Progress) incAccepted()           { atomic.AddInt64(&p.accepted, 1) }
func (p *Progress) incContigAssemblyFail() { atomic.AddInt64(&p.contigAssemblyFail, 1) }
func (p *Progress) incInvalidAlphabet()    { atomic.AddInt64(&p.invalidAlphabet, 1) }
func (p *Progress) incUnmatched5Prime()    { atomic.AddInt64(&p.unmatched5Prime, 1) }
func (p *Progress) decUnmatched5Prime()    { atomic.AddInt64(&p.unmatched5Prime, -1) }
func (p *Progress) incUnmatched3Prime()    { atomic.AddInt64(&p.unmatched3Prime, 1) }
func (p *Progress) decUnmatched3Prime()    { atomic.AddInt64(&p.unmatched3Prime, -1) }
func (p *Progress) incInvalidCycle()       { atomic.AddInt64(&p.invalidCycle, 1) }
func (p *Progress) incPrimerOverlaps()     { atomic.AddInt64(&p.primerOverlaps, 1) }

// Snapshot is a point-in-time, non-atomic-across-fields read of all eight
// counters, safe to call only after the join barrier (or, during the run,
// as an approximate progress report).
type Snapshot struct {
	Processed          int64
	Accepted           int64
	ContigAssemblyFail int64
	InvalidAlphabet    int64
	Unmatched5Prime    int64
	Unmatched3Prime    int64
	InvalidCycle       int64
	PrimerOverlaps     int64
}

// Snapshot reads all eight counters.
func (p *Progress) Snapshot() Snapshot {
	return Snapshot{
		Processed:          atomic.LoadInt64(&p.processed),
		Accepted:           atomic.LoadInt64(&p.accepted),
		ContigAssemblyFail: atomic.LoadInt64(&p.contigAssemblyFail),
		InvalidAlphabet:    atomic.LoadInt64(&p.invalidAlphabet),
		Unmatched5Prime:    atomic.LoadInt64(&p.unmatched5Prime),
		Unmatched3Prime:    atomic.LoadInt64(&p.unmatched3Prime),
		InvalidCycle:       atomic.LoadInt64(&p.invalidCycle),
		PrimerOverlaps:     atomic.LoadInt64(&p.primerOverlaps),
	}
}
