package pipeline

import (
	"sync"

	"github.com/grailbio/base/log"

	"github.com/aptlab/selex/cycle"
	"github.com/aptlab/selex/match"
	"github.com/aptlab/selex/merge"
	"github.com/aptlab/selex/metadata"
	"github.com/aptlab/selex/recordio"
	"github.com/aptlab/selex/seq"
)

// failure classifies why a read did not produce an accepted registration;
// it carries no payload because the mapping to a progress counter is
// one-to-one (see Progress.bump).
type failure int

const (
	failNone failure = iota
	failInvalidAlphabet
	failUnmatched5Prime
	failUnmatched3Prime
	failInvalidCycle
)

func (p *Progress) bump(f failure) {
	switch f {
	case failInvalidAlphabet:
		p.incInvalidAlphabet()
	case failUnmatched5Prime:
		p.incUnmatched5Prime()
	case failUnmatched3Prime:
		p.incUnmatched3Prime()
	case failInvalidCycle:
		p.incInvalidCycle()
	}
}

func (p *Progress) unbump(f failure) {
	switch f {
	case failUnmatched5Prime:
		p.decUnmatched5Prime()
	case failUnmatched3Prime:
		p.decUnmatched3Prime()
	}
}

// Consumer drains the shared queue, running spec.md §4.H's per-read
// algorithm. Each consumer owns no mutable state of its own beyond its
// slice of the worker pool; everything it touches (pool, cycles, metadata,
// progress) is safe for concurrent use by construction.
type Consumer struct {
	cfg                      *Config
	exp                      *cycle.Experiment
	meta                     *metadata.Accumulators
	progress                 *Progress
	barcodeIdx5, barcodeIdx3 *barcodeIndex
	queue                    chan queueItem
}

func newConsumer(cfg *Config, exp *cycle.Experiment, meta *metadata.Accumulators, progress *Progress, idx5, idx3 *barcodeIndex, queue chan queueItem) *Consumer {
	return &Consumer{cfg: cfg, exp: exp, meta: meta, progress: progress, barcodeIdx5: idx5, barcodeIdx3: idx3, queue: queue}
}

// run drains the queue until it observes (and re-enqueues) the poison
// pill, per spec.md §4.H step 1 / §5 Termination. A recover() wraps each
// read's processing, not the whole loop, so an unexpected panic on one
// record logs and is swallowed without killing the worker (spec.md §7).
func (c *Consumer) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for item := range c.queue {
		if item.kind == itemPoison {
			c.queue <- queueItem{kind: itemPoison}
			return
		}
		c.processSafely(item.read)
	}
}

func (c *Consumer) processSafely(r recordio.Read) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error.Printf("recovered from panic processing read from %v: %v", r.Sources, rec)
		}
	}()
	c.process(r)
}

func (c *Consumer) process(r recordio.Read) {
	c.progress.incProcessed()

	contig, _, ok := c.buildContig(r)
	if !ok {
		c.progress.incContigAssemblyFail()
		return
	}

	accepted, f := c.attempt(r, contig)
	if accepted {
		return
	}

	if c.cfg.CheckReverseComplement {
		rcContig := seq.ReverseComplement(contig)
		accepted, f = c.attempt(r, rcContig)
	}
	if !accepted {
		c.progress.bump(f)
	}
}

// attempt runs steps 3-8 of spec.md §4.H once, against one orientation of
// the contig, and reports whether the read was accepted and — if not —
// which failure classification applies. It does not itself touch the
// progress counters; process decides when a classification becomes final
// versus provisional (reverse-complement retry).
func (c *Consumer) attempt(r recordio.Read, contig []byte) (bool, failure) {
	if !seq.ValidAlphabet(contig) {
		return false, failInvalidAlphabet
	}
	if c.cfg.BatchMode {
		return c.extractBatch(r, contig)
	}
	if c.cfg.OnlyRandomizedRegionInData {
		return c.extractRROnly(r, contig)
	}
	return c.extractFull(r, contig)
}

// buildContig implements spec.md §4.H step 2.
func (c *Consumer) buildContig(r recordio.Read) (contig, qual []byte, ok bool) {
	if !r.Paired() {
		return r.ForwardSeq, r.ForwardQual, true
	}
	return merge.Assemble(r.ForwardSeq, r.ForwardQual, r.ReverseSeq, r.ReverseQual, merge.Opts{
		MinOverlap:    c.cfg.PairedEndMinOverlap,
		MaxOverlap:    len(r.ForwardSeq),
		MaxMutations:  c.cfg.PairedEndMaxMutations,
		MaxScoreValue: c.cfg.PairedEndMaxScoreValue,
	})
}

func (c *Consumer) extractBatch(r recordio.Read, contig []byte) (bool, failure) {
	if !c.cfg.sizeInRange(len(contig)) {
		return false, failUnmatched5Prime
	}
	if !c.registerToCycle(r, r.CycleIndex, contig, 0, len(contig)) {
		return false, failInvalidCycle
	}
	return true, failNone
}

func (c *Consumer) extractRROnly(r recordio.Read, contig []byte) (bool, failure) {
	if !c.cfg.sizeInRange(len(contig)) {
		return false, failUnmatched5Prime
	}
	flanked := make([]byte, 0, len(c.cfg.Primer5)+len(contig)+len(c.cfg.Primer3))
	flanked = append(flanked, c.cfg.Primer5...)
	flanked = append(flanked, contig...)
	flanked = append(flanked, c.cfg.Primer3...)

	rrStart := len(c.cfg.Primer5)
	rrEnd := rrStart + len(contig)
	if !c.registerToCycle(r, r.CycleIndex, flanked, rrStart, rrEnd) {
		return false, failInvalidCycle
	}
	return true, failNone
}

func (c *Consumer) extractFull(r recordio.Read, contig []byte) (bool, failure) {
	revContig := seq.Reverse(contig)
	revPrimer5 := seq.Reverse(c.cfg.Primer5)

	p5, ok := match.FindReversed(contig, c.cfg.Primer5, c.cfg.PrimerTolerance, revContig, revPrimer5)
	if !ok {
		return false, failUnmatched5Prime
	}
	p5 = match.Refine(contig, c.cfg.Primer5, p5, c.cfg.PrimerTolerance)

	rrStart := p5.Index + len(c.cfg.Primer5)
	rrEnd := rrStart + c.cfg.RandomizedRegionSize
	var p3 match.Result
	haveP3 := false

	if len(c.cfg.Primer3) > 0 {
		// Search from p5.Index, not rrStart: a 3' primer that overlaps the
		// randomized region (or the 5' primer itself) must still be found so
		// primerOverlaps (spec.md §3/§7) can be incremented below, rather than
		// only ever looking past the boundary an overlap would violate.
		p3, haveP3 = match.Find(contig, c.cfg.Primer3, c.cfg.PrimerTolerance, p5.Index, len(contig))
		if !haveP3 {
			return false, failUnmatched3Prime
		}
		rrEnd = p3.Index
	}

	if haveP3 && p3.Index < rrStart {
		c.progress.incPrimerOverlaps()
	}

	primer3Len := len(c.cfg.Primer3)
	switch {
	case rrStart < len(c.cfg.Primer5) || rrStart >= rrEnd:
		return false, failUnmatched5Prime
	case rrEnd+primer3Len > len(contig) || !c.cfg.sizeInRange(rrEnd-rrStart):
		return false, failUnmatched3Prime
	}

	cycleIdx := r.CycleIndex
	if !c.cfg.IsPerFile {
		idx, matched := c.demux(contig, p5.Index, rrEnd, primer3Len)
		if !matched {
			return false, failInvalidCycle
		}
		cycleIdx = idx
	}

	boundsStart := p5.Index
	boundsEnd := rrEnd + primer3Len
	flanked := contig[boundsStart:boundsEnd]

	if !c.registerToCycle(r, cycleIdx, flanked, rrStart-boundsStart, rrEnd-boundsStart) {
		return false, failInvalidCycle
	}
	return true, failNone
}

// demux implements spec.md §4.H step 5: non-per-file barcode demultiplexing.
// The barcode index is consulted first for an exact hit, which short-
// circuits the full approximate scan without changing which barcode wins
// (an exact hit is always the unique best-scoring candidate).
func (c *Consumer) demux(contig []byte, p5Index, rrEnd, primer3Len int) (int, bool) {
	var idx5, idx3 int
	var ok5, ok3 bool

	if len(c.cfg.Barcodes5Prime) > 0 {
		if hit := c.barcodeIdx5.lookup(contig, 0, p5Index); hit >= 0 {
			idx5, ok5 = hit, true
		} else {
			idx5, ok5 = bestBarcode(c.cfg.Barcodes5Prime, c.cfg.BarcodeTolerance, contig, 0, p5Index)
		}
	}
	if len(c.cfg.Barcodes3Prime) > 0 {
		if hit := c.barcodeIdx3.lookup(contig, rrEnd+primer3Len, len(contig)); hit >= 0 {
			idx3, ok3 = hit, true
		} else {
			idx3, ok3 = bestBarcode(c.cfg.Barcodes3Prime, c.cfg.BarcodeTolerance, contig, rrEnd+primer3Len, len(contig))
		}
	}

	switch {
	case len(c.cfg.Barcodes5Prime) > 0 && len(c.cfg.Barcodes3Prime) > 0:
		if ok5 && ok3 && idx5 == idx3 {
			return idx5, true
		}
		return -1, false
	case len(c.cfg.Barcodes5Prime) > 0:
		return idx5, ok5
	case len(c.cfg.Barcodes3Prime) > 0:
		return idx3, ok3
	default:
		return -1, false
	}
}

// registerToCycle implements spec.md §4.H step 8: optional storage
// reverse-complementing, pool/cycle registration, and metadata folding.
// Forward/reverse quality and nucleotide metadata are folded from the
// original read r, indexed by position in the original read as spec.md
// §4.E requires, not from the (possibly flanked, possibly
// reverse-complemented) stored sequence.
func (c *Consumer) registerToCycle(r recordio.Read, cycleIdx int, flanked []byte, rrStart, rrEnd int) bool {
	if cycleIdx < 0 || cycleIdx >= len(c.exp.Cycles) {
		return false
	}
	cyc := c.exp.Cycles[cycleIdx]

	storeSeq, storeStart, storeEnd := flanked, rrStart, rrEnd
	if c.cfg.StoreReverseComplement {
		storeSeq = seq.ReverseComplement(flanked)
		n := len(flanked)
		storeStart, storeEnd = n-rrEnd, n-rrStart
	}

	cyc.Add(storeSeq, storeStart, storeEnd, 1)

	c.meta.AddQuality(cyc.Name, false, r.ForwardQual)
	c.meta.AddNucleotides(cyc.Name, false, r.ForwardSeq)
	if r.Paired() {
		c.meta.AddQuality(cyc.Name, true, r.ReverseQual)
		c.meta.AddNucleotides(cyc.Name, true, r.ReverseSeq)
	}
	c.meta.AddAccepted(cyc.Name, flanked[rrStart:rrEnd])
	c.progress.incAccepted()
	return true
}
