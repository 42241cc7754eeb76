package pipeline

import (
	"testing"

	"github.com/grailbio/testutil/expect"

	"github.com/aptlab/selex/cycle"
	"github.com/aptlab/selex/metadata"
	"github.com/aptlab/selex/pool"
	"github.com/aptlab/selex/recordio"
)

// newTestConsumer wires a single-cycle experiment (backed by a fresh pool)
// and a Consumer over it, mirroring what Run assembles minus the queue and
// goroutines — process() is called directly so each scenario is a plain
// sequential call.
func newTestConsumer(cfg *Config) (*Consumer, *cycle.Experiment, *Progress) {
	p := pool.New()
	exp := cycle.NewExperiment([]*cycle.Cycle{
		cycle.New("cycle0", 0, false, false, nil, nil, p),
	})
	progress := &Progress{}
	meta := metadata.NewAccumulators()
	idx5 := newBarcodeIndex(cfg.Barcodes5Prime)
	idx3 := newBarcodeIndex(cfg.Barcodes3Prime)
	c := newConsumer(cfg, exp, meta, progress, idx5, idx3, nil)
	return c, exp, progress
}

// newTestMultiCycleConsumer is newTestConsumer generalized to n cycles, for
// scenarios exercising demux: cfg.Barcodes5Prime/Barcodes3Prime index into
// the cycle list directly (demux's returned index becomes cycleIdx), so a
// single-cycle experiment can't distinguish "matched the wrong cycle" from
// "matched the only cycle there is".
func newTestMultiCycleConsumer(cfg *Config, n int) (*Consumer, *cycle.Experiment, *Progress) {
	p := pool.New()
	cycles := make([]*cycle.Cycle, n)
	for i := range cycles {
		cycles[i] = cycle.New(string(rune('a'+i)), i, false, false, nil, nil, p)
	}
	exp := cycle.NewExperiment(cycles)
	progress := &Progress{}
	meta := metadata.NewAccumulators()
	idx5 := newBarcodeIndex(cfg.Barcodes5Prime)
	idx3 := newBarcodeIndex(cfg.Barcodes3Prime)
	c := newConsumer(cfg, exp, meta, progress, idx5, idx3, nil)
	return c, exp, progress
}

func repeatQual(q byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = q
	}
	return out
}

// S1: single-end, batch mode, exact size 4, one read "ACGT".
func TestScenarioS1BatchModeExactSize(t *testing.T) {
	cfg := &Config{BatchMode: true, RandomizedRegionSize: 4, IsPerFile: true}
	c, exp, progress := newTestConsumer(cfg)

	c.process(recordio.Read{ForwardSeq: []byte("ACGT"), ForwardQual: repeatQual('I', 4), CycleIndex: 0})

	snap := progress.Snapshot()
	expect.EQ(t, snap.Accepted, int64(1))
	expect.EQ(t, exp.Cycles[0].Pool().Size(), 1)
	expect.EQ(t, exp.Cycles[0].TotalSize(), 1)
	expect.EQ(t, exp.Cycles[0].UniqueSize(), 1)
	expect.EQ(t, exp.Cycles[0].CardinalityID(1), 1)
}

// S2: single-end, full mode, primer5="AC", primer3="GT", exact=2, read
// "ACNNGT" — N is not in the ACGT alphabet, so the read is rejected before
// any primer search is attempted.
func TestScenarioS2InvalidAlphabet(t *testing.T) {
	cfg := &Config{
		Primer5: []byte("AC"), Primer3: []byte("GT"),
		RandomizedRegionSize: 2, IsPerFile: true,
	}
	c, _, progress := newTestConsumer(cfg)

	c.process(recordio.Read{ForwardSeq: []byte("ACNNGT"), ForwardQual: repeatQual('I', 6), CycleIndex: 0})

	snap := progress.Snapshot()
	expect.EQ(t, snap.Accepted, int64(0))
	expect.EQ(t, snap.InvalidAlphabet, int64(1))
}

// S3: single-end, full mode, primer5="AC", primer3="GT", exact=2, read
// "ACAAGT": extracted region "AA", accepted, stored with bounds [2,4).
func TestScenarioS3FullModeExtractsRandomizedRegion(t *testing.T) {
	cfg := &Config{
		Primer5: []byte("AC"), Primer3: []byte("GT"),
		RandomizedRegionSize: 2, IsPerFile: true,
	}
	c, exp, progress := newTestConsumer(cfg)

	c.process(recordio.Read{ForwardSeq: []byte("ACAAGT"), ForwardQual: repeatQual('I', 6), CycleIndex: 0})

	snap := progress.Snapshot()
	expect.EQ(t, snap.Accepted, int64(1))

	p := exp.Cycles[0].Pool()
	expect.EQ(t, p.Size(), 1)
	storedSeq, ok := p.LookupSeq(1)
	expect.True(t, ok)
	expect.EQ(t, string(storedSeq), "ACAAGT")
	bounds, ok := p.LookupBounds(1)
	expect.True(t, ok)
	expect.EQ(t, bounds, pool.Bounds{Start: 2, End: 4})
}

// S4: paired-end assembly feeds into extraction. forward="ACGTAC", reverse
// (as sequenced, before reverse-complementing) ="GTACGT" reverse-complements
// to "ACGTAC", so the full 6-base overlap is an exact match and the
// assembled contig equals the forward read; in batch mode with exact
// size 6 the merged contig is accepted whole.
func TestScenarioS4PairedEndMergeThenExtract(t *testing.T) {
	cfg := &Config{
		BatchMode:              true,
		RandomizedRegionSize:   6,
		IsPerFile:              true,
		PairedEndMinOverlap:    4,
		PairedEndMaxMutations:  0,
		PairedEndMaxScoreValue: 40,
	}
	c, exp, progress := newTestConsumer(cfg)

	c.process(recordio.Read{
		ForwardSeq: []byte("ACGTAC"), ForwardQual: repeatQual('I', 6),
		ReverseSeq: []byte("GTACGT"), ReverseQual: repeatQual('I', 6),
		CycleIndex: 0,
	})

	snap := progress.Snapshot()
	expect.EQ(t, snap.Accepted, int64(1))
	expect.EQ(t, snap.ContigAssemblyFail, int64(0))

	storedSeq, ok := exp.Cycles[0].Pool().LookupSeq(1)
	expect.True(t, ok)
	expect.EQ(t, string(storedSeq), "ACGTAC")
}

// S5: full mode, primer5="ACGT", primer3="TTTT", primerTolerance=1.
// A one-mismatch 5' primer stays within tolerance and is still located; a
// one-mismatch 3' primer is accepted, but a two-mismatch 3' primer exceeds
// tolerance and is counted as unmatched3Prime.
func TestScenarioS5PrimerToleranceBoundary(t *testing.T) {
	cfg := &Config{
		Primer5: []byte("ACGT"), Primer3: []byte("TTTT"),
		RandomizedRegionSize: 4, PrimerTolerance: 1, IsPerFile: true,
	}

	t.Run("exact primers accepted", func(t *testing.T) {
		c, _, progress := newTestConsumer(cfg)
		c.process(recordio.Read{ForwardSeq: []byte("ACGTAAAATTTT"), ForwardQual: repeatQual('I', 12), CycleIndex: 0})
		expect.EQ(t, progress.Snapshot().Accepted, int64(1))
	})

	t.Run("one mismatch in primer5 within tolerance", func(t *testing.T) {
		c, _, progress := newTestConsumer(cfg)
		c.process(recordio.Read{ForwardSeq: []byte("GCGTAAAATTTT"), ForwardQual: repeatQual('I', 12), CycleIndex: 0})
		expect.EQ(t, progress.Snapshot().Accepted, int64(1))
	})

	t.Run("one mismatch in primer3 within tolerance", func(t *testing.T) {
		c, _, progress := newTestConsumer(cfg)
		c.process(recordio.Read{ForwardSeq: []byte("ACGTAAAATATT"), ForwardQual: repeatQual('I', 12), CycleIndex: 0})
		expect.EQ(t, progress.Snapshot().Accepted, int64(1))
	})

	t.Run("two mismatches in primer3 exceeds tolerance", func(t *testing.T) {
		c, _, progress := newTestConsumer(cfg)
		c.process(recordio.Read{ForwardSeq: []byte("ACGTAAAATAAT"), ForwardQual: repeatQual('I', 12), CycleIndex: 0})
		snap := progress.Snapshot()
		expect.EQ(t, snap.Accepted, int64(0))
		expect.EQ(t, snap.Unmatched3Prime, int64(1))
	})
}

// The invariants of testable property 1 (processed = accepted +
// sum-of-error-counters) and property 4 (Register idempotence, exercised
// transitively through Cycle.Add) should hold for any mix of accepted and
// rejected reads processed by one consumer.
func TestProcessedEqualsAcceptedPlusErrorCounters(t *testing.T) {
	cfg := &Config{BatchMode: true, RandomizedRegionSize: 4, IsPerFile: true}
	c, _, progress := newTestConsumer(cfg)

	reads := []recordio.Read{
		{ForwardSeq: []byte("ACGT"), ForwardQual: repeatQual('I', 4), CycleIndex: 0},
		{ForwardSeq: []byte("ACGT"), ForwardQual: repeatQual('I', 4), CycleIndex: 0}, // duplicate, still accepted
		{ForwardSeq: []byte("ACGTN"), ForwardQual: repeatQual('I', 5), CycleIndex: 0}, // wrong size after alphabet would fail, but N fails alphabet first
		{ForwardSeq: []byte("AC"), ForwardQual: repeatQual('I', 2), CycleIndex: 0},     // wrong size
	}
	for _, r := range reads {
		c.process(r)
	}

	snap := progress.Snapshot()
	sumErrors := snap.ContigAssemblyFail + snap.InvalidAlphabet + snap.Unmatched5Prime +
		snap.Unmatched3Prime + snap.InvalidCycle
	expect.EQ(t, snap.Processed, snap.Accepted+sumErrors)
	expect.EQ(t, snap.Accepted, int64(2))
}

// Multiplexed (non-per-file) demux: full mode, primer5="AC", primer3="GT",
// randomized region size 2, two 5' barcodes "GGGG"/"TTTT" distinguishing
// cycle0 from cycle1. A read carrying only "GGGG" in its barcode window
// demultiplexes uniquely to cycle0; a read whose barcode window contains
// both configured barcodes verbatim (offset 0 and offset 4) is a tie and
// must be rejected as invalidCycle rather than assigned arbitrarily,
// exercising both barcodeIndex.lookup's exact-match fast path and
// bestBarcode's approximate fallback, which must agree on the tie.
func TestScenarioDemuxMultiplexedBarcodes(t *testing.T) {
	cfg := &Config{
		Primer5: []byte("AC"), Primer3: []byte("GT"),
		RandomizedRegionSize: 2,
		Barcodes5Prime:       [][]byte{[]byte("GGGG"), []byte("TTTT")},
	}

	t.Run("unique barcode demultiplexes to its cycle", func(t *testing.T) {
		c, exp, progress := newTestMultiCycleConsumer(cfg, 2)
		// barcode window "GGGG" (matches Barcodes5Prime[0] only) + AC + GG + GT
		c.process(recordio.Read{ForwardSeq: []byte("GGGGACGGGT"), ForwardQual: repeatQual('I', 10), CycleIndex: 0})

		snap := progress.Snapshot()
		expect.EQ(t, snap.Accepted, int64(1))
		expect.EQ(t, snap.InvalidCycle, int64(0))
		expect.EQ(t, exp.Cycles[0].TotalSize(), 1)
		expect.EQ(t, exp.Cycles[1].TotalSize(), 0)
	})

	t.Run("two exact barcode matches in one window tie and do not demultiplex", func(t *testing.T) {
		c, exp, progress := newTestMultiCycleConsumer(cfg, 2)
		// barcode window "GGGGTTTT" contains both configured barcodes verbatim:
		// offset 0 "GGGG" and offset 4 "TTTT".
		c.process(recordio.Read{ForwardSeq: []byte("GGGGTTTTACGGGT"), ForwardQual: repeatQual('I', 14), CycleIndex: 0})

		snap := progress.Snapshot()
		expect.EQ(t, snap.Accepted, int64(0))
		expect.EQ(t, snap.InvalidCycle, int64(1))
		expect.EQ(t, exp.Cycles[0].TotalSize(), 0)
		expect.EQ(t, exp.Cycles[1].TotalSize(), 0)
	})
}
