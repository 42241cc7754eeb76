package match_test

import (
	"testing"

	"github.com/grailbio/testutil/expect"

	"github.com/aptlab/selex/match"
)

func TestFindExact(t *testing.T) {
	haystack := []byte("AAAACGTGGGG")
	needle := []byte("ACGT")
	res, ok := match.Find(haystack, needle, 0, 0, len(haystack))
	expect.True(t, ok)
	expect.EQ(t, res.Index, 3)
	expect.EQ(t, res.Errors, 0)
}

func TestFindWithinTolerance(t *testing.T) {
	haystack := []byte("AAAACCTGGGG")
	needle := []byte("ACGT")
	res, ok := match.Find(haystack, needle, 1, 0, len(haystack))
	expect.True(t, ok)
	expect.EQ(t, res.Index, 3)
	expect.EQ(t, res.Errors, 1)
}

func TestFindExceedsTolerance(t *testing.T) {
	haystack := []byte("AAAATTTTGGGG")
	needle := []byte("ACGT")
	_, ok := match.Find(haystack, needle, 1, 0, len(haystack))
	expect.False(t, ok)
}

func TestFindLeftmostMinimum(t *testing.T) {
	// Two candidate positions tie on zero errors; Find must report the
	// leftmost one.
	haystack := []byte("ACGTxxxACGT")
	needle := []byte("ACGT")
	res, ok := match.Find(haystack, needle, 0, 0, len(haystack))
	expect.True(t, ok)
	expect.EQ(t, res.Index, 0)
}

func TestFindLongNeedleFallsBackToSlidingScan(t *testing.T) {
	// A needle longer than one machine word exercises the sliding-window
	// path instead of the bit-parallel one.
	needle := make([]byte, 80)
	for i := range needle {
		needle[i] = "ACGT"[i%4]
	}
	haystack := append([]byte("TTTT"), needle...)
	haystack = append(haystack, []byte("TTTT")...)
	res, ok := match.Find(haystack, needle, 0, 0, len(haystack))
	expect.True(t, ok)
	expect.EQ(t, res.Index, 4)
	expect.EQ(t, res.Errors, 0)
}

func TestCountMismatches(t *testing.T) {
	haystack := []byte("AAACGTAAA")
	needle := []byte("CCGT")
	expect.EQ(t, match.CountMismatches(haystack, needle, 2), 1)
	expect.EQ(t, match.CountMismatches(haystack, []byte("CGTA"), 3), 0)
}

func TestFindReversed(t *testing.T) {
	contig := []byte("XXXXACGTYYYY")
	needle := []byte("ACGT")
	revContig := []byte("YYYYTGCAXXXX")
	revNeedle := []byte("TGCA")
	res, ok := match.FindReversed(contig, needle, 0, revContig, revNeedle)
	expect.True(t, ok)
	expect.EQ(t, res.Index, 4)
}

func TestRefinePrefersFewerMismatchesToTheLeft(t *testing.T) {
	haystack := []byte("TACGTXXXX")
	needle := []byte("ACGT")
	// The initial candidate (index 1) is already exact; no left neighbour
	// should be preferred since none can beat zero errors.
	initial := match.Result{Index: 1, Errors: 0}
	refined := match.Refine(haystack, needle, initial, 3)
	expect.EQ(t, refined.Index, 1)
	expect.EQ(t, refined.Errors, 0)

	// Shift the initial guess one position right of the true match; Refine
	// must walk left and recover the exact position.
	shifted := match.Result{Index: 2, Errors: match.CountMismatches(haystack, needle, 2)}
	refined = match.Refine(haystack, needle, shifted, 3)
	expect.EQ(t, refined.Index, 1)
	expect.EQ(t, refined.Errors, 0)
}

func TestRefineNeverLooksRight(t *testing.T) {
	// Even though a better match sits to the right, Refine only probes the
	// left neighbourhood of its initial guess (spec's left-only asymmetry).
	haystack := []byte("XXXXACGT")
	needle := []byte("ACGT")
	initial := match.Result{Index: 0, Errors: match.CountMismatches(haystack, needle, 0)}
	refined := match.Refine(haystack, needle, initial, 2)
	expect.EQ(t, refined.Index, 0)
}
