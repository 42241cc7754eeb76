package pipeline

import (
	farm "github.com/dgryski/go-farm"

	"github.com/aptlab/selex/match"
)

const barcodeIndexShards = 256

// barcodeIndex is a farm-hash-sharded exact-match table of configured
// barcode byte strings, grounded on fusion/kmer_index.go's sharded
// farm-hash kmer table: farm.Hash64 of a candidate window selects one of
// 256 shards, and only that shard's (barcode, cycle index) pairs are
// probed, so a lookup costs one hash plus a short linear scan per
// candidate offset rather than a scan of every configured barcode.
//
// It never changes which barcode is selected: a hit here is always a
// unique exact (zero-mismatch) match, which is always the unique best-
// scoring candidate under the strict-improvement tie-break of spec.md §9.
// Both a miss and a tie between two exact matches fall through to the
// full approximate scan with the configured tolerance, which independently
// reaches the same verdict.
type barcodeIndex struct {
	shards  [barcodeIndexShards][]barcodeEntry
	lengths map[int]bool
}

type barcodeEntry struct {
	barcode []byte
	index   int
}

func newBarcodeIndex(barcodes [][]byte) *barcodeIndex {
	idx := &barcodeIndex{lengths: make(map[int]bool)}
	for i, b := range barcodes {
		shard := farm.Hash64(b) >> 56
		idx.shards[shard] = append(idx.shards[shard], barcodeEntry{barcode: b, index: i})
		idx.lengths[len(b)] = true
	}
	return idx
}

// lookup returns the configured index of the unique exact match within
// haystack[start:end], or -1 if none of the configured barcodes appears
// there verbatim, or -1 if two or more distinct configured barcodes both
// appear there verbatim (spec.md §9's Open Question: ties do not
// demultiplex, the same rule bestBarcode enforces for approximate
// matches). It hashes each candidate window of every configured barcode
// length and probes only the corresponding shard, so cost scales with the
// number of distinct barcode lengths (almost always one), not the number
// of configured barcodes.
func (idx *barcodeIndex) lookup(haystack []byte, start, end int) int {
	if start < 0 || end > len(haystack) || start >= end {
		return -1
	}
	window := haystack[start:end]
	found := -1
	for length := range idx.lengths {
		if length > len(window) {
			continue
		}
		for off := 0; off+length <= len(window); off++ {
			candidate := window[off : off+length]
			shard := farm.Hash64(candidate) >> 56
			for _, e := range idx.shards[shard] {
				if len(e.barcode) != length || match.CountMismatches(window, e.barcode, off) != 0 {
					continue
				}
				if found >= 0 && found != e.index {
					return -1
				}
				found = e.index
			}
		}
	}
	return found
}

// bestBarcode finds the configured barcode (by index) with the lowest
// error count within tolerance, searching haystack[start:end]. It returns
// (-1, false) if no candidate is within tolerance, and (-1, false) on a
// tie for best (spec.md §9's Open Question: ties do not demultiplex).
func bestBarcode(barcodes [][]byte, tolerance int, haystack []byte, start, end int) (int, bool) {
	if start < 0 || end > len(haystack) || start >= end {
		return -1, false
	}
	window := haystack[start:end]
	best := -1
	bestErrs := tolerance + 1
	tie := false
	for i, b := range barcodes {
		res, ok := match.Find(window, b, tolerance, 0, len(window))
		if !ok {
			continue
		}
		switch {
		case res.Errors < bestErrs:
			best = i
			bestErrs = res.Errors
			tie = false
		case res.Errors == bestErrs:
			tie = true
		}
	}
	if best < 0 || tie {
		return -1, false
	}
	return best, true
}
