// Package merge implements the paired-end contig assembler: overlap-merging
// forward and reverse-complemented reads by mismatch rate, producing a
// quality-weighted consensus over the overlapped region only.
package merge

import "github.com/aptlab/selex/seq"

// Opts configures the merger (spec.md §4.B).
type Opts struct {
	MinOverlap    int
	MaxOverlap    int
	MaxMutations  int
	MaxScoreValue byte
}

// Assemble attempts to merge a forward read with its mate. revSeq/revQual
// are the *as-sequenced* reverse read (not yet reverse-complemented);
// Assemble reverse-complements them internally. On success it returns the
// consensus over the overlapped region only and ok=true.
func Assemble(fwdSeq, fwdQual, revSeq, revQual []byte, opts Opts) (contig, qual []byte, ok bool) {
	rc := seq.ReverseComplement(revSeq)
	rq := seq.Reverse(revQual)

	maxOverlap := opts.MaxOverlap
	if cap := len(fwdSeq); cap < maxOverlap {
		maxOverlap = cap
	}
	if cap := len(rc); cap < maxOverlap {
		maxOverlap = cap
	}

	for overlap := maxOverlap; overlap >= opts.MinOverlap; overlap-- {
		fwdStart := len(fwdSeq) - overlap
		mismatches := countMismatches(fwdSeq[fwdStart:], rc[:overlap])
		if mismatches > opts.MaxMutations {
			continue
		}
		consensusSeq, consensusQual := consensus(
			fwdSeq[fwdStart:], fwdQual[fwdStart:],
			rc[:overlap], rq[:overlap],
			opts.MaxScoreValue,
		)
		return consensusSeq, consensusQual, true
	}
	return nil, nil, false
}

func countMismatches(a, b []byte) int {
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}

// consensus builds the overlap consensus: at each column the higher-quality
// base wins; the consensus quality is capped at maxScoreValue, and when the
// two bases disagree the consensus quality is |Qwinner - Qloser|.
func consensus(a, aq, b, bq []byte, maxScoreValue byte) ([]byte, []byte) {
	n := len(a)
	outSeq := make([]byte, n)
	outQual := make([]byte, n)
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			outSeq[i] = a[i]
			q := aq[i]
			if bq[i] > q {
				q = bq[i]
			}
			if q > maxScoreValue {
				q = maxScoreValue
			}
			outQual[i] = q
			continue
		}
		var winnerBase, winnerQ, loserQ byte
		if aq[i] >= bq[i] {
			winnerBase, winnerQ, loserQ = a[i], aq[i], bq[i]
		} else {
			winnerBase, winnerQ, loserQ = b[i], bq[i], aq[i]
		}
		outSeq[i] = winnerBase
		diff := winnerQ - loserQ
		if diff > maxScoreValue {
			diff = maxScoreValue
		}
		outQual[i] = diff
	}
	return outSeq, outQual
}
