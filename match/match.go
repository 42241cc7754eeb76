// Package match implements approximate (bounded-Hamming) pattern location
// inside a byte haystack: a bit-parallel matcher for short needles and a
// plain sliding-window matcher for long ones, both obeying the same
// contract.
package match

// wordBits is the machine word width used by the bit-parallel matcher.
const wordBits = 64

// Result is what Find returns on a successful match.
type Result struct {
	// Index is the offset in haystack where needle begins.
	Index int
	// Errors is the true Hamming mismatch count at Index.
	Errors int
}

// Find locates needle inside haystack[start:end] with at most maxErrors
// Hamming mismatches (no insertions/deletions). It returns the leftmost
// position achieving the minimum error count at or below maxErrors, or
// ok=false if no such position exists.
//
// This dispatches to a bit-parallel scan for needles that fit in one machine
// word, and to a direct sliding-window Hamming count otherwise; performance
// of the long-needle path is not critical since long primers are rare
// (spec.md §4.A).
func Find(haystack, needle []byte, maxErrors, start, end int) (res Result, ok bool) {
	if len(needle) == 0 || len(haystack) == 0 {
		return Result{}, false
	}
	if start < 0 {
		start = 0
	}
	if end > len(haystack) {
		end = len(haystack)
	}
	if end-start < len(needle) {
		return Result{}, false
	}
	if len(needle) <= wordBits {
		return bitParallelFind(haystack, needle, maxErrors, start, end)
	}
	return slidingFind(haystack, needle, maxErrors, start, end)
}

// CountMismatches returns the Hamming distance between needle and the
// len(needle)-byte window of haystack starting at idx. Callers are
// responsible for bounds-checking idx.
func CountMismatches(haystack, needle []byte, idx int) int {
	errs := 0
	for j := 0; j < len(needle); j++ {
		if haystack[idx+j] != needle[j] {
			errs++
		}
	}
	return errs
}

// slidingFind is the long-needle fallback: a direct Hamming scan with
// early-exit once the running mismatch count exceeds maxErrors. It obeys
// the exact same leftmost-minimum contract as bitParallelFind.
func slidingFind(haystack, needle []byte, maxErrors, start, end int) (Result, bool) {
	bestIdx := -1
	bestErrs := maxErrors + 1
	lastStart := end - len(needle)
	for idx := start; idx <= lastStart; idx++ {
		errs := 0
		for j := 0; j < len(needle) && errs <= maxErrors; j++ {
			if haystack[idx+j] != needle[j] {
				errs++
			}
		}
		if errs <= maxErrors && errs < bestErrs {
			bestErrs = errs
			bestIdx = idx
			if bestErrs == 0 {
				break
			}
		}
	}
	if bestIdx < 0 {
		return Result{}, false
	}
	return Result{Index: bestIdx, Errors: bestErrs}, true
}

// FindReversed performs the 5'-primer search convention of spec.md §4.A: it
// searches for the reverse of needle inside the reverse of contig, then
// translates the reported offset back into the original (forward)
// orientation.
func FindReversed(contig, needle []byte, maxErrors int, revContig, revNeedle []byte) (Result, bool) {
	res, ok := Find(revContig, revNeedle, maxErrors, 0, len(revContig))
	if !ok {
		return Result{}, false
	}
	res.Index = len(contig) - res.Index - len(needle)
	return res, true
}

// Refine implements the Open Question preserved in spec.md §9: the
// bit-parallel matcher reports the position where the match *ends*, and its
// reported start may be shifted a few positions right of the true best
// start. Refine recounts the true mismatch count at initial.Index and at
// initial.Index-offset for offset in [1, tolerance), keeping whichever
// position has strictly fewer mismatches (ties keep the original, i.e. only
// the left neighbourhood is probed, never the right).
func Refine(haystack, needle []byte, initial Result, tolerance int) Result {
	best := initial
	best.Errors = CountMismatches(haystack, needle, initial.Index)
	for offset := 1; offset < tolerance; offset++ {
		idx := initial.Index - offset
		if idx < 0 || idx+len(needle) > len(haystack) {
			continue
		}
		errs := CountMismatches(haystack, needle, idx)
		if errs < best.Errors {
			best = Result{Index: idx, Errors: errs}
		}
	}
	return best
}
