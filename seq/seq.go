// Package seq provides small, allocation-conscious helpers for working with
// raw ACGT(N) byte sequences: alphabet validation and reverse-complementing.
package seq

// revCompTable maps each ASCII byte to its DNA complement, 'N' for anything
// outside the canonical alphabet. Mirrors the table-driven approach used by
// the pack's biosimd revcomp routines, minus the SIMD/unsafe machinery that
// has no idiomatic Go equivalent at this scale.
var revCompTable = [256]byte{}

func init() {
	for i := range revCompTable {
		revCompTable[i] = 'N'
	}
	revCompTable['A'] = 'T'
	revCompTable['T'] = 'A'
	revCompTable['C'] = 'G'
	revCompTable['G'] = 'C'
	revCompTable['a'] = 't'
	revCompTable['t'] = 'a'
	revCompTable['c'] = 'g'
	revCompTable['g'] = 'c'
}

// Alphabet is the strict four-letter alphabet a contig must satisfy to pass
// the consumer's alphabet check (spec §4.H step 3).
const Alphabet = "ACGT"

// ValidAlphabet reports whether every byte of s is one of A, C, G, T.
func ValidAlphabet(s []byte) bool {
	for _, b := range s {
		switch b {
		case 'A', 'C', 'G', 'T':
		default:
			return false
		}
	}
	return true
}

// ReverseComplement returns a new slice holding the reverse complement of s.
func ReverseComplement(s []byte) []byte {
	out := make([]byte, len(s))
	n := len(s)
	for i, b := range s {
		out[n-1-i] = revCompTable[b]
	}
	return out
}

// ReverseComplementInplace reverse-complements s in place.
func ReverseComplementInplace(s []byte) {
	n := len(s)
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = revCompTable[s[j]], revCompTable[s[i]]
	}
	if n&1 == 1 {
		s[n/2] = revCompTable[s[n/2]]
	}
}

// Reverse returns a new slice holding s reversed (no complement). Used by the
// matcher's reversed 5'-primer search convention.
func Reverse(s []byte) []byte {
	out := make([]byte, len(s))
	n := len(s)
	for i, b := range s {
		out[n-1-i] = b
	}
	return out
}
