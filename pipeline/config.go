// Package pipeline implements the producer/consumer read-processing
// pipeline: a bounded queue feeding primer/barcode matching, paired-end
// assembly, and registration into the aptamer pool and selection cycles.
package pipeline

import (
	"github.com/grailbio/base/errors"

	"github.com/aptlab/selex/recordio"
)

// Config holds every option recognized by the core (spec.md §6).
type Config struct {
	Primer5, Primer3 []byte

	// RandomizedRegionSize, when >0, is the exact required length of the
	// extracted randomized region; it takes precedence over the lower/upper
	// bound pair below.
	RandomizedRegionSize int
	RRLowerBound         int
	RRUpperBound         int

	IsPerFile                  bool
	OnlyRandomizedRegionInData bool
	BatchMode                  bool
	StoreReverseComplement     bool
	CheckReverseComplement     bool

	Barcodes5Prime [][]byte
	Barcodes3Prime [][]byte

	PrimerTolerance  int
	BarcodeTolerance int

	PairedEndMinOverlap    int
	PairedEndMaxMutations  int
	PairedEndMaxScoreValue byte

	BlockingQueueSize int
	MaxCores          int

	Format recordio.Format

	ForwardFiles []string
	ReverseFiles []string
}

// hasExactSize reports whether an exact randomized-region size is
// configured.
func (c *Config) hasExactSize() bool { return c.RandomizedRegionSize > 0 }

// hasRangedSize reports whether a lower/upper randomized-region bound pair
// is configured.
func (c *Config) hasRangedSize() bool { return c.RRLowerBound > 0 || c.RRUpperBound > 0 }

// Validate rejects the configuration errors enumerated in spec.md §6:
// missing 5′ primer; neither exact size nor 3′ primer; only one of
// (lower, upper); lower ≥ upper; mismatched forward/reverse file-list
// lengths. The checks run in the order above and the returned error holds
// only the first violation found: errors.Once keeps the first error set and
// drops later ones, so other violations are not reported.
func (c *Config) Validate() error {
	e := errors.Once{}

	if len(c.Primer5) == 0 {
		e.Set(errors.E("primer5 is required"))
	}
	if !c.hasExactSize() && len(c.Primer3) == 0 {
		e.Set(errors.E("either randomizedRegionSize or primer3 must be configured"))
	}
	if (c.RRLowerBound > 0) != (c.RRUpperBound > 0) {
		e.Set(errors.E("randomizedRegionSizeLowerBound and randomizedRegionSizeUpperBound must be configured together"))
	}
	if c.RRLowerBound > 0 && c.RRUpperBound > 0 && c.RRLowerBound >= c.RRUpperBound {
		e.Set(errors.E("randomizedRegionSizeLowerBound must be less than randomizedRegionSizeUpperBound"))
	}
	if len(c.ReverseFiles) > 0 && len(c.ReverseFiles) != len(c.ForwardFiles) {
		e.Set(errors.E("forwardFiles and reverseFiles must have matching lengths"))
	}
	if len(c.ForwardFiles) == 0 {
		e.Set(errors.E("at least one forward file is required"))
	}

	return e.Err()
}

// sizeInRange reports whether n satisfies the configured exact-or-ranged
// randomized-region length constraint.
func (c *Config) sizeInRange(n int) bool {
	if c.hasExactSize() {
		return n == c.RandomizedRegionSize
	}
	return n >= c.RRLowerBound && n <= c.RRUpperBound
}
