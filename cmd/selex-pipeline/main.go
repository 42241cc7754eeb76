// Command selex-pipeline runs the concurrent producer/consumer read
// pipeline over a configured set of paired- or single-end sequencing
// files, registering extracted randomized regions into a shared aptamer
// pool partitioned by selection cycle.
package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/vlog"

	"github.com/aptlab/selex/cycle"
	"github.com/aptlab/selex/pipeline"
	"github.com/aptlab/selex/pool"
	"github.com/aptlab/selex/recordio"
)

type commaList []string

func (c *commaList) String() string { return strings.Join(*c, ",") }
func (c *commaList) Set(v string) error {
	if v == "" {
		return nil
	}
	*c = strings.Split(v, ",")
	return nil
}

var (
	primer5 = flag.String("primer5", "", "5' primer sequence (required)")
	primer3 = flag.String("primer3", "", "3' primer sequence (optional in batch mode)")

	rrSize  = flag.Int("randomized-region-size", 0, "exact randomized region size; takes precedence over lower/upper bound")
	rrLower = flag.Int("randomized-region-lower", 0, "randomized region lower size bound")
	rrUpper = flag.Int("randomized-region-upper", 0, "randomized region upper size bound")

	isPerFile              = flag.Bool("per-file", false, "assign selection cycle by file position rather than barcode demux")
	onlyRR                 = flag.Bool("rr-only", false, "input files contain only the randomized region (primers synthesized)")
	batchMode              = flag.Bool("batch", false, "input files contain only the randomized region, no primer search")
	storeReverseComplement = flag.Bool("store-revcomp", false, "store the reverse complement of extracted sequences")
	checkReverseComplement = flag.Bool("check-revcomp", false, "retry extraction against the reverse complement on failure")

	barcodes5 commaList
	barcodes3 commaList

	primerTolerance  = flag.Int("primer-tolerance", 1, "max mismatches allowed when locating a primer")
	barcodeTolerance = flag.Int("barcode-tolerance", 1, "max mismatches allowed when locating a barcode")

	minOverlap    = flag.Int("paired-min-overlap", 10, "minimum paired-end overlap length")
	maxMutations  = flag.Int("paired-max-mutations", 2, "maximum mismatches tolerated in the paired-end overlap")
	maxScoreValue = flag.Int("paired-max-score", 40, "maximum consensus quality score")

	blockingQueueSize = flag.Int("queue-size", 1<<16, "bounded queue capacity between producer and consumers")
	maxCores          = flag.Int("max-cores", 0, "maximum cores to use; consumers run on one fewer, at least 1 (0 = all available)")

	format = flag.String("format", "fastq", "input format: fastq or fasta")

	forwardFiles commaList
	reverseFiles commaList

	cycleNames  commaList
	cycleRounds commaList
)

func init() {
	flag.Var(&barcodes5, "barcodes-5prime", "comma-separated 5' barcode sequences, one per cycle")
	flag.Var(&barcodes3, "barcodes-3prime", "comma-separated 3' barcode sequences, one per cycle")
	flag.Var(&forwardFiles, "forward-files", "comma-separated forward read file paths")
	flag.Var(&reverseFiles, "reverse-files", "comma-separated reverse read file paths (paired-end)")
	flag.Var(&cycleNames, "cycle-names", "comma-separated selection cycle names, one per configured cycle")
	flag.Var(&cycleRounds, "cycle-rounds", "comma-separated selection cycle round indices, one per configured cycle")
}

func toByteSlices(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func buildExperiment() *cycle.Experiment {
	p := pool.New()
	names := []string(cycleNames)
	if len(names) == 0 {
		names = []string{"cycle0"}
	}
	cycles := make([]*cycle.Cycle, len(names))
	for i, name := range names {
		round := i
		if i < len(cycleRounds) {
			if n, err := strconv.Atoi(cycleRounds[i]); err == nil {
				round = n
			}
		}
		var b5, b3 []byte
		if i < len(barcodes5) {
			b5 = []byte(barcodes5[i])
		}
		if i < len(barcodes3) {
			b3 = []byte(barcodes3[i])
		}
		cycles[i] = cycle.New(name, round, false, false, b5, b3, p)
	}
	return cycle.NewExperiment(cycles)
}

func main() {
	shutdown := grail.Init()
	defer shutdown()
	flag.Parse()

	cfg := &pipeline.Config{
		Primer5:                    []byte(*primer5),
		Primer3:                    []byte(*primer3),
		RandomizedRegionSize:       *rrSize,
		RRLowerBound:               *rrLower,
		RRUpperBound:               *rrUpper,
		IsPerFile:                  *isPerFile,
		OnlyRandomizedRegionInData: *onlyRR,
		BatchMode:                  *batchMode,
		StoreReverseComplement:     *storeReverseComplement,
		CheckReverseComplement:     *checkReverseComplement,
		Barcodes5Prime:             toByteSlices(barcodes5),
		Barcodes3Prime:             toByteSlices(barcodes3),
		PrimerTolerance:            *primerTolerance,
		BarcodeTolerance:           *barcodeTolerance,
		PairedEndMinOverlap:        *minOverlap,
		PairedEndMaxMutations:      *maxMutations,
		PairedEndMaxScoreValue:     byte(*maxScoreValue),
		BlockingQueueSize:          *blockingQueueSize,
		MaxCores:                   *maxCores,
		ForwardFiles:               forwardFiles,
		ReverseFiles:               reverseFiles,
	}
	if strings.EqualFold(*format, "fasta") {
		cfg.Format = recordio.FASTA
	} else {
		cfg.Format = recordio.FASTQ
	}

	if err := cfg.Validate(); err != nil {
		vlog.Fatalf("invalid configuration: %v", err)
	}

	exp := buildExperiment()
	ctx := vcontext.Background()

	vlog.Infof("starting pipeline over %d file(s)", len(cfg.ForwardFiles))
	progress, _, err := pipeline.Run(ctx, cfg, exp)
	if err != nil {
		vlog.Fatalf("pipeline run failed: %v", err)
	}

	snap := progress.Snapshot()
	fmt.Printf("processed=%d accepted=%d contigAssemblyFail=%d invalidAlphabet=%d "+
		"unmatched5Prime=%d unmatched3Prime=%d invalidCycle=%d primerOverlaps=%d\n",
		snap.Processed, snap.Accepted, snap.ContigAssemblyFail, snap.InvalidAlphabet,
		snap.Unmatched5Prime, snap.Unmatched3Prime, snap.InvalidCycle, snap.PrimerOverlaps)

	for _, c := range exp.Cycles {
		fmt.Printf("cycle %q: total=%d unique=%d checksum=%x\n", c.Name, c.TotalSize(), c.UniqueSize(), c.Pool().Checksum())
	}
	vlog.Infof("all done")
}
