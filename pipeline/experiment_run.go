package pipeline

import (
	"context"
	"runtime"
	"sync"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"

	"github.com/aptlab/selex/cycle"
	"github.com/aptlab/selex/metadata"
	"github.com/aptlab/selex/pool"
)

// Run orchestrates one full pipeline pass over cfg's configured files
// against exp's cycles: spin up one producer and min(cpu_count, maxCores)-1
// consumers sharing the bounded queue (spec.md §5), join, then transition
// every cycle's pool to its read-only observation phase and run the
// per-cycle metadata summary pass in parallel (grounded on
// encoding/converter/convert.go's traverse.Each use for independent
// per-shard work).
func Run(ctx context.Context, cfg *Config, exp *cycle.Experiment) (*Progress, *metadata.Accumulators, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	progress := &Progress{}
	meta := metadata.NewAccumulators()
	queue := newQueue(cfg.BlockingQueueSize)

	idx5 := newBarcodeIndex(cfg.Barcodes5Prime)
	idx3 := newBarcodeIndex(cfg.Barcodes3Prime)

	numConsumers := numCores(cfg.MaxCores) - 1
	if numConsumers < 1 {
		numConsumers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < numConsumers; i++ {
		c := newConsumer(cfg, exp, meta, progress, idx5, idx3, queue)
		wg.Add(1)
		go c.run(&wg)
	}

	log.Debug.Printf("starting producer over %d file(s), %d consumer(s)", len(cfg.ForwardFiles), numConsumers)
	producer := newProducer(cfg, queue)
	prodErr := producer.run(ctx)

	wg.Wait()
	log.Debug.Printf("all consumers joined")

	setReadOnly(exp)
	summarize(exp)

	return progress, meta, prodErr
}

func numCores(maxCores int) int {
	n := runtime.NumCPU()
	if maxCores > 0 && maxCores < n {
		n = maxCores
	}
	return n
}

// setReadOnly transitions every distinct pool backing exp's cycles into its
// read-only observation phase (spec.md §3 Lifecycles). Cycles commonly
// share one pool, so pointer identity dedups the transition.
func setReadOnly(exp *cycle.Experiment) {
	seen := make(map[*pool.Pool]bool)
	for _, c := range exp.Cycles {
		p := c.Pool()
		if seen[p] {
			continue
		}
		seen[p] = true
		p.SetReadOnly()
	}
}

// summarize runs an independent per-cycle pass once writes have stopped,
// logging each cycle's final counts at debug level; cycles are independent
// once writes stop, so the pass runs under traverse.Each rather than a
// serial loop (grounded on encoding/converter/convert.go's per-shard use of
// the same package).
func summarize(exp *cycle.Experiment) {
	_ = traverse.Each(len(exp.Cycles), func(i int) error {
		c := exp.Cycles[i]
		log.Debug.Printf("cycle %q: total=%d unique=%d", c.Name, c.TotalSize(), c.UniqueSize())
		return nil
	})
}
