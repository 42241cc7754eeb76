package pipeline

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"

	"github.com/aptlab/selex/encoding/fasta"
	"github.com/aptlab/selex/encoding/fastq"
	"github.com/aptlab/selex/recordio"
)

// Producer drives the configured readers and enqueues every read it
// produces, per spec.md §4.G.
type Producer struct {
	cfg   *Config
	queue chan queueItem
}

func newProducer(cfg *Config, queue chan queueItem) *Producer {
	return &Producer{cfg: cfg, queue: queue}
}

func (p *Producer) openReader(ctx context.Context, fwdPath, revPath string) (recordio.Reader, error) {
	switch p.cfg.Format {
	case recordio.FASTA:
		return fasta.NewReader(ctx, fwdPath, revPath)
	default:
		return fastq.NewReader(ctx, fwdPath, revPath)
	}
}

// run opens each configured file pair in turn, draining every read onto
// the bounded queue (blocking when full — producer backpressure), then
// enqueues one poison pill once every file has been drained.
//
// It is the sole writer of a read's CycleIndex in per-file mode, assigning
// it from the file's position in the configured list; in multiplexed mode
// CycleIndex is left at -1 for the consumer to fill in after barcode
// matching.
func (p *Producer) run(ctx context.Context) error {
	e := errors.Once{}

	for i, fwdPath := range p.cfg.ForwardFiles {
		revPath := ""
		if i < len(p.cfg.ReverseFiles) {
			revPath = p.cfg.ReverseFiles[i]
		}
		r, err := p.openReader(ctx, fwdPath, revPath)
		if err != nil {
			e.Set(errors.E(err, "opening reader", fwdPath))
			continue
		}
		p.drain(r, i)
		if err := r.Close(); err != nil {
			e.Set(errors.E(err, "closing reader", fwdPath))
		}
	}

	p.queue <- queueItem{kind: itemPoison}
	return e.Err()
}

func (p *Producer) drain(r recordio.Reader, fileIndex int) {
	for {
		read, ok, err := r.NextRead()
		if err != nil {
			log.Error.Printf("read error: %v", err)
			return
		}
		if !ok {
			return
		}
		if p.cfg.IsPerFile {
			read.CycleIndex = fileIndex
		} else {
			read.CycleIndex = -1
		}
		p.queue <- queueItem{kind: itemRead, read: read}
	}
}
