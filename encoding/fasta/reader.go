package fasta

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"

	"github.com/aptlab/selex/recordio"
)

func openStream(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	raw := f.Reader(ctx)
	br := bufio.NewReader(raw)
	peek, _ := br.Peek(2)
	if len(peek) == 2 && peek[0] == 0x1f && peek[1] == 0x8b {
		if gz, gzErr := gzip.NewReader(br); gzErr == nil {
			return &gzipReadCloser{gz: gz, f: f, ctx: ctx}, nil
		}
	}
	return &plainReadCloser{r: br, f: f, ctx: ctx}, nil
}

type gzipReadCloser struct {
	gz  *gzip.Reader
	f   file.File
	ctx context.Context
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }
func (g *gzipReadCloser) Close() error {
	if err := g.gz.Close(); err != nil {
		return err
	}
	return g.f.Close(g.ctx)
}

type plainReadCloser struct {
	r   *bufio.Reader
	f   file.File
	ctx context.Context
}

func (p *plainReadCloser) Read(b []byte) (int, error) { return p.r.Read(b) }
func (p *plainReadCloser) Close() error                { return p.f.Close(p.ctx) }

// Reader implements recordio.Reader for single- or paired-end FASTA input.
// FASTA carries no quality information; ForwardQual/ReverseQual are filled
// with a constant high-quality placeholder so downstream quality-weighted
// consensus (merge.Assemble) and quality accumulation (metadata) treat every
// base as equally trustworthy.
type Reader struct {
	fwdPath, revPath string
	fwdStream        io.ReadCloser
	revStream        io.ReadCloser
	scanner          *Scanner
	pairScanner      *PairScanner
}

// PlaceholderQual is the synthetic Phred+33 quality byte assigned to every
// base of a FASTA read.
const PlaceholderQual = 'I' // Phred+33 for Q40

// NewReader constructs a FASTA reader from a forward path and an optional
// (possibly empty) reverse path.
func NewReader(ctx context.Context, fwdPath, revPath string) (*Reader, error) {
	fwdStream, err := openStream(ctx, fwdPath)
	if err != nil {
		return nil, err
	}
	r := &Reader{fwdPath: fwdPath, revPath: revPath, fwdStream: fwdStream}
	if revPath == "" {
		r.scanner = NewScanner(fwdStream)
		return r, nil
	}
	revStream, err := openStream(ctx, revPath)
	if err != nil {
		_ = fwdStream.Close()
		return nil, err
	}
	r.revStream = revStream
	r.pairScanner = NewPairScanner(fwdStream, revStream)
	return r, nil
}

func placeholderQual(n int) []byte {
	q := make([]byte, n)
	for i := range q {
		q[i] = PlaceholderQual
	}
	return q
}

// NextRead implements recordio.Reader.
func (r *Reader) NextRead() (recordio.Read, bool, error) {
	if r.pairScanner != nil {
		var rec1, rec2 Record
		if !r.pairScanner.Scan(&rec1, &rec2) {
			return recordio.Read{}, false, r.pairScanner.Err()
		}
		return recordio.Read{
			ForwardSeq:  cloneBytes(rec1.Seq),
			ForwardQual: placeholderQual(len(rec1.Seq)),
			ReverseSeq:  cloneBytes(rec2.Seq),
			ReverseQual: placeholderQual(len(rec2.Seq)),
			Sources:     []string{r.fwdPath, r.revPath},
			CycleIndex:  -1,
		}, true, nil
	}

	var rec Record
	if !r.scanner.Scan(&rec) {
		return recordio.Read{}, false, r.scanner.Err()
	}
	return recordio.Read{
		ForwardSeq:  cloneBytes(rec.Seq),
		ForwardQual: placeholderQual(len(rec.Seq)),
		Sources:     []string{r.fwdPath},
		CycleIndex:  -1,
	}, true, nil
}

// Close implements recordio.Reader.
func (r *Reader) Close() error {
	var firstErr error
	if r.fwdStream != nil {
		if err := r.fwdStream.Close(); err != nil {
			firstErr = err
		}
	}
	if r.revStream != nil {
		if err := r.revStream.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
