package fastq

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"

	"github.com/aptlab/selex/recordio"
)

// openStream opens path (local or, via grailbio/base/file, any backend it
// supports) and transparently gzip-decodes it: gzip decoding is attempted
// first, and on failure the raw byte stream is used instead, per spec.md
// §6/§4.F's magic-sniffed gzip contract. Mirrors the sniffing approach in
// encoding/fastq/downsample.go's fileHandle.reader, adapted to try-then-
// fallback rather than assume gzip unconditionally.
func openStream(ctx context.Context, path string) (io.ReadCloser, file.File, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	raw := f.Reader(ctx)
	br := bufio.NewReader(raw)
	peek, _ := br.Peek(2)
	if len(peek) == 2 && peek[0] == 0x1f && peek[1] == 0x8b {
		gz, gzErr := gzip.NewReader(br)
		if gzErr == nil {
			return &gzipReadCloser{gz: gz, f: f, ctx: ctx}, f, nil
		}
	}
	return &plainReadCloser{r: br, f: f, ctx: ctx}, f, nil
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

// Reader implements recordio.Reader for single- or paired-end FASTQ input.
type Reader struct {
	fwdPath, revPath string
	fwdStream        io.ReadCloser
	revStream        io.ReadCloser
	scanner          *Scanner
	pairScanner      *PairScanner
}

// NewReader constructs a FASTQ reader from a forward path and an optional
// (possibly empty) reverse path.
func NewReader(ctx context.Context, fwdPath, revPath string) (*Reader, error) {
	fwdStream, _, err := openStream(ctx, fwdPath)
	if err != nil {
		return nil, err
	}
	r := &Reader{fwdPath: fwdPath, revPath: revPath, fwdStream: fwdStream}
	if revPath == "" {
		r.scanner = NewScanner(fwdStream)
		return r, nil
	}
	revStream, _, err := openStream(ctx, revPath)
	if err != nil {
		_ = fwdStream.Close()
		return nil, err
	}
	r.revStream = revStream
	r.pairScanner = NewPairScanner(fwdStream, revStream)
	return r, nil
}

// NextRead implements recordio.Reader.
func (r *Reader) NextRead() (recordio.Read, bool, error) {
	if r.pairScanner != nil {
		var rec1, rec2 Record
		if !r.pairScanner.Scan(&rec1, &rec2) {
			if err := r.pairScanner.Err(); err != nil {
				return recordio.Read{}, false, err
			}
			return recordio.Read{}, false, nil
		}
		return recordio.Read{
			ForwardSeq:  cloneBytes(rec1.Seq),
			ForwardQual: cloneBytes(rec1.Qual),
			ReverseSeq:  cloneBytes(rec2.Seq),
			ReverseQual: cloneBytes(rec2.Qual),
			Sources:     []string{r.fwdPath, r.revPath},
			CycleIndex:  -1,
		}, true, nil
	}

	var rec Record
	if !r.scanner.Scan(&rec) {
		if err := r.scanner.Err(); err != nil {
			return recordio.Read{}, false, err
		}
		return recordio.Read{}, false, nil
	}
	return recordio.Read{
		ForwardSeq:  cloneBytes(rec.Seq),
		ForwardQual: cloneBytes(rec.Qual),
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
