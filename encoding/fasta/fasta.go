// Package fasta implements a streaming, record-at-a-time FASTA reader for
// the pipeline's reader-plugin contract (spec.md §6): unlike the teacher's
// whole-file-indexed fasta.Fasta (used for random access into a reference),
// this sibling reader scans one '>'-delimited record at a time, the way
// encoding/fastq scans one four-line record at a time, since a SELEX read
// file is consumed start to end rather than queried by name.
package fasta

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

const bufferInitSize = 64 * 1024

// Record is one FASTA read: its header (without the leading '>') and its
// assembled sequence, with interleaving newlines removed.
type Record struct {
	Header, Seq []byte
}

// Scanner reads single-stream FASTA records one at a time. Scanners are not
// thread-safe.
type Scanner struct {
	b       *bufio.Scanner
	err     error
	pending []byte // header line carried over from the previous Scan
	done    bool
}

// NewScanner constructs a Scanner reading raw FASTA data from r.
func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	buf := make([]byte, 0, bufferInitSize)
	s.Buffer(buf, 16*1024*1024)
	return &Scanner{b: s}
}

// Scan reads the next record into rec, returning false at end of stream or
// on error; check Err to distinguish the two.
func (f *Scanner) Scan(rec *Record) bool {
	if f.err != nil || f.done {
		return false
	}

	var header []byte
	if f.pending != nil {
		header = f.pending
		f.pending = nil
	} else {
		if !f.b.Scan() {
			f.done = true
			if scanErr := f.b.Err(); scanErr != nil {
				f.err = errors.Wrap(scanErr, "couldn't read FASTA data")
			}
			return false
		}
		header = f.b.Bytes()
	}
	if len(header) == 0 || header[0] != '>' {
		f.err = errors.Errorf("malformed FASTA record: expected '>', got %q", header)
		return false
	}
	// The sequence name is the run of characters up to the first space;
	// anything after a space is a free-text description and is dropped.
	name := header[1:]
	if i := bytes.IndexByte(name, ' '); i >= 0 {
		name = name[:i]
	}
	rec.Header = append(rec.Header[:0], name...)
	rec.Seq = rec.Seq[:0]

	for f.b.Scan() {
		line := f.b.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			f.pending = append([]byte(nil), line...)
			return true
		}
		rec.Seq = append(rec.Seq, line...)
	}
	if err := f.b.Err(); err != nil {
		f.err = errors.Wrap(err, "couldn't read FASTA data")
		return false
	}
	f.done = true
	return true
}

// Err returns the scanning error, if any.
func (f *Scanner) Err() error { return f.err }

// PairScanner composes a pair of scanners to scan a pair of FASTA streams.
type PairScanner struct {
	r1, r2 *Scanner
	err    error
}

// NewPairScanner creates a PairScanner from the provided R1 and R2 readers.
func NewPairScanner(r1, r2 io.Reader) *PairScanner {
	return &PairScanner{r1: NewScanner(r1), r2: NewScanner(r2)}
}

// Scan scans the next record pair into rec1, rec2.
func (p *PairScanner) Scan(rec1, rec2 *Record) bool {
	ok1 := p.r1.Scan(rec1)
	ok2 := p.r2.Scan(rec2)
	if ok1 != ok2 {
		p.err = errors.New("discordant FASTA pairs")
	}
	return ok1 && ok2
}

// Err returns the scanning error, if any.
func (p *PairScanner) Err() error {
	if err := p.r1.Err(); err != nil {
		return err
	}
	if err := p.r2.Err(); err != nil {
		return err
	}
	return p.err
}
