// Package fastq implements FASTQ reading for the pipeline's reader-plugin
// contract (spec.md §6): four lines per record (@header, sequence, '+',
// quality), transparent gzip detection, and an optional paired reverse
// stream. Scanner/PairScanner are adapted from the teacher's own FASTQ
// scanner, generalized to interned Read values instead of a fixed struct.
package fastq

import (
	"bufio"
	"errors"
	"io"
)

var (
	// ErrShort is returned when a truncated FASTQ file is encountered.
	ErrShort = errors.New("short FASTQ file")
	// ErrInvalid is returned when an invalid FASTQ file is encountered.
	ErrInvalid = errors.New("invalid FASTQ file")
	// ErrDiscordant is returned when two underlying FASTQ files disagree
	// about how many records they contain.
	ErrDiscordant = errors.New("discordant FASTQ pairs")
)

// Record is one FASTQ read: ID, sequence, the '+' line, and quality.
type Record struct {
	ID, Seq, Unk, Qual []byte
}

var errEOF = errors.New("eof")

// Scanner reads single-stream FASTQ records. Scanners are not thread-safe.
type Scanner struct {
	b   *bufio.Scanner
	err error
}

// NewScanner constructs a Scanner reading raw FASTQ data from r.
func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	s.Buffer(buf, 16*1024*1024)
	return &Scanner{b: s}
}

// Scan reads the next record into rec, returning false at end of stream or
// on error; check Err to distinguish the two.
func (f *Scanner) Scan(rec *Record) bool {
	if f.err != nil {
		return false
	}
	if !f.b.Scan() {
		if f.err = f.b.Err(); f.err == nil {
			f.err = errEOF
		}
		return false
	}
	id := f.b.Bytes()
	if len(id) == 0 || id[0] != '@' {
		f.err = ErrInvalid
		return false
	}
	rec.ID = append(rec.ID[:0], id...)

	if !f.scan() {
		return false
	}
	rec.Seq = append(rec.Seq[:0], f.b.Bytes()...)

	if !f.scan() {
		return false
	}
	unk := f.b.Bytes()
	if len(unk) == 0 || unk[0] != '+' {
		f.err = ErrInvalid
		return false
	}
	rec.Unk = append(rec.Unk[:0], unk...)

	if !f.scan() {
		return false
	}
	rec.Qual = append(rec.Qual[:0], f.b.Bytes()...)
	return true
}

func (f *Scanner) scan() bool {
	ok := f.b.Scan()
	if !ok {
		if f.err = f.b.Err(); f.err == nil {
			f.err = ErrShort
		}
	}
	return ok
}

// Err returns the scanning error, if any; nil at a clean EOF.
func (f *Scanner) Err() error {
	if f.err == errEOF {
		return nil
	}
	return f.err
}

// PairScanner composes a pair of scanners to scan a pair of FASTQ streams.
type PairScanner struct {
	r1, r2 *Scanner
	err    error
}

// NewPairScanner creates a PairScanner from the provided R1 and R2 readers.
func NewPairScanner(r1, r2 io.Reader) *PairScanner {
	return &PairScanner{r1: NewScanner(r1), r2: NewScanner(r2)}
}

// Scan scans the next read pair into rec1, rec2.
func (p *PairScanner) Scan(rec1, rec2 *Record) bool {
	ok1 := p.r1.Scan(rec1)
	ok2 := p.r2.Scan(rec2)
	if ok1 != ok2 {
		p.err = ErrDiscordant
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
