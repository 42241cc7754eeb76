package fastq_test

import (
	"strings"
	"testing"

	"github.com/grailbio/testutil/expect"

	"github.com/aptlab/selex/encoding/fastq"
)

func TestScannerReadsOneRecord(t *testing.T) {
	data := "@read1\nACGT\n+\nIIII\n"
	s := fastq.NewScanner(strings.NewReader(data))

	var rec fastq.Record
	expect.True(t, s.Scan(&rec))
	expect.EQ(t, string(rec.ID), "@read1")
	expect.EQ(t, string(rec.Seq), "ACGT")
	expect.EQ(t, string(rec.Unk), "+")
	expect.EQ(t, string(rec.Qual), "IIII")

	expect.False(t, s.Scan(&rec))
	expect.True(t, s.Err() == nil)
}

func TestScannerReadsMultipleRecords(t *testing.T) {
	data := "@r1\nAAAA\n+\nIIII\n@r2\nCCCC\n+\nJJJJ\n"
	s := fastq.NewScanner(strings.NewReader(data))

	var rec fastq.Record
	expect.True(t, s.Scan(&rec))
	expect.EQ(t, string(rec.Seq), "AAAA")
	expect.True(t, s.Scan(&rec))
	expect.EQ(t, string(rec.Seq), "CCCC")
	expect.False(t, s.Scan(&rec))
}

func TestScannerRejectsMissingAtHeader(t *testing.T) {
	data := "read1\nACGT\n+\nIIII\n"
	s := fastq.NewScanner(strings.NewReader(data))
	var rec fastq.Record
	expect.False(t, s.Scan(&rec))
	expect.EQ(t, s.Err(), fastq.ErrInvalid)
}

func TestScannerRejectsTruncatedRecord(t *testing.T) {
	data := "@read1\nACGT\n"
	s := fastq.NewScanner(strings.NewReader(data))
	var rec fastq.Record
	expect.False(t, s.Scan(&rec))
	expect.EQ(t, s.Err(), fastq.ErrShort)
}

func TestPairScannerScansBothStreams(t *testing.T) {
	r1 := "@r1\nAAAA\n+\nIIII\n"
	r2 := "@r1\nTTTT\n+\nJJJJ\n"
	p := fastq.NewPairScanner(strings.NewReader(r1), strings.NewReader(r2))

	var rec1, rec2 fastq.Record
	expect.True(t, p.Scan(&rec1, &rec2))
	expect.EQ(t, string(rec1.Seq), "AAAA")
	expect.EQ(t, string(rec2.Seq), "TTTT")
	expect.False(t, p.Scan(&rec1, &rec2))
	expect.True(t, p.Err() == nil)
}

func TestPairScannerDetectsDiscordantStreams(t *testing.T) {
	r1 := "@r1\nAAAA\n+\nIIII\n@r2\nCCCC\n+\nJJJJ\n"
	r2 := "@r1\nTTTT\n+\nJJJJ\n"
	p := fastq.NewPairScanner(strings.NewReader(r1), strings.NewReader(r2))

	var rec1, rec2 fastq.Record
	expect.True(t, p.Scan(&rec1, &rec2))
	expect.False(t, p.Scan(&rec1, &rec2))
	expect.EQ(t, p.Err(), fastq.ErrDiscordant)
}
