package pipeline

import "github.com/aptlab/selex/recordio"

type itemKind int

const (
	itemRead itemKind = iota
	itemPoison
)

// queueItem is the tagged variant {Read, EndOfStream} of the Design Note
// "Poison-pill idiom": a bounded channel of these is the queue shared
// between the producer and every consumer.
type queueItem struct {
	kind itemKind
	read recordio.Read
}

// newQueue allocates the bounded FIFO of capacity size.
func newQueue(size int) chan queueItem {
	return make(chan queueItem, size)
}
