// Package chunk implements the dispatcher that turns an input byte stream
// into line-aligned, carry-forward-tracked chunks, and the bounded queue
// workers drain them from: read, find the last newline, carry the
// remainder forward, and track the absolute starting line number of each
// emitted chunk.
package chunk

// Chunk is a line-aligned contiguous byte range produced by the dispatcher.
type Chunk struct {
	ID                uint64
	StartOffset       int64
	EndOffset         int64
	StartLineNumber   uint64
	CarryForwardLines uint64
	Buffer            []byte
}

// Queue is a bounded, blocking, single-producer multi-consumer channel of
// chunks. Producer blocks when full; consumers range over Chunks() until it
// is closed, which happens once the dispatcher reaches EOF.
type Queue struct {
	ch chan *Chunk
}

// NewQueue creates a Queue with the given capacity (a small bound, e.g. 16,
// is enough to absorb jitter between the dispatcher and the worker pool).
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan *Chunk, capacity)}
}

// Push enqueues a chunk, blocking if the queue is full.
func (q *Queue) Push(c *Chunk) {
	q.ch <- c
}

// Close signals that no more chunks will be produced.
func (q *Queue) Close() {
	close(q.ch)
}

// Chunks returns the receive-only channel consumers range over.
func (q *Queue) Chunks() <-chan *Chunk {
	return q.ch
}
