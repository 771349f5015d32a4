package chunk

import (
	"bytes"
	"io"
)

const (
	// DefaultTargetSize is the default chunk size the dispatcher reads per
	// step.
	DefaultTargetSize = 128 << 20
	// MinTargetSize is the floor a caller may configure.
	MinTargetSize = 1 << 20
)

// Dispatcher owns the input byte stream and produces line-aligned chunks.
// It runs on a single goroutine; Run pushes chunks to the queue until EOF or
// the quit function returns true.
type Dispatcher struct {
	r          io.Reader
	targetSize int
	queue      *Queue

	carry      []byte
	lineNumber uint64
	nextID     uint64
}

// New creates a Dispatcher reading from r, chunking at targetSize bytes
// (floored to MinTargetSize), pushing to queue.
func New(r io.Reader, targetSize int, queue *Queue) *Dispatcher {
	if targetSize < MinTargetSize {
		targetSize = MinTargetSize
	}
	return &Dispatcher{r: r, targetSize: targetSize, queue: queue}
}

// Run reads the input to EOF, emitting chunks to the queue, and closes the
// queue when done. quit is polled between reads; if it returns true the
// dispatcher stops producing early (a graceful partial shutdown), still
// closing the queue so downstream consumers exit cleanly.
func (d *Dispatcher) Run(quit func() bool) error {
	defer d.queue.Close()

	buf := make([]byte, d.targetSize)
	var offset int64

	for {
		if quit != nil && quit() {
			return nil
		}

		n, readErr := io.ReadFull(d.r, buf)
		if n == 0 && readErr != nil {
			if readErr == io.EOF {
				return d.emitFinalCarry(offset)
			}
			return readErr
		}
		eof := readErr == io.ErrUnexpectedEOF || readErr == io.EOF

		scratch := append(d.carry, buf[:n]...)
		carryLinesPrepended := uint64(bytes.Count(d.carry, []byte{'\n'}))
		d.carry = nil

		lastNL := bytes.LastIndexByte(scratch, '\n')
		if lastNL < 0 {
			// no newline at all in the scratch buffer: a single line
			// longer than targetSize, or genuinely no-newline input.
			if eof {
				return d.emit(scratch, offset, carryLinesPrepended)
			}
			// a single line longer than targetSize: keep reading rather
			// than emitting a non-newline-terminated chunk mid-stream,
			// which would break the line-alignment invariant every other
			// consumer relies on. This only recurs for pathological
			// inputs; the next read's worth gets appended to carry and
			// we try again.
			d.carry = scratch
			continue
		}

		emitted := scratch[:lastNL+1]
		remainder := scratch[lastNL+1:]

		if err := d.emit(emitted, offset, carryLinesPrepended); err != nil {
			return err
		}
		offset += int64(len(emitted))

		if len(remainder) > 0 {
			d.carry = append([]byte(nil), remainder...)
		}

		if eof {
			return d.emitFinalCarry(offset)
		}
	}
}

func (d *Dispatcher) emitFinalCarry(offset int64) error {
	if len(d.carry) == 0 {
		return nil
	}
	carryLines := uint64(0) // the tail was never counted as a full line yet
	buf := d.carry
	d.carry = nil
	return d.emit(buf, offset, carryLines)
}

func (d *Dispatcher) emit(buf []byte, offset int64, carryForwardLines uint64) error {
	linesInChunk := uint64(bytes.Count(buf, []byte{'\n'}))
	c := &Chunk{
		ID:                d.nextID,
		StartOffset:       offset,
		EndOffset:         offset + int64(len(buf)),
		StartLineNumber:   d.lineNumber,
		CarryForwardLines: carryForwardLines,
		Buffer:            buf,
	}
	d.nextID++
	d.queue.Push(c)
	d.lineNumber += linesInChunk - carryForwardLines
	return nil
}
