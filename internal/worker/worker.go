// Package worker implements the pool of goroutines that drain the chunk
// queue, tokenize and classify each line's fields, and either append a
// location directly to an already-known address or queue an insertion
// request for the writer stage.
package worker

import (
	"bytes"
	"time"

	"github.com/sirupsen/logrus"

	"logpi/internal/address"
	"logpi/internal/chunk"
	"logpi/internal/dict"
	"logpi/internal/metrics"
	"logpi/internal/progress"
	"logpi/internal/tokenizer"
	"logpi/internal/writer"
)

// insertionBatchSize is kept small to minimize the window in
// which two workers can both miss the same not-yet-inserted address.
const insertionBatchSize = 5

// Pool holds everything a worker goroutine needs; one Pool is shared
// read-only across every worker, each of which calls Run with its own
// workerID.
type Pool struct {
	Queue        *chunk.Queue
	Dict         *dict.Dictionary
	Insertions   *writer.InsertionQueue
	TokenizeOpts tokenizer.Options
	AddressOpts  address.Options
	Progress     *progress.Counter
	Metrics      *metrics.Recorder
	Log          *logrus.Logger
}

// Run drains the chunk queue on the calling goroutine until the queue
// closes or quit returns true, flushing any pending insertion batch before
// each quit check and on exit, then signals this worker's departure via
// InsertionQueue.ProducerDone when it exits.
func (p *Pool) Run(workerID int, quit func() bool) error {
	defer p.Insertions.ProducerDone()

	batch := make([]writer.InsertionRequest, 0, insertionBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		waitStart := time.Now()
		p.Insertions.PushBatch(batch)
		p.Metrics.RecordInsertionWait(time.Since(waitStart))
		batch = make([]writer.InsertionRequest, 0, insertionBatchSize)
	}

	for c := range p.Queue.Chunks() {
		if quit != nil && quit() {
			flush()
			continue
		}
		start := time.Now()
		p.processChunk(workerID, c, &batch, flush)
		p.Metrics.RecordChunkLatency(time.Since(start))
		flush()
	}
	return nil
}

// processChunk walks every '\n'-terminated line in the chunk's buffer, plus
// a trailing unterminated line if this is the final chunk of the file.
func (p *Pool) processChunk(workerID int, c *chunk.Chunk, batch *[]writer.InsertionRequest, flush func()) {
	buf := c.Buffer
	var linesProcessed uint64
	start := 0
	for i := 0; i < len(buf); i++ {
		if buf[i] == '\n' {
			p.processLine(workerID, c, linesProcessed, buf[start:i], batch, flush)
			linesProcessed++
			start = i + 1
		}
	}
	if start < len(buf) {
		p.processLine(workerID, c, linesProcessed, buf[start:], batch, flush)
	}
}

func (p *Pool) processLine(workerID int, c *chunk.Chunk, linesProcessed uint64, line []byte, batch *[]writer.InsertionRequest, flush func()) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	absoluteLine := c.StartLineNumber + c.CarryForwardLines + linesProcessed

	for _, f := range tokenizer.Tokenize(line, p.TokenizeOpts) {
		if f.Tag == tokenizer.TagOther {
			continue
		}
		_, canon, ok := address.Parse(f.Text, p.AddressOpts)
		if !ok {
			continue
		}

		if pad, found := p.Dict.Lookup(canon); found {
			if err := pad.Append(workerID, absoluteLine, uint16(f.Index)); err != nil {
				p.Log.WithFields(logrus.Fields{"address": canon}).WithError(err).Warn(
					"worker: dropped a location, array ceiling reached")
			}
			continue
		}

		*batch = append(*batch, writer.InsertionRequest{
			Address:  canon,
			WorkerID: workerID,
			Line:     absoluteLine,
			Field:    uint16(f.Index),
		})
		if len(*batch) >= insertionBatchSize {
			flush()
		}
	}
	p.Progress.Add(1)
}
