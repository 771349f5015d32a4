// Package metrics tracks the optional debug-level latency histograms
// surfaced only at -d 8/9. Recording happens once per chunk and once per
// insertion-batch flush, never per line, so it never touches the hot
// path's "no now() calls per line" rule.
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minValueNanos = 1
	maxValueNanos = int64(60 * time.Second)
	sigFigs       = 3
)

// Recorder accumulates latency samples. A nil *Recorder, or one constructed
// with enabled=false, is a safe no-op so callers never need to branch on
// whether metrics are turned on.
type Recorder struct {
	mu            sync.Mutex
	enabled       bool
	chunkLatency  *hdrhistogram.Histogram
	insertionWait *hdrhistogram.Histogram
}

// New creates a Recorder. When enabled is false the returned Recorder
// records nothing; this lets internal/pipeline construct one unconditionally
// and gate only on the -d level.
func New(enabled bool) *Recorder {
	if !enabled {
		return &Recorder{enabled: false}
	}
	return &Recorder{
		enabled:       true,
		chunkLatency:  hdrhistogram.New(minValueNanos, maxValueNanos, sigFigs),
		insertionWait: hdrhistogram.New(minValueNanos, maxValueNanos, sigFigs),
	}
}

// RecordChunkLatency records how long a worker spent processing one chunk.
func (r *Recorder) RecordChunkLatency(d time.Duration) {
	if r == nil || !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.chunkLatency.RecordValue(d.Nanoseconds())
}

// RecordInsertionWait records how long a worker blocked pushing a batch
// onto a full InsertionQueue.
func (r *Recorder) RecordInsertionWait(d time.Duration) {
	if r == nil || !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.insertionWait.RecordValue(d.Nanoseconds())
}

// Snapshot reports the p50/p99 of both histograms in nanoseconds, for a
// single end-of-run diagnostic line. Returns zero values if metrics are
// disabled or no samples were recorded.
type Snapshot struct {
	ChunkP50, ChunkP99                 int64
	InsertionWaitP50, InsertionWaitP99 int64
}

func (r *Recorder) Snapshot() Snapshot {
	if r == nil || !r.enabled {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		ChunkP50:         r.chunkLatency.ValueAtQuantile(50.0),
		ChunkP99:         r.chunkLatency.ValueAtQuantile(99.0),
		InsertionWaitP50: r.insertionWait.ValueAtQuantile(50.0),
		InsertionWaitP99: r.insertionWait.ValueAtQuantile(99.0),
	}
}
