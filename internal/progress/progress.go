// Package progress implements the global line counter and periodic
// reporting ticker: a relaxed atomic counter incremented once per processed
// line, read-and-cleared by a periodic ticker on its own goroutine. No CAS retry loop
// is needed here: workers only ever add, never test-and-set a bit.
package progress

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Counter is the global, relaxed-ordering atomic line counter. Workers call
// Add from the hot path; it makes no syscalls and never blocks.
type Counter struct {
	n uint64
}

// Add increments the counter by n. Safe for concurrent use by any number of
// workers. A nil Counter is a no-op, so callers that don't care about
// progress reporting can leave Pool.Progress unset.
func (c *Counter) Add(n uint64) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.n, n)
}

// ReadAndReset atomically reads the counter and zeroes it, returning the
// value accumulated since the previous call.
func (c *Counter) ReadAndReset() uint64 {
	if c == nil {
		return 0
	}
	return atomic.SwapUint64(&c.n, 0)
}

// Monitor periodically reports the line-processing rate. Its Run loop is
// the only piece of the pipeline that calls time.Now() on a schedule; no
// per-line timing ever happens, an explicit performance requirement.
type Monitor struct {
	Counter  *Counter
	Interval time.Duration
	Log      *logrus.Logger
}

// Run reports at Interval until ctx is cancelled, then returns nil. No
// final report is emitted on cancellation; the last partial interval's
// count is simply dropped, since the run is ending anyway and the output
// stage doesn't depend on it.
func (m *Monitor) Run(ctx context.Context) error {
	if m.Interval <= 0 {
		m.Interval = 60 * time.Second
	}
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n := m.Counter.ReadAndReset()
			m.Log.WithField("lines", n).Infof("Processed %s lines/%s", humanize.Comma(int64(n)), m.Interval)
		}
	}
}
