package pipeline

import "sync/atomic"

// quitFlag is the signal-driven shutdown flag dispatcher and workers poll
// between iterations. It is set once, by RequestShutdown, and never
// cleared within a run.
type quitFlag struct {
	v int32
}

func (q *quitFlag) set() {
	atomic.StoreInt32(&q.v, 1)
}

func (q *quitFlag) check() bool {
	return atomic.LoadInt32(&q.v) != 0
}
