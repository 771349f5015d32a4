package pipeline

import "runtime"

const parallelModeMinSize = 100 << 20 // 100 MiB

// resolveWorkerCount implements the mode-selection rule: the parallel
// pipeline only applies to a seekable regular file over 100 MiB, with more
// than one CPU available, when the caller hasn't forced serial mode.
// Everything else degenerates to workers=1, which also makes the sorted
// output writer's N-way merge trivial (a single already-sorted array).
func (ix *IndexerContext) resolveWorkerCount(seekable bool, size int64) int {
	if ix.cfg.Workers > 0 {
		return ix.cfg.Workers
	}
	if ix.cfg.Serial || !seekable || size <= parallelModeMinSize {
		return 1
	}
	cores := runtime.NumCPU()
	if cores <= 1 {
		return 1
	}
	w := cores / 2
	if w < 2 {
		w = 2
	}
	if w > 8 {
		w = 8
	}
	return w
}
