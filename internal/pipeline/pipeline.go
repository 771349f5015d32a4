// Package pipeline wires the dispatcher, worker pool, writer, and sorted
// output writer into a single per-run context, choosing between the
// parallel and degenerate-serial pipelines and honoring the signal-driven
// quit flag.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"logpi/internal/address"
	"logpi/internal/chunk"
	"logpi/internal/config"
	"logpi/internal/dict"
	"logpi/internal/metrics"
	"logpi/internal/progress"
	"logpi/internal/tokenizer"
	"logpi/internal/worker"
	"logpi/internal/writer"
)

const (
	chunkQueueCapacity     = 16
	insertionQueueCapacity = 64
	progressInterval       = 60 * time.Second
)

// IndexerContext holds the per-run configuration and the signal-driven quit
// flag every dispatcher and worker goroutine polls between iterations.
type IndexerContext struct {
	cfg  config.Config
	log  *logrus.Logger
	quit *quitFlag
}

// New builds an IndexerContext for cfg, logging through log (never nil;
// cmd/logpi always constructs one per the AMBIENT STACK logging section).
func New(cfg config.Config, log *logrus.Logger) *IndexerContext {
	return &IndexerContext{cfg: cfg, log: log, quit: &quitFlag{}}
}

// RequestShutdown sets the quit flag; cmd/logpi calls this from its
// SIGINT/SIGTERM handler. Already-dequeued chunks still finish processing
// and the index built so far is still emitted.
func (ix *IndexerContext) RequestShutdown() {
	ix.quit.set()
}

// Run processes every configured input in turn. A single input's failure is
// logged and skipped: per-file errors never abort sibling files. Run itself
// only returns an error if every input failed.
func (ix *IndexerContext) Run(ctx context.Context) error {
	var succeeded int
	for _, in := range ix.cfg.Inputs {
		if err := ix.processOne(ctx, in); err != nil {
			ix.log.WithField("input", in).WithError(err).Error("logpi: failed to process input, skipping")
			continue
		}
		succeeded++
	}
	if succeeded == 0 && len(ix.cfg.Inputs) > 0 {
		return fmt.Errorf("logpi: all %d input(s) failed", len(ix.cfg.Inputs))
	}
	return nil
}

func (ix *IndexerContext) processOne(ctx context.Context, path string) error {
	in, err := ix.openInput(path)
	if err != nil {
		return err
	}
	defer in.Close()

	workers := ix.resolveWorkerCount(in.seekable, in.size)

	chunkQueue := chunk.NewQueue(chunkQueueCapacity)
	d := dict.New(workers, ix.log)
	insertions := writer.NewInsertionQueue(insertionQueueCapacity, workers)
	counter := &progress.Counter{}
	rec := metrics.New(ix.cfg.MetricsEnabled())

	targetSize := ix.cfg.TargetChunkSize
	if targetSize == 0 {
		targetSize = chunk.DefaultTargetSize
	}
	dispatcher := chunk.New(in.r, targetSize, chunkQueue)

	pool := &worker.Pool{
		Queue:        chunkQueue,
		Dict:         d,
		Insertions:   insertions,
		TokenizeOpts: tokenizer.Options{Greedy: ix.cfg.Greedy},
		AddressOpts:  address.Options{},
		Progress:     counter,
		Metrics:      rec,
		Log:          ix.log,
	}
	wr := &writer.Writer{Dict: d, Insertions: insertions, Log: ix.log}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(ix.quit.check) })
	for i := 0; i < workers; i++ {
		workerID := i
		g.Go(func() error { return pool.Run(workerID, ix.quit.check) })
	}
	g.Go(func() error { return wr.Run() })

	monitorCtx, cancelMonitor := context.WithCancel(gctx)
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		monitor := &progress.Monitor{Counter: counter, Interval: progressInterval, Log: ix.log}
		_ = monitor.Run(monitorCtx)
	}()

	runErr := g.Wait()
	cancelMonitor()
	<-monitorDone
	if runErr != nil {
		return fmt.Errorf("logpi: pipeline failed for %s: %w", path, runErr)
	}

	out, err := ix.openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	if rec != nil {
		snap := rec.Snapshot()
		ix.log.WithFields(logrus.Fields{
			"chunk_p99_ns":     snap.ChunkP99,
			"insertion_p99_ns": snap.InsertionWaitP99,
		}).Debug("logpi: latency snapshot")
	}

	if err := writer.WriteSorted(out.w, d); err != nil {
		return fmt.Errorf("logpi: writing output for %s: %w", path, err)
	}
	return nil
}
