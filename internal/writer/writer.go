package writer

import (
	"github.com/sirupsen/logrus"

	"logpi/internal/dict"
)

// Writer drains the InsertionQueue on a single goroutine, the sole mutator
// of the Dictionary. Isolating all inserts to one goroutine is what
// lets Dictionary.Lookup take only a read lock on the hot path.
type Writer struct {
	Dict       *dict.Dictionary
	Insertions *InsertionQueue
	Log        *logrus.Logger
}

// Run processes insertion batches until the queue closes (every worker has
// called InsertionQueue.ProducerDone). An InsertNew error (ErrMaxEntries,
// the distinct-address cap) is fatal: integrity cannot be preserved partway, so the
// process aborts via Log.Fatal rather than returning and letting the output
// stage run over a partially-built index.
func (w *Writer) Run() error {
	for batch := range w.Insertions.Batches() {
		for _, req := range batch {
			pad, inserted, err := w.Dict.InsertNew(req.Address, req.WorkerID, req.Line, req.Field)
			if err != nil {
				w.Log.WithFields(logrus.Fields{
					"address": req.Address,
				}).WithError(err).Fatal("writer: dictionary insert failed, aborting")
				return err
			}
			if inserted {
				continue
			}
			// race resolution: a duplicate request for an address another
			// request already created reaches here;
			// route this location into the entry InsertNew found instead
			// of treating it as a fresh address.
			if appendErr := pad.Append(req.WorkerID, req.Line, req.Field); appendErr != nil {
				w.Log.WithFields(logrus.Fields{"address": req.Address}).WithError(appendErr).Warn(
					"writer: dropped a location, array ceiling reached")
			}
		}
	}
	return nil
}
