package writer

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"logpi/internal/dict"
)

func newTestWriter(maxThreads int) (*Writer, *InsertionQueue) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel) // keep test output quiet
	d := dict.New(maxThreads, log)
	q := NewInsertionQueue(8, 1)
	return &Writer{Dict: d, Insertions: q, Log: log}, q
}

func TestWriterCreatesNewEntry(t *testing.T) {
	w, q := newTestWriter(2)
	done := make(chan error, 1)
	go func() { done <- w.Run() }()

	q.PushBatch([]InsertionRequest{{Address: "10.0.0.1", WorkerID: 0, Line: 0, Field: 2}})
	q.ProducerDone()
	require.NoError(t, <-done)

	pad, found := w.Dict.Lookup("10.0.0.1")
	require.True(t, found)
	require.EqualValues(t, 1, pad.TotalCount)
}

func TestWriterResolvesRaceAsUpdate(t *testing.T) {
	w, q := newTestWriter(2)
	done := make(chan error, 1)
	go func() { done <- w.Run() }()

	// two workers both saw "not found" for the same address before either
	// insert landed; both requests reach the writer in one batch.
	q.PushBatch([]InsertionRequest{
		{Address: "10.0.0.1", WorkerID: 0, Line: 0, Field: 2},
		{Address: "10.0.0.1", WorkerID: 1, Line: 1, Field: 2},
	})
	q.ProducerDone()
	require.NoError(t, <-done)

	pad, found := w.Dict.Lookup("10.0.0.1")
	require.True(t, found)
	require.EqualValues(t, 2, pad.TotalCount)
	require.Equal(t, 1, pad.ThreadData[0].Locations.Len())
	require.Equal(t, 1, pad.ThreadData[1].Locations.Len())
}

func TestWriterMultipleBatchesFromMultipleProducers(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	d := dict.New(2, log)
	q := NewInsertionQueue(8, 2)
	w := &Writer{Dict: d, Insertions: q, Log: log}

	done := make(chan error, 1)
	go func() { done <- w.Run() }()

	q.PushBatch([]InsertionRequest{{Address: "10.0.0.1", WorkerID: 0, Line: 0, Field: 1}})
	q.ProducerDone()
	q.PushBatch([]InsertionRequest{{Address: "10.0.0.2", WorkerID: 1, Line: 0, Field: 1}})
	q.ProducerDone()

	require.NoError(t, <-done)
	require.Equal(t, 2, w.Dict.Len())
}
