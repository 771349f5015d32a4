package worker

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"logpi/internal/chunk"
	"logpi/internal/dict"
	"logpi/internal/progress"
	"logpi/internal/writer"
)

func newTestPool(t *testing.T, queueCap int) (*Pool, *chunk.Queue, *writer.Writer) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	q := chunk.NewQueue(queueCap)
	d := dict.New(1, log)
	insertions := writer.NewInsertionQueue(8, 1)

	p := &Pool{
		Queue:      q,
		Dict:       d,
		Insertions: insertions,
		Progress:   &progress.Counter{},
		Log:        log,
	}
	w := &writer.Writer{Dict: d, Insertions: insertions, Log: log}
	return p, q, w
}

func runToCompletion(t *testing.T, p *Pool, q *chunk.Queue, w *writer.Writer, lines ...string) {
	t.Helper()
	var buf []byte
	for _, l := range lines {
		buf = append(buf, l...)
		buf = append(buf, '\n')
	}
	q.Push(&chunk.Chunk{Buffer: buf, StartLineNumber: 0, CarryForwardLines: 0})
	q.Close()

	writerDone := make(chan error, 1)
	go func() { writerDone <- w.Run() }()

	require.NoError(t, p.Run(0, nil))
	require.NoError(t, <-writerDone)
}

func TestWorkerScenario1(t *testing.T) {
	p, q, w := newTestPool(t, 2)
	runToCompletion(t, p, q, w, "a 10.0.0.1 b", "c 10.0.0.1 d")

	pad, found := p.Dict.Lookup("10.0.0.1")
	require.True(t, found)
	require.EqualValues(t, 2, pad.TotalCount)
}

func TestWorkerIgnoresNonAddressFields(t *testing.T) {
	p, q, w := newTestPool(t, 2)
	runToCompletion(t, p, q, w, "hello world foo bar")
	require.Equal(t, 0, p.Dict.Len())
}

func TestWorkerMixedTypesScenario(t *testing.T) {
	p, q, w := newTestPool(t, 2)
	runToCompletion(t, p, q, w,
		"u 192.168.1.1 v aa:bb:cc:dd:ee:ff w ::1 x",
		"y 192.168.1.1 z",
	)

	pad, found := p.Dict.Lookup("192.168.1.1")
	require.True(t, found)
	require.EqualValues(t, 2, pad.TotalCount)

	_, found = p.Dict.Lookup("aa:bb:cc:dd:ee:ff")
	require.True(t, found)
	_, found = p.Dict.Lookup("::1")
	require.True(t, found)
}

func TestWorkerNoNewlineTail(t *testing.T) {
	p, q, w := newTestPool(t, 2)
	q.Push(&chunk.Chunk{Buffer: []byte("10.0.0.1"), StartLineNumber: 0})
	q.Close()

	writerDone := make(chan error, 1)
	go func() { writerDone <- w.Run() }()
	require.NoError(t, p.Run(0, nil))
	require.NoError(t, <-writerDone)

	pad, found := p.Dict.Lookup("10.0.0.1")
	require.True(t, found)
	require.EqualValues(t, 1, pad.TotalCount)
	require.Equal(t, []uint64{0}, linesOf(t, pad, 0))
}

func linesOf(t *testing.T, pad *dict.PerAddressData, workerID int) []uint64 {
	t.Helper()
	locs := pad.ThreadData[workerID].Locations.SortedInPlace()
	out := make([]uint64, len(locs))
	for i, l := range locs {
		out[i] = l.Line
	}
	return out
}
