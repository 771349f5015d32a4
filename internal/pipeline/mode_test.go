package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"logpi/internal/config"
)

func TestResolveWorkerCountSerialForcesOne(t *testing.T) {
	ix := New(config.Config{Serial: true}, testLogger())
	require.Equal(t, 1, ix.resolveWorkerCount(true, 1<<30))
}

func TestResolveWorkerCountSmallFileIsSerial(t *testing.T) {
	ix := New(config.Config{}, testLogger())
	require.Equal(t, 1, ix.resolveWorkerCount(true, 1<<10))
}

func TestResolveWorkerCountNonSeekableIsSerial(t *testing.T) {
	ix := New(config.Config{}, testLogger())
	require.Equal(t, 1, ix.resolveWorkerCount(false, 1<<30))
}

func TestResolveWorkerCountExplicitOverride(t *testing.T) {
	ix := New(config.Config{Workers: 5}, testLogger())
	require.Equal(t, 5, ix.resolveWorkerCount(false, 0))
}

func TestResolveWorkerCountLargeSeekableFileIsBoundedBetween2And8(t *testing.T) {
	ix := New(config.Config{}, testLogger())
	w := ix.resolveWorkerCount(true, 1<<30)
	if w != 1 { // only 1 when runtime.NumCPU() == 1 on this machine
		require.GreaterOrEqual(t, w, 2)
		require.LessOrEqual(t, w, 8)
	}
}
