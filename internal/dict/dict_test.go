package dict

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndLookup(t *testing.T) {
	d := New(4, nil)
	_, found := d.Lookup("10.0.0.1")
	require.False(t, found)

	pad, inserted, err := d.InsertNew("10.0.0.1", 0, 1, 2)
	require.NoError(t, err)
	require.True(t, inserted)
	require.EqualValues(t, 1, pad.TotalCount)

	got, found := d.Lookup("10.0.0.1")
	require.True(t, found)
	require.Same(t, pad, got)
}

func TestInsertNewRaceResolution(t *testing.T) {
	d := New(2, nil)

	pad1, inserted1, err := d.InsertNew("10.0.0.1", 0, 1, 1)
	require.NoError(t, err)
	require.True(t, inserted1)

	// simulate a duplicate insertion request for the same address that
	// raced ahead of the writer noticing the first insert.
	pad2, inserted2, err := d.InsertNew("10.0.0.1", 1, 2, 1)
	require.NoError(t, err)
	require.False(t, inserted2, "second insert of same address must be detected as a race, not a fresh insert")
	require.Same(t, pad1, pad2)
}

func TestRehashPreservesAllEntries(t *testing.T) {
	d := New(1, nil)
	const n = 5000
	for i := 0; i < n; i++ {
		addr := addrFor(i)
		_, inserted, err := d.InsertNew(addr, 0, uint64(i), 1)
		require.NoError(t, err)
		require.True(t, inserted)
	}
	require.Equal(t, n, d.Len())
	require.Greater(t, d.size, growthTable[0], "table should have grown past its initial size")

	for i := 0; i < n; i++ {
		_, found := d.Lookup(addrFor(i))
		require.True(t, found, "entry %d lost across rehash", i)
	}
}

func TestEachVisitsEveryEntry(t *testing.T) {
	d := New(1, nil)
	const n = 1000
	for i := 0; i < n; i++ {
		_, _, err := d.InsertNew(addrFor(i), 0, uint64(i), 1)
		require.NoError(t, err)
	}
	seen := make(map[string]bool)
	d.Each(func(addr string, data *PerAddressData) {
		seen[addr] = true
	})
	require.Len(t, seen, n)
}

func TestConcurrentLookupsDuringInserts(t *testing.T) {
	d := New(4, nil)
	const n = 2000
	for i := 0; i < n/2; i++ {
		_, _, err := d.InsertNew(addrFor(i), 0, uint64(i), 1)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n/2; i++ {
				d.Lookup(addrFor(i))
			}
		}()
	}
	for i := n / 2; i < n; i++ {
		_, _, err := d.InsertNew(addrFor(i), 0, uint64(i), 1)
		require.NoError(t, err)
	}
	wg.Wait()
	require.Equal(t, n, d.Len())
}

func addrFor(i int) string {
	return "10.0." + itoa(i/256) + "." + itoa(i%256)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := [3]byte{}
	n := 0
	for i > 0 {
		digits[n] = byte('0' + i%10)
		i /= 10
		n++
	}
	out := make([]byte, n)
	for j := 0; j < n; j++ {
		out[j] = digits[n-1-j]
	}
	return string(out)
}
