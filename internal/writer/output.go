package writer

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"sync/atomic"

	"logpi/internal/dict"
	"logpi/internal/locarray"
)

// record is one address's entry as collected for the sorted output pass.
type record struct {
	address string
	count   uint64
	data    *dict.PerAddressData
}

// WriteSorted performs the sorted output writer: it traverses the
// finished Dictionary once, single-threaded, after the Writer has exited,
// and emits newline-terminated "ADDRESS,COUNT,LINE:FIELD,..." records sorted
// by (count desc, address asc).
func WriteSorted(w io.Writer, d *dict.Dictionary) error {
	records := make([]record, 0, d.Len())
	d.Each(func(addr string, data *dict.PerAddressData) {
		records = append(records, record{
			address: addr,
			count:   atomic.LoadUint64(&data.TotalCount),
			data:    data,
		})
	})

	sort.Slice(records, func(i, j int) bool {
		if records[i].count != records[j].count {
			return records[i].count > records[j].count
		}
		return records[i].address < records[j].address
	})

	bw := bufio.NewWriter(w)
	var buf []byte
	for _, rec := range records {
		arrays := sortedThreadArrays(rec.data)

		buf = buf[:0]
		buf = append(buf, rec.address...)
		buf = append(buf, ',')
		buf = strconv.AppendUint(buf, rec.count, 10)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
		if err := mergeWriteLocations(bw, arrays); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// sortedThreadArrays sorts each per-thread location array in place and
// returns only the non-empty ones, ready for the N-way merge.
func sortedThreadArrays(data *dict.PerAddressData) [][]locarray.Location {
	out := make([][]locarray.Location, 0, len(data.ThreadData))
	for _, td := range data.ThreadData {
		if td.Locations == nil || td.Locations.Len() == 0 {
			continue
		}
		out = append(out, td.Locations.SortedInPlace())
	}
	return out
}

// mergeWriteLocations performs the N-way merge: at each step, pick the
// smallest (line, field) across all cursors, advance it, and write
// ",LINE:FIELD" (1-based line, field already 1-based as emitted by the
// tokenizer). Linear in N per pair; no heap, no auxiliary allocation beyond
// the cursor slice, acceptable since N is bounded by the worker pool size.
func mergeWriteLocations(bw *bufio.Writer, arrays [][]locarray.Location) error {
	cursors := make([]int, len(arrays))
	var buf []byte
	for {
		minIdx := -1
		for i, arr := range arrays {
			if cursors[i] >= len(arr) {
				continue
			}
			if minIdx == -1 || lessLocation(arr[cursors[i]], arrays[minIdx][cursors[minIdx]]) {
				minIdx = i
			}
		}
		if minIdx == -1 {
			return nil
		}
		loc := arrays[minIdx][cursors[minIdx]]
		cursors[minIdx]++

		buf = buf[:0]
		buf = append(buf, ',')
		buf = strconv.AppendUint(buf, loc.Line+1, 10)
		buf = append(buf, ':')
		buf = strconv.AppendUint(buf, uint64(loc.Field), 10)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
}

func lessLocation(a, b locarray.Location) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Field < b.Field
}
