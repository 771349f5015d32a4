// Package dict implements the address dictionary: a concurrently-readable,
// single-writer hash table keyed by canonical address string, backed by an
// open-chained bucket array sized to a prime from a fixed growth table.
//
// Concurrency model: Lookup takes the table's read lock; InsertNew and
// Rehash take its write lock. Exactly one goroutine — the writer stage — is
// ever expected to call InsertNew, so writers never contend with each other;
// a Lookup waits only while an insert or a rehash holds the write lock. The
// hash function is
// cespare/xxhash/v2's 64-bit Sum64, computed once per address and cached in
// its entry for O(1) rehash (no string re-hashing).
package dict

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"logpi/internal/locarray"
)

// ErrMaxEntries is returned when inserting would exceed MaxEntries, the
// dictionary's cap on distinct addresses; exceeding it aborts the run.
var ErrMaxEntries = errors.New("dict: MAX_ENTRIES exceeded")

// MaxEntries is the hard cap on distinct addresses a dictionary will hold.
// Exceeding it is a fatal condition for the whole run.
const MaxEntries = 200_000_000

// loadFactorCheckInterval amortizes the load-factor evaluation so it runs
// every K insertions instead of every insertion.
const loadFactorCheckInterval = 4096

const rehashLoadFactor = 0.8

// ThreadLocations is one worker's contribution to a PerAddressData: its
// lazily-created location array and running count.
type ThreadLocations struct {
	Locations *locarray.Array
	Count     uint64
}

// PerAddressData holds every location recorded for one distinct address,
// partitioned per worker thread so workers never contend with each other
// when appending.
type PerAddressData struct {
	TotalCount  uint64 // atomic; sum of per-thread counts, for cheap readout
	MaxThreads  int
	ThreadData  []ThreadLocations
	threadMu    []sync.Mutex // guards ThreadData[t]'s lazy create, append, and count
	lastSeen    int64        // unix nanos, best-effort diagnostics only
	accessCount uint64       // best-effort diagnostics only
}

func newPerAddressData(maxThreads int) *PerAddressData {
	return &PerAddressData{
		MaxThreads: maxThreads,
		ThreadData: make([]ThreadLocations, maxThreads),
		threadMu:   make([]sync.Mutex, maxThreads),
	}
}

// Append records a (line, field) occurrence for this address under the
// given worker id, lazily creating that worker's location array on first
// use. threadMu[workerID] guards the entire lazy-create-then-append
// sequence, including the per-slot Count update, so it is safe to call
// concurrently for the same workerID from more than one goroutine — which
// happens in practice, since the writer's race-resolution path calls
// Append(req.WorkerID, ...) on behalf of the originating worker while that
// worker may concurrently call Append with its own id for a later line.
func (p *PerAddressData) Append(workerID int, line uint64, field uint16) error {
	p.threadMu[workerID].Lock()
	defer p.threadMu[workerID].Unlock()

	if p.ThreadData[workerID].Locations == nil {
		p.ThreadData[workerID].Locations = locarray.New(0)
	}
	arr := p.ThreadData[workerID].Locations

	if err := arr.Append(line, field); err != nil {
		return err
	}
	p.ThreadData[workerID].Count++
	atomic.AddUint64(&p.TotalCount, 1)
	return nil
}

func (p *PerAddressData) touch() {
	atomic.StoreInt64(&p.lastSeen, time.Now().UnixNano())
	atomic.AddUint64(&p.accessCount, 1)
}

type entry struct {
	key  string
	hash uint64
	data *PerAddressData
	next *entry
}

// Dictionary is the concurrent address -> PerAddressData map.
type Dictionary struct {
	mu           sync.RWMutex
	buckets      []*entry
	size         uint64
	totalRecords uint64
	maxChainLen  int
	tableCapped  bool
	insertCount  uint64
	maxThreads   int
	log          *logrus.Logger
}

// New creates a Dictionary sized for maxThreads per-address location arrays
// (one per worker in the pool).
func New(maxThreads int, log *logrus.Logger) *Dictionary {
	if log == nil {
		log = logrus.New()
	}
	size := growthTable[0]
	return &Dictionary{
		buckets:    make([]*entry, size),
		size:       size,
		maxThreads: maxThreads,
		log:        log,
	}
}

func hashOf(addr string) uint64 {
	return xxhash.Sum64String(addr)
}

// Lookup returns the PerAddressData for addr, or (nil, false) if it is not
// present. It takes the dictionary's shared read lock and opportunistically
// updates non-authoritative diagnostics (last_seen, access_count) on hit.
func (d *Dictionary) Lookup(addr string) (*PerAddressData, bool) {
	h := hashOf(addr)
	d.mu.RLock()
	defer d.mu.RUnlock()
	e := d.buckets[h%d.size]
	for e != nil {
		if e.hash == h && e.key == addr {
			e.data.touch()
			return e.data, true
		}
		e = e.next
	}
	return nil, false
}

// InsertNew inserts a brand-new address, seeded with one location from
// (workerID, line, field). If addr was concurrently inserted by a prior
// request already processed by the writer (the lookup-then-insert race
// between worker reads and writer inserts), InsertNew detects this under
// its own write lock and returns the existing entry with inserted=false;
// the caller (the writer stage) is then responsible for routing the
// location into the existing entry instead of double-counting.
func (d *Dictionary) InsertNew(addr string, workerID int, line uint64, field uint16) (data *PerAddressData, inserted bool, err error) {
	h := hashOf(addr)

	d.mu.Lock()
	defer d.mu.Unlock()

	bucket := h % d.size
	for e := d.buckets[bucket]; e != nil; e = e.next {
		if e.hash == h && e.key == addr {
			return e.data, false, nil
		}
	}

	if d.totalRecords >= MaxEntries {
		return nil, false, ErrMaxEntries
	}

	pad := newPerAddressData(d.maxThreads)
	if err := pad.Append(workerID, line, field); err != nil {
		// the address's very first location didn't fit a fresh array;
		// this can only happen if the ceiling is pathologically small.
		d.log.WithError(err).Warn("dict: failed to seed new entry's first location")
	}

	e := &entry{key: addr, hash: h, data: pad, next: d.buckets[bucket]}
	d.buckets[bucket] = e
	d.totalRecords++
	d.insertCount++

	if d.insertCount%loadFactorCheckInterval == 0 {
		d.maybeRehashLocked()
	}

	return pad, true, nil
}

// loadFactor returns totalRecords/size without locking; callers must hold
// at least the read lock.
func (d *Dictionary) loadFactor() float64 {
	return float64(d.totalRecords) / float64(d.size)
}

// maybeRehashLocked checks the load factor and grows the bucket array to
// the next prime if it exceeds rehashLoadFactor. Caller must hold the write
// lock.
func (d *Dictionary) maybeRehashLocked() {
	if d.loadFactor() <= rehashLoadFactor {
		return
	}
	if d.size >= MaxTableSize {
		if !d.tableCapped {
			d.tableCapped = true
			d.log.Warn("dict: MAX_TABLE_SIZE reached, continuing with degraded load factor")
		}
		return
	}
	d.rehashLocked()
}

// rehashLocked redistributes all entries into a newly-sized bucket array
// using their already-computed hash values (no string re-hashing). Caller
// must hold the write lock.
func (d *Dictionary) rehashLocked() {
	newSize := nextPrime(d.size)
	newBuckets := make([]*entry, newSize)
	maxChain := 0
	for _, head := range d.buckets {
		for e := head; e != nil; {
			next := e.next
			b := e.hash % newSize
			e.next = newBuckets[b]
			newBuckets[b] = e
			e = next
		}
	}
	for _, head := range newBuckets {
		n := 0
		for e := head; e != nil; e = e.next {
			n++
		}
		if n > maxChain {
			maxChain = n
		}
	}
	d.buckets = newBuckets
	d.size = newSize
	d.maxChainLen = maxChain
	d.log.WithFields(logrus.Fields{"new_size": newSize, "max_chain": maxChain}).Debug("dict: rehashed")
}

// MaxChainLen returns the longest bucket chain observed at the last rehash,
// a diagnostic-only figure.
func (d *Dictionary) MaxChainLen() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.maxChainLen
}

// Len returns the number of distinct addresses currently stored.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return int(d.totalRecords)
}

// Each calls fn once per (address, PerAddressData) pair in traversal order
// (unspecified; callers that care about output order must sort — see
// internal/writer). It is only safe to call after all writer activity has
// stopped.
func (d *Dictionary) Each(fn func(addr string, data *PerAddressData)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, head := range d.buckets {
		for e := head; e != nil; e = e.next {
			fn(e.key, e.data)
		}
	}
}
