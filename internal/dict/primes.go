package dict

// growthTable is a fixed sequence of primes, each roughly double the last,
// used to size the dictionary's bucket array. MaxTableSize is the largest
// prime in the table; growing past it triggers the degraded-load-factor
// warning path instead of a further resize.
var growthTable = []uint64{
	53, 97, 193, 389, 769, 1543, 3079, 6151, 12289, 24593,
	49157, 98317, 196613, 393241, 786433, 1572869, 3145739, 6291469,
	12582917, 25165843, 50331653, 100663319, 201326611, 402653189,
	805306457, 1610612741,
}

// MaxTableSize is the largest bucket-array size this dictionary will ever
// grow to.
const MaxTableSize = uint64(1610612741)

// nextPrime returns the smallest entry of growthTable strictly greater than
// current, or MaxTableSize (growthTable's last entry) if current already
// meets or exceeds it.
func nextPrime(current uint64) uint64 {
	for _, p := range growthTable {
		if p > current {
			return p
		}
	}
	return MaxTableSize
}
