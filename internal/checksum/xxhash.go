package checksum

import (
	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"
)

// XXH3 computes the 64-bit XXH3 hash of data.
func XXH3(data []byte) uint64 {
	return xxh3.Hash(data)
}

// XXHash64 computes the 64-bit XXHash of data with seed 0.
func XXHash64(data []byte) uint64 {
	return xxhash.Sum64(data)
}
