// Package checksum provides the checksums zcheck verifies and uses for framing.
//
// This package exposes:
//   - CRC32 (IEEE, the zlib/gzip polynomial) and Adler32, with zlib-style running updates
//   - CRC32C (Castagnoli) with masking for stored values
//   - XXH3 and XXHash64 64-bit hashes
//
// The algorithms come from hash/crc32, hash/adler32, github.com/zeebo/xxh3 and
// github.com/cespare/xxhash/v2. Initial values match zlib: CRC32 of no bytes is 0,
// Adler32 of no bytes is 1.
package checksum

import (
	"encoding"
	"encoding/binary"
	"hash/adler32"
	"hash/crc32"
)

// InitialCRC32 is the CRC32 of zero bytes.
const InitialCRC32 uint32 = 0

// InitialAdler32 is the Adler32 of zero bytes.
const InitialAdler32 uint32 = 1

// CRC32 computes the IEEE CRC32 of data.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// ExtendCRC32 computes the CRC32 of concat(A, data) where crc is the CRC32 of A.
func ExtendCRC32(crc uint32, data []byte) uint32 {
	return crc32.Update(crc, crc32.IEEETable, data)
}

// Adler32 computes the Adler32 checksum of data.
func Adler32(data []byte) uint32 {
	return adler32.Checksum(data)
}

// ExtendAdler32 computes the Adler32 of concat(A, data) where adler is the Adler32 of A.
//
// hash/adler32 has no update function, so the running value is loaded into a
// digest through its marshaled state (magic prefix followed by the big-endian sum).
// The state comes from the digest it is loaded back into. Marshal and unmarshal
// fail only if hash/adler32 changes that format, never on caller input.
func ExtendAdler32(adler uint32, data []byte) uint32 {
	if len(data) == 0 {
		return adler
	}
	d := adler32.New()
	state, err := d.(encoding.BinaryMarshaler).MarshalBinary()
	if err != nil {
		panic("checksum: adler32 marshal: " + err.Error())
	}
	binary.BigEndian.PutUint32(state[len(state)-4:], adler)
	if err := d.(encoding.BinaryUnmarshaler).UnmarshalBinary(state); err != nil {
		panic("checksum: adler32 unmarshal: " + err.Error())
	}
	_, _ = d.Write(data)
	return d.Sum32()
}
