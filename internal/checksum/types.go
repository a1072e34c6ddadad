package checksum

import (
	"fmt"
	"strings"
)

// Type represents the type of checksum algorithm.
type Type uint8

const (
	// TypeNoChecksum means no checksum is used.
	TypeNoChecksum Type = 0
	// TypeCRC32 is the IEEE CRC32 used by zlib and gzip.
	TypeCRC32 Type = 1
	// TypeAdler32 is the Adler32 checksum used by the zlib container.
	TypeAdler32 Type = 2
	// TypeCRC32C is CRC32C (Castagnoli) checksum.
	TypeCRC32C Type = 3
	// TypeXXHash64 is XXHash64 checksum.
	TypeXXHash64 Type = 4
	// TypeXXH3 is XXH3 64-bit checksum.
	TypeXXH3 Type = 5
)

// All lists every computable checksum type in Type order.
var All = []Type{TypeCRC32, TypeAdler32, TypeCRC32C, TypeXXHash64, TypeXXH3}

// String returns a human-readable name for the checksum type.
func (t Type) String() string {
	switch t {
	case TypeNoChecksum:
		return "NoChecksum"
	case TypeCRC32:
		return "CRC32"
	case TypeAdler32:
		return "Adler32"
	case TypeCRC32C:
		return "CRC32C"
	case TypeXXHash64:
		return "XXHash64"
	case TypeXXH3:
		return "XXH3"
	default:
		return "Unknown"
	}
}

// Width returns the number of significant bits in values of type t.
func (t Type) Width() int {
	switch t {
	case TypeXXHash64, TypeXXH3:
		return 64
	case TypeNoChecksum:
		return 0
	default:
		return 32
	}
}

// ParseType resolves a case-insensitive checksum name.
func ParseType(name string) (Type, error) {
	for t := TypeNoChecksum; t <= TypeXXH3; t++ {
		if strings.EqualFold(t.String(), name) {
			return t, nil
		}
	}
	return TypeNoChecksum, fmt.Errorf("unknown checksum type %q", name)
}

// Compute computes a checksum of the given type, widened to 64 bits.
func Compute(t Type, data []byte) uint64 {
	switch t {
	case TypeCRC32:
		return uint64(CRC32(data))
	case TypeAdler32:
		return uint64(Adler32(data))
	case TypeCRC32C:
		return uint64(Value(data))
	case TypeXXHash64:
		return XXHash64(data)
	case TypeXXH3:
		return XXH3(data)
	default:
		// For unsupported types, return 0
		return 0
	}
}

// Format renders sum as "<decimal> (0x<hex>)" zero-padded to the width of t.
func Format(t Type, sum uint64) string {
	if t.Width() == 64 {
		return fmt.Sprintf("%d (0x%016x)", sum, sum)
	}
	return fmt.Sprintf("%d (0x%08x)", sum, sum)
}
