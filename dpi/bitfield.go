package dpi

import (
	"math/bits"

	"github.com/pkg/errors"
)

// Popcount returns the number of set bits in v.
func Popcount(v uint64) int {
	return bits.OnesCount64(v)
}

// BinaryString renders v as a binary-digit string of exactly width
// characters, most-significant bit first.
func BinaryString(v uint64, width int) string {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = '0' + byte(v&1)
		v >>= 1
	}
	return string(buf)
}

// Decompose splits raw into count equal-width sub-values, most-significant
// group first. totalBits must divide evenly by count; schema validation
// rejects declarations that would not, and direct callers get an error
// rather than silent truncation.
func Decompose(raw uint64, totalBits, count int) ([]uint64, error) {
	if count < 1 {
		return nil, errors.Errorf("invalid sub-bitfield count %d", count)
	}
	if totalBits < 1 || totalBits > 64 {
		return nil, errors.Errorf("invalid bit width %d", totalBits)
	}
	if totalBits%count != 0 {
		return nil, errors.Errorf("%d bits do not divide evenly into %d groups", totalBits, count)
	}

	groupBits := totalBits / count
	mask := uint64(1)<<uint(groupBits) - 1
	out := make([]uint64, count)
	for i := 0; i < count; i++ {
		shift := uint((count - 1 - i) * groupBits)
		out[i] = (raw >> shift) & mask
	}
	return out, nil
}
