// Package mathutil includes important helpers for math such as integer division.
package mathutil

import (
	"github.com/thomaso-mirodin/intmath/u64"
)

// Min returns the smaller of a and b.
func Min(a uint64, b uint64) uint64 {
	return u64.Min(a, b)
}

// Max returns the larger of a and b.
func Max(a uint64, b uint64) uint64 {
	return u64.Max(a, b)
}

// CeilDiv32 divides the quotient and rounds up the result.
func CeilDiv32(a uint32, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
