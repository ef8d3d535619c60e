// Package bitmask implements the 64-bit permission vector used to express
// both the rights a token carries and the rights a resource requires.
package bitmask

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

// maxBytes is the longest big-endian byte slice a BitMask64 can decode from;
// anything longer cannot fit in 64 bits.
const maxBytes = 8

// ErrTooLong is returned when decoding a byte slice or base64 string longer
// than 8 bytes.
var ErrTooLong = errors.New("bitmask: input exceeds 8 bytes")

// BitMask64 is a 64-bit vector of independent permission bits.
type BitMask64 uint64

// FromInt builds a BitMask64 directly from an integer value.
func FromInt(v uint64) BitMask64 {
	return BitMask64(v)
}

// FromBytes decodes a big-endian byte slice of up to 8 bytes into a
// BitMask64. Shorter slices are treated as left-padded with zero bytes, the
// same convention big.Int.SetBytes uses.
func FromBytes(b []byte) (BitMask64, error) {
	if len(b) > maxBytes {
		return 0, ErrTooLong
	}

	var padded [maxBytes]byte
	copy(padded[maxBytes-len(b):], b)
	return BitMask64(binary.BigEndian.Uint64(padded[:])), nil
}

// FromBase64 decodes a standard base64 string into a BitMask64, following
// the same big-endian, zero-padded convention as FromBytes.
func FromBase64(s string) (BitMask64, error) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return 0, err
	}
	return FromBytes(decoded)
}

// Bytes renders the mask as a big-endian byte slice, trimmed of any leading
// zero bytes beyond the minimum width needed (at least one byte).
func (m BitMask64) Bytes() []byte {
	var full [maxBytes]byte
	binary.BigEndian.PutUint64(full[:], uint64(m))

	i := 0
	for i < maxBytes-1 && full[i] == 0 {
		i++
	}
	out := make([]byte, maxBytes-i)
	copy(out, full[i:])
	return out
}

// Base64 renders the mask as a standard base64 string of its minimal
// big-endian byte representation.
func (m BitMask64) Base64() string {
	return base64.StdEncoding.EncodeToString(m.Bytes())
}

// IsAccessAllowed reports whether the token mask and the resource mask share
// at least one set bit.
func IsAccessAllowed(token, resource BitMask64) bool {
	return token&resource != 0
}

// String renders the mask as a fixed-width 64-character binary string, most
// significant bit first.
func (m BitMask64) String() string {
	return fmt.Sprintf("%064b", uint64(m))
}
