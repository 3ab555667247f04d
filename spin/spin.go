// Package spin implements the fixed-width 128-bit packed spin
// configuration used as the key of the sparse quantum state: up to 112
// spins plus a length, with O(1) equality, hashing, and indexed access.
package spin

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// MaxLen is the largest number of spins a Key can hold: 14 payload bytes
// times 8 bits.
const MaxLen = 14 * 8

// Key is a bit-packed spin-½ configuration. Storage is exactly 16 bytes:
// 14 payload bytes (bit i lives at bit 7-(i%8) of byte i/8, big-endian
// within the byte) followed by a 16-bit big-endian length. Bits beyond
// Len are always zero, which makes equality a plain byte compare.
type Key struct {
	data [16]byte
}

// New builds a Key from a sequence of 0/1 values. It panics if len(bits)
// exceeds MaxLen or any value is not 0 or 1 — both are programming errors
// at the call site, not expected runtime conditions.
func New(bits []byte) Key {
	if len(bits) > MaxLen {
		panic(fmt.Sprintf("spin: New: length %d exceeds MaxLen %d", len(bits), MaxLen))
	}
	var k Key
	for i, b := range bits {
		if b != 0 && b != 1 {
			panic(fmt.Sprintf("spin: New: bit %d is %d, want 0 or 1", i, b))
		}
		if b == 1 {
			k.set(i, 1)
		}
	}
	binary.BigEndian.PutUint16(k.data[14:16], uint16(len(bits)))
	return k
}

// Len returns the number of spins held.
func (k Key) Len() int {
	return int(binary.BigEndian.Uint16(k.data[14:16]))
}

func (k Key) checkIndex(i int) {
	if i < 0 || i >= k.Len() {
		panic(fmt.Sprintf("spin: index %d out of range [0, %d)", i, k.Len()))
	}
}

// At returns the spin at index i (0 for down, 1 for up). i must satisfy
// 0 <= i < Len.
func (k Key) At(i int) byte {
	k.checkIndex(i)
	chunk, rest := i/8, i%8
	return (k.data[chunk] >> (7 - rest)) & 1
}

// Set writes the spin at index i. i must satisfy 0 <= i < Len.
func (k *Key) Set(i int, v byte) {
	k.checkIndex(i)
	chunk, rest := i/8, i%8
	mask := byte(1) << (7 - rest)
	if v&1 == 1 {
		k.data[chunk] |= mask
	} else {
		k.data[chunk] &^= mask
	}
}

// Flip toggles the spin at index i. i must satisfy 0 <= i < Len.
func (k *Key) Flip(i int) {
	k.checkIndex(i)
	chunk, rest := i/8, i%8
	k.data[chunk] ^= byte(1) << (7 - rest)
}

// Flipped returns a copy of k with the spins at the given indices toggled.
func (k Key) Flipped(idxs ...int) Key {
	out := k
	for _, i := range idxs {
		out.Flip(i)
	}
	return out
}

// Equal reports whether k and other have the same length and bits. This
// holds byte-wise over the full 16-byte storage because padding bits
// beyond Len are always zero.
func (k Key) Equal(other Key) bool {
	return k.data == other.data
}

// Hash combines the two 64-bit halves of the storage via xxhash, giving a
// uniform, deterministic-within-process digest from two word loads and a
// finalizing mix — the hot path the sharded map relies on.
func (k Key) Hash() uint64 {
	return xxhash.Sum64(k.data[:])
}

// Bytes returns the raw 16-byte storage, first byte first. shard
// assignment (state.State) reads the top bits of Bytes()[0].
func (k Key) Bytes() [16]byte {
	return k.data
}

// Bits returns the spin values as a freshly allocated []byte, the inverse
// of New: New(k.Bits()).Equal(k) always holds.
func (k Key) Bits() []byte {
	n := k.Len()
	bits := make([]byte, n)
	for i := 0; i < n; i++ {
		bits[i] = k.At(i)
	}
	return bits
}

// String renders k as a contiguous run of '0'/'1' characters, matching
// the text state grammar of ioformat.
func (k Key) String() string {
	n := k.Len()
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		if k.At(i) == 1 {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}

func (k *Key) set(i int, v byte) {
	chunk, rest := i/8, i%8
	mask := byte(1) << (7 - rest)
	if v&1 == 1 {
		k.data[chunk] |= mask
	} else {
		k.data[chunk] &^= mask
	}
}

// Parse decodes a bitstring of '0'/'1' characters into a Key. It returns
// an error (rather than panicking) because the input is untrusted text,
// unlike New's caller-controlled []byte.
func Parse(s string) (Key, error) {
	if len(s) > MaxLen {
		return Key{}, fmt.Errorf("spin: Parse: bitstring of length %d exceeds MaxLen %d", len(s), MaxLen)
	}
	bits := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
			bits[i] = 0
		case '1':
			bits[i] = 1
		default:
			return Key{}, fmt.Errorf("spin: Parse: byte %q at index %d is not '0' or '1'", s[i], i)
		}
	}
	return New(bits), nil
}
