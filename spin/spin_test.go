package spin

import (
	"fmt"
	"testing"
)

func TestEqualAndHash(t *testing.T) {
	t.Parallel()
	tests := []struct {
		bits []byte
	}{
		{bits: []byte{}},
		{bits: []byte{0}},
		{bits: []byte{1}},
		{bits: []byte{0, 1, 1, 0, 1}},
		{bits: make([]byte, MaxLen)},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v", test.bits), func(t *testing.T) {
			t.Parallel()
			k := New(test.bits)
			k2 := New(append([]byte{}, test.bits...))
			if !k.Equal(k2) {
				t.Fatalf("copies not equal")
			}
			if k.Hash() != k2.Hash() {
				t.Fatalf("copies hash differently")
			}
		})
	}
}

func TestDistinctBitsAreDistinctKeys(t *testing.T) {
	t.Parallel()
	a := New([]byte{0, 1, 0})
	b := New([]byte{0, 0, 1})
	if a.Equal(b) {
		t.Fatalf("distinct bit patterns compared equal")
	}
}

func TestRoundTripBits(t *testing.T) {
	t.Parallel()
	tests := [][]byte{
		{},
		{1},
		{0, 1, 1, 0, 1, 0, 0, 1, 1, 0, 1},
	}
	for _, bits := range tests {
		t.Run(fmt.Sprintf("%v", bits), func(t *testing.T) {
			t.Parallel()
			k := New(bits)
			got := k.Bits()
			if len(got) != len(bits) {
				t.Fatalf("got %v, want %v", got, bits)
			}
			for i := range bits {
				if got[i] != bits[i] {
					t.Fatalf("got %v, want %v", got, bits)
				}
			}
		})
	}
}

func TestFlip(t *testing.T) {
	t.Parallel()
	k := New([]byte{0, 1, 0})
	k.Flip(0)
	k.Flip(1)
	want := New([]byte{1, 0, 0})
	if !k.Equal(want) {
		t.Fatalf("got %s, want %s", k, want)
	}
}

func TestFlipped(t *testing.T) {
	t.Parallel()
	k := New([]byte{0, 1, 0, 1})
	flipped := k.Flipped(0, 2)
	want := New([]byte{1, 1, 1, 1})
	if !flipped.Equal(want) {
		t.Fatalf("got %s, want %s", flipped, want)
	}
	if !k.Equal(New([]byte{0, 1, 0, 1})) {
		t.Fatalf("Flipped mutated the receiver")
	}
}

func TestParseAndString(t *testing.T) {
	t.Parallel()
	s := "0110101"
	k, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if k.String() != s {
		t.Fatalf("got %s, want %s", k.String(), s)
	}
}

func TestParseRejectsBadChar(t *testing.T) {
	t.Parallel()
	if _, err := Parse("012"); err == nil {
		t.Fatalf("expected an error for a non 0/1 character")
	}
}

func TestParseRejectsTooLong(t *testing.T) {
	t.Parallel()
	long := make([]byte, MaxLen+1)
	for i := range long {
		long[i] = '0'
	}
	if _, err := Parse(string(long)); err == nil {
		t.Fatalf("expected an error for a too-long bitstring")
	}
}

func TestShardByteIsFirstByte(t *testing.T) {
	t.Parallel()
	k := New([]byte{1, 0, 1, 0, 1, 0, 1, 0, 1})
	b := k.Bytes()
	if b[0]>>5 != 5 { // 10101 -> top 3 bits = 101 = 5
		t.Fatalf("got %d, want 5", b[0]>>5)
	}
}

func TestIndexOutOfRangePanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic")
		}
	}()
	k := New([]byte{0, 1})
	_ = k.At(5)
}
