package varint

import (
	"bytes"
	"testing"
)

func TestFixed32RoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 255, 256, 65535, 1 << 24, 0xFFFFFFFF}
	for _, v := range cases {
		var buf [4]byte
		PutFixed32(buf[:], v)
		if got := Fixed32(buf[:]); got != v {
			t.Errorf("Fixed32(PutFixed32(%d)) = %d", v, got)
		}
	}
}

func TestVarint32RoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 16383, 16384, 1 << 20, 0xFFFFFFFF}
	for _, v := range cases {
		encoded := AppendVarint32(nil, v)
		got, n, err := Varint32(encoded)
		if err != nil {
			t.Fatalf("Varint32(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("Varint32 round trip: got %d, want %d", got, v)
		}
		if n != len(encoded) {
			t.Errorf("Varint32 consumed %d bytes, encoded length was %d", n, len(encoded))
		}
	}
}

func TestVarint32Truncated(t *testing.T) {
	encoded := AppendVarint32(nil, 1<<20)
	_, _, err := Varint32(encoded[:len(encoded)-1])
	if err != ErrTermination {
		t.Errorf("Varint32(truncated) = %v, want ErrTermination", err)
	}
}

func TestLengthPrefixedRoundTrip(t *testing.T) {
	values := [][]byte{nil, []byte("x"), bytes.Repeat([]byte("y"), 500)}
	var buf []byte
	for _, v := range values {
		buf = AppendLengthPrefixed(buf, v)
	}
	for _, want := range values {
		got, n, err := LengthPrefixed(buf)
		if err != nil {
			t.Fatalf("LengthPrefixed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("LengthPrefixed = %q, want %q", got, want)
		}
		buf = buf[n:]
	}
}

func TestLen(t *testing.T) {
	cases := []struct {
		v    uint64
		want int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
	}
	for _, tc := range cases {
		if got := Len(tc.v); got != tc.want {
			t.Errorf("Len(%d) = %d, want %d", tc.v, got, tc.want)
		}
	}
}

func FuzzVarint32(f *testing.F) {
	f.Add(uint32(0))
	f.Add(uint32(127))
	f.Add(uint32(128))
	f.Add(uint32(0xFFFFFFFF))
	f.Fuzz(func(t *testing.T, v uint32) {
		encoded := AppendVarint32(nil, v)
		got, n, err := Varint32(encoded)
		if err != nil {
			t.Fatalf("Varint32: %v", err)
		}
		if got != v || n != len(encoded) {
			t.Fatalf("round trip mismatch: got (%d, %d), want (%d, %d)", got, n, v, len(encoded))
		}
	})
}
