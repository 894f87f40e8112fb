package compression

import (
	"bytes"
	"testing"
)

func TestRoundTripAllMethods(t *testing.T) {
	src := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200)

	for _, m := range []Method{LZ4, ZLIB, Snappy, Zstd} {
		m := m
		t.Run(m.String(), func(t *testing.T) {
			compressed, err := Compress(m, 0, src, nil)
			if err != nil {
				if IsIncompressible(err) {
					t.Skip("compressor reported incompressible input")
				}
				t.Fatalf("Compress: %v", err)
			}
			got, err := Decompress(m, compressed, len(src))
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(got, src) {
				t.Errorf("round trip mismatch for %v", m)
			}
		})
	}
}

func TestNoneIsPassthrough(t *testing.T) {
	src := []byte("verbatim")
	out, err := Compress(None, 0, src, nil)
	if err != nil {
		t.Fatalf("Compress(None): %v", err)
	}
	if !bytes.Equal(out, src) {
		t.Errorf("Compress(None) = %q, want %q", out, src)
	}
	got, err := Decompress(None, out, len(src))
	if err != nil {
		t.Fatalf("Decompress(None): %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Errorf("Decompress(None) = %q, want %q", got, src)
	}
}

func TestDecompressFromPaddedBuffer(t *testing.T) {
	src := bytes.Repeat([]byte("abc"), 2000)
	compressed, err := Compress(LZ4, 0, src, nil)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	padded := append(append([]byte{}, compressed...), make([]byte, 4096)...)
	got, err := Decompress(LZ4, padded[:len(compressed)], len(src))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Error("decompressing an exact-length slice of a padded buffer should still round-trip")
	}
}

func TestIsSupported(t *testing.T) {
	for _, m := range []Method{None, LZ4, ZLIB, Snappy, Zstd} {
		if !m.IsSupported() {
			t.Errorf("%v should be supported", m)
		}
	}
	if Method(200).IsSupported() {
		t.Error("unregistered method should not be supported")
	}
}

func TestCompressBoundNeverUnderestimatesLZ4(t *testing.T) {
	for _, n := range []int{0, 1, 4096, 65536} {
		if got := CompressBound(LZ4, n); got < n {
			t.Errorf("CompressBound(LZ4, %d) = %d, too small", n, got)
		}
	}
}
