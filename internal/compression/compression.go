// Package compression implements the block compression adapters referenced
// by the log format's compressed-block indicator byte: a pluggable
// {compress, decompress} pair per method, selected by a single byte stored
// at the start of a compressed block.
package compression

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"bytes"
	"io"
)

// Method identifies a block compression algorithm. The zero value, None,
// always means "stored verbatim" and is never written as a compressed-block
// indicator.
type Method uint8

const (
	// None means the block is stored without compression.
	None Method = 0
	// LZ4 selects github.com/pierrec/lz4's raw block format.
	LZ4 Method = 1
	// ZLIB selects github.com/klauspost/compress/zlib.
	ZLIB Method = 2
	// Snappy selects github.com/golang/snappy.
	Snappy Method = 3
	// Zstd selects github.com/klauspost/compress/zstd.
	Zstd Method = 4
)

// String returns a human-readable method name.
func (m Method) String() string {
	switch m {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZLIB:
		return "zlib"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// IsSupported reports whether m is a registered compression method.
func (m Method) IsSupported() bool {
	switch m {
	case None, LZ4, ZLIB, Snappy, Zstd:
		return true
	default:
		return false
	}
}

// CompressBound returns a safe upper bound for the compressed size of n
// bytes under method m, suitable for sizing a scratch buffer.
func CompressBound(m Method, n int) int {
	switch m {
	case LZ4:
		return lz4.CompressBlockBound(n)
	default:
		// zlib/snappy/zstd streams can in the worst case expand input by a
		// small constant factor; this bound is generous for all three.
		return n + n/8 + 128
	}
}

// Compress compresses src using method m at the given level (methods that
// don't support levels ignore it) and returns the compressed bytes. dst is an
// optional buffer: None appends src to it, LZ4 reuses its capacity from index
// 0, and the other methods ignore it and allocate their own output.
func Compress(m Method, level int, src []byte, dst []byte) ([]byte, error) {
	switch m {
	case None:
		return append(dst, src...), nil

	case LZ4:
		buf := dst[:cap(dst)]
		if len(buf) < lz4.CompressBlockBound(len(src)) {
			buf = make([]byte, lz4.CompressBlockBound(len(src)))
		}
		var ht [1 << 16]int
		n, err := lz4.CompressBlock(src, buf, ht[:])
		if err != nil {
			return nil, fmt.Errorf("compression: lz4 compress: %w", err)
		}
		if n == 0 {
			// Incompressible: lz4 signals this by writing nothing.
			return nil, errIncompressible
		}
		return buf[:n], nil

	case ZLIB:
		var buf bytes.Buffer
		w, err := zlib.NewWriterLevel(&buf, clampZlibLevel(level))
		if err != nil {
			return nil, fmt.Errorf("compression: zlib writer: %w", err)
		}
		if _, err := w.Write(src); err != nil {
			return nil, fmt.Errorf("compression: zlib write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("compression: zlib close: %w", err)
		}
		return buf.Bytes(), nil

	case Snappy:
		return snappy.Encode(nil, src), nil

	case Zstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(clampZstdLevel(level)))
		if err != nil {
			return nil, fmt.Errorf("compression: zstd encoder: %w", err)
		}
		out := enc.EncodeAll(src, nil)
		_ = enc.Close()
		return out, nil

	default:
		return nil, fmt.Errorf("compression: unsupported method %s", m)
	}
}

// errIncompressible signals that the compressor produced no output because
// the input didn't compress (used only internally by Compress for LZ4).
var errIncompressible = fmt.Errorf("compression: incompressible")

// IsIncompressible reports whether err indicates the data simply didn't
// compress, as opposed to a real failure.
func IsIncompressible(err error) bool { return err == errIncompressible }

// Decompress decompresses src, which was compressed with method m and must
// hold exactly the compressed bytes (no trailing padding). expectedSize is an
// upper bound on the decompressed length: LZ4 and ZLIB produce at most that
// many bytes, Zstd uses it only as a capacity hint, and Snappy ignores it.
func Decompress(m Method, src []byte, expectedSize int) ([]byte, error) {
	switch m {
	case None:
		return src, nil

	case LZ4:
		dst := make([]byte, expectedSize)
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, fmt.Errorf("compression: lz4 decompress: %w", err)
		}
		return dst[:n], nil

	case ZLIB:
		r, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("compression: zlib reader: %w", err)
		}
		defer func() { _ = r.Close() }()
		out := make([]byte, 0, expectedSize)
		buf := bytes.NewBuffer(out)
		if _, err := io.CopyN(buf, r, int64(expectedSize)); err != nil && err != io.EOF {
			return nil, fmt.Errorf("compression: zlib decompress: %w", err)
		}
		return buf.Bytes(), nil

	case Snappy:
		return snappy.Decode(nil, src)

	case Zstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("compression: zstd decoder: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(src, make([]byte, 0, expectedSize))
		if err != nil {
			return nil, fmt.Errorf("compression: zstd decompress: %w", err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("compression: unsupported method %s", m)
	}
}

func clampZlibLevel(level int) int {
	if level <= 0 {
		return zlib.DefaultCompression
	}
	if level > 9 {
		return 9
	}
	return level
}

func clampZstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 9:
		return zstd.SpeedDefault
	case level <= 15:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}
