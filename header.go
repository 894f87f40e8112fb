package listfile

import (
	"errors"
	"fmt"
	"io"

	"github.com/romange/listfile/internal/varint"
)

const (
	flagHasMetadata     = 1 << 0
	flagUsesCompression = 1 << 1
)

// ErrBadMagic indicates the file does not begin with the listfile magic.
var ErrBadMagic = errors.New("listfile: bad magic")

// ErrTruncatedHeader indicates the file ended before a complete header could
// be read.
var ErrTruncatedHeader = errors.New("listfile: truncated header")

// header is the decoded form of a listfile's fixed prefix.
type header struct {
	multiplier  uint8
	compression bool
	meta        *MetaMap
}

// encodeHeader serializes h, including its metadata block if h.meta is
// non-empty.
func encodeHeader(h header) []byte {
	flags := byte(0)
	entries := h.meta.entries()
	if len(entries) > 0 {
		flags |= flagHasMetadata
	}
	if h.compression {
		flags |= flagUsesCompression
	}

	out := make([]byte, 0, 10)
	out = append(out, Magic...)
	out = append(out, h.multiplier, flags)

	if len(entries) == 0 {
		return out
	}

	var body []byte
	for _, kv := range entries {
		body = varint.AppendLengthPrefixed(body, kv[0])
		body = varint.AppendLengthPrefixed(body, kv[1])
	}
	out = varint.AppendFixed32(out, uint32(len(body)))
	out = append(out, body...)
	return out
}

// decodeHeader reads and parses a header from r, returning the decoded
// header and the total number of bytes consumed (the offset of the first
// block).
func decodeHeader(r io.Reader) (header, int64, error) {
	prefix := make([]byte, len(Magic)+2)
	if _, err := io.ReadFull(r, prefix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return header{}, 0, ErrTruncatedHeader
		}
		return header{}, 0, err
	}
	if string(prefix[:len(Magic)]) != Magic {
		return header{}, 0, ErrBadMagic
	}

	h := header{
		multiplier:  prefix[len(Magic)],
		compression: prefix[len(Magic)+1]&flagUsesCompression != 0,
	}
	consumed := int64(len(prefix))

	if prefix[len(Magic)+1]&flagHasMetadata == 0 {
		h.meta = NewMetaMap()
		return h, consumed, nil
	}

	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return header{}, 0, ErrTruncatedHeader
	}
	consumed += 4
	size := varint.Fixed32(sizeBuf[:])

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return header{}, 0, ErrTruncatedHeader
	}
	consumed += int64(size)

	meta := NewMetaMap()
	pos := 0
	for pos < len(body) {
		key, n, err := varint.LengthPrefixed(body[pos:])
		if err != nil {
			return header{}, 0, fmt.Errorf("listfile: decode metadata key: %w", err)
		}
		pos += n
		value, n, err := varint.LengthPrefixed(body[pos:])
		if err != nil {
			return header{}, 0, fmt.Errorf("listfile: decode metadata value: %w", err)
		}
		pos += n
		if err := meta.Set(string(key), value); err != nil {
			return header{}, 0, err
		}
	}
	h.meta = meta
	return h, consumed, nil
}

// blockSize returns the on-disk block size for multiplier m.
func blockSize(m uint8) int {
	return blockUnit * int(m)
}
