// Package varint provides the fixed-width and variable-length integer
// encodings used throughout the log format: little-endian fixed integers for
// record headers, and base-128 varints for the header's metadata block and
// the array record's packed length prefixes.
package varint

import (
	"encoding/binary"
	"errors"
)

// MaxLen32 is the maximum number of bytes a varint32 can occupy.
const MaxLen32 = 5

// MaxLen64 is the maximum number of bytes a varint64 can occupy.
const MaxLen64 = 10

// ErrTermination is returned when a varint runs out of input before its
// continuation bit clears.
var ErrTermination = errors.New("varint: truncated")

// ErrOverflow is returned when a varint would overflow the target width.
var ErrOverflow = errors.New("varint: overflow")

// PutFixed16 writes a little-endian uint16 into dst.
func PutFixed16(dst []byte, v uint16) { binary.LittleEndian.PutUint16(dst, v) }

// Fixed16 reads a little-endian uint16 from src.
func Fixed16(src []byte) uint16 { return binary.LittleEndian.Uint16(src) }

// PutFixed32 writes a little-endian uint32 into dst.
func PutFixed32(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }

// Fixed32 reads a little-endian uint32 from src.
func Fixed32(src []byte) uint32 { return binary.LittleEndian.Uint32(src) }

// AppendFixed32 appends a little-endian uint32 to dst.
func AppendFixed32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

// PutVarint32 encodes v into dst (which must have at least MaxLen32 bytes)
// and returns the number of bytes written.
func PutVarint32(dst []byte, v uint32) int {
	i := 0
	for v >= 0x80 {
		dst[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	dst[i] = byte(v)
	return i + 1
}

// AppendVarint32 appends v to dst as a varint.
func AppendVarint32(dst []byte, v uint32) []byte {
	var buf [MaxLen32]byte
	n := PutVarint32(buf[:], v)
	return append(dst, buf[:n]...)
}

// Varint32 decodes a varint32 from src, returning the value and the number
// of bytes consumed.
func Varint32(src []byte) (value uint32, n int, err error) {
	for shift := uint(0); shift < 32; shift += 7 {
		if n >= len(src) {
			return 0, 0, ErrTermination
		}
		b := src[n]
		n++
		if b < 0x80 {
			value |= uint32(b) << shift
			return value, n, nil
		}
		value |= uint32(b&0x7f) << shift
	}
	return 0, 0, ErrOverflow
}

// PutVarint64 encodes v into dst (which must have at least MaxLen64 bytes)
// and returns the number of bytes written.
func PutVarint64(dst []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		dst[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	dst[i] = byte(v)
	return i + 1
}

// AppendVarint64 appends v to dst as a varint.
func AppendVarint64(dst []byte, v uint64) []byte {
	var buf [MaxLen64]byte
	n := PutVarint64(buf[:], v)
	return append(dst, buf[:n]...)
}

// Varint64 decodes a varint64 from src, returning the value and the number
// of bytes consumed.
func Varint64(src []byte) (value uint64, n int, err error) {
	for shift := uint(0); shift < 64; shift += 7 {
		if n >= len(src) {
			return 0, 0, ErrTermination
		}
		b := src[n]
		n++
		if b < 0x80 {
			value |= uint64(b) << shift
			return value, n, nil
		}
		value |= uint64(b&0x7f) << shift
	}
	return 0, 0, ErrOverflow
}

// Len returns the number of bytes needed to varint-encode v.
func Len(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// AppendLengthPrefixed appends a varint32 length followed by value to dst.
func AppendLengthPrefixed(dst []byte, value []byte) []byte {
	dst = AppendVarint32(dst, uint32(len(value)))
	return append(dst, value...)
}

// LengthPrefixed decodes a varint32 length followed by that many bytes from
// src, returning a slice referencing src's backing array.
func LengthPrefixed(src []byte) (value []byte, n int, err error) {
	length, n, err := Varint32(src)
	if err != nil {
		return nil, 0, err
	}
	if n+int(length) > len(src) {
		return nil, 0, ErrTermination
	}
	return src[n : n+int(length)], n + int(length), nil
}
