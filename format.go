// Package listfile implements a record-oriented log file format: a durable,
// append-friendly container for an ordered sequence of opaque byte records
// plus a small metadata dictionary, derived from the LevelDB log format and
// extended with header metadata, optional per-block compression, and an
// array record type that amortizes framing overhead for small records.
package listfile

import "github.com/romange/listfile/internal/compression"

// Magic identifies a listfile. It is frozen at release and never changes;
// format evolution happens through the header's flags byte instead.
const Magic = "LST1.000"

// blockUnit is the base block size; the on-disk block size is
// blockUnit times the header's multiplier byte.
const blockUnit = 65536

// physicalHeaderSize is the size of a physical record header:
// CRC(4) + Length(2) + Type(1).
const physicalHeaderSize = 7

// arrayRecordMaxSize bounds array packing: only logical records shorter than
// this are eligible; records at or above this size are always framed
// individually.
const arrayRecordMaxSize = 4096

// RecordType identifies the role of a physical record within the block
// stream. These values are part of the on-disk format and must not change.
type RecordType uint8

const (
	// ZeroType marks a reserved or skipped slot; readers ignore it.
	ZeroType RecordType = 0
	// FullType is a complete logical record contained in one physical record.
	FullType RecordType = 1
	// FirstType begins a logical record that spans multiple physical records.
	FirstType RecordType = 2
	// MiddleType continues a logical record begun by FirstType.
	MiddleType RecordType = 3
	// LastType ends a logical record begun by FirstType.
	LastType RecordType = 4
	// ArrayType packs two or more small logical records into one physical
	// record's payload.
	ArrayType RecordType = 5

	maxRecordType = ArrayType
)

// String returns the record type's name, for diagnostics.
func (t RecordType) String() string {
	switch t {
	case ZeroType:
		return "Zero"
	case FullType:
		return "Full"
	case FirstType:
		return "First"
	case MiddleType:
		return "Middle"
	case LastType:
		return "Last"
	case ArrayType:
		return "Array"
	default:
		return "Unknown"
	}
}

// Reserved metadata keys recognized by downstream typed-record tooling but
// treated as opaque by this package.
const (
	protoSetKey  = "__proto_set__"
	protoTypeKey = "__proto_type__"
)

// Method re-exports the compression method type so callers configuring
// Options don't need to import the internal package directly.
type Method = compression.Method

// Supported compression methods.
const (
	NoCompression     = compression.None
	LZ4Compression    = compression.LZ4
	ZlibCompression   = compression.ZLIB
	SnappyCompression = compression.Snappy
	ZstdCompression   = compression.Zstd
)
