package listfile

import (
	"errors"
	"fmt"
	"io"

	"github.com/romange/listfile/internal/checksum"
	"github.com/romange/listfile/internal/compression"
	"github.com/romange/listfile/internal/varint"
	"github.com/romange/listfile/vfs"
)

// Corruption errors reported through CorruptionReporter. None of these are
// fatal to iteration: the reader resynchronizes at the next parseable
// record or block boundary.
var (
	ErrChecksumMismatch    = errors.New("listfile: checksum mismatch")
	ErrBadRecordLength     = errors.New("listfile: record length exceeds remaining block bytes")
	ErrInvalidRecordType   = errors.New("listfile: invalid record type")
	ErrMissingChainStart   = errors.New("listfile: middle/last record without a preceding first")
	ErrInterruptedChain    = errors.New("listfile: chain interrupted by a new logical record")
	ErrInvalidArrayCount   = errors.New("listfile: array record with fewer than two elements")
	ErrTruncatedArrayEntry = errors.New("listfile: truncated array entry")
	ErrTruncatedCompressed = errors.New("listfile: truncated compressed block header")
)

// CorruptionReporter is invoked whenever the reader drops bytes to recover
// from a corrupt record. It is never fatal: the call is informational.
type CorruptionReporter func(bytesDropped int, cause error)

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// SkipChecksums disables CRC32C verification of physical records. Off
	// (verification enabled) by default, since the zero value of a bool is
	// false.
	SkipChecksums bool

	// Reporter receives corruption events. May be nil.
	Reporter CorruptionReporter
}

// Reader reads the logical record sequence written by a Writer, reassembling
// fragmented records and unpacking array records transparently.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	src    io.Reader
	source *vfs.Source // non-nil when Reset/Close are available
	opts   ReaderOptions

	headerRead bool
	meta       *MetaMap
	compress   bool

	blockSizeBytes int
	recordAreaSize int
	anchorOffset   int64

	blockBuf []byte
	blockPos int

	assembling bool
	scratch    []byte

	arrayItems [][]byte
	arrayPos   int

	typeCRC [maxRecordType + 1]uint32

	readHeaderBytes uint64
	readDataBytes   uint64

	fatalErr error
}

// NewReader returns a Reader over src, an unbounded sequential stream
// positioned at the start of a listfile.
func NewReader(src io.Reader, opts ReaderOptions) *Reader {
	r := &Reader{src: src, opts: opts}
	for i := 0; i <= int(maxRecordType); i++ {
		r.typeCRC[i] = checksum.Value([]byte{byte(i)})
	}
	return r
}

// NewReaderFile opens filename and returns a Reader that owns the resulting
// file handle; Close releases it.
func NewReaderFile(filename string, opts ReaderOptions) (*Reader, error) {
	file, err := vfs.Open(filename)
	if err != nil {
		return nil, err
	}
	source := vfs.NewSource(file, true)
	r := NewReader(source, opts)
	r.source = source
	return r, nil
}

// GetMetaData returns the file's metadata map, reading the header first if
// necessary.
func (r *Reader) GetMetaData() (*MetaMap, error) {
	if err := r.ensureHeader(); err != nil {
		return nil, err
	}
	return r.meta, nil
}

// Close releases the underlying file handle if this Reader owns one.
func (r *Reader) Close() error {
	if r.source != nil {
		return r.source.Close()
	}
	return nil
}

// ReadHeaderBytes returns the number of bytes consumed by the header.
func (r *Reader) ReadHeaderBytes() uint64 { return r.readHeaderBytes }

// ReadDataBytes returns the number of raw block bytes read from the source.
func (r *Reader) ReadDataBytes() uint64 { return r.readDataBytes }

// Reset returns the reader to just after the header, so the next ReadRecord
// call starts over from the first logical record. It requires a file-backed
// Reader (one constructed with NewReaderFile); plain io.Reader sources
// aren't seekable.
func (r *Reader) Reset() error {
	if r.source == nil {
		return fmt.Errorf("listfile: Reset requires a file-backed reader")
	}
	if err := r.ensureHeader(); err != nil {
		return err
	}
	r.source.SeekStart(r.anchorOffset)
	r.blockBuf = nil
	r.blockPos = 0
	r.assembling = false
	r.scratch = r.scratch[:0]
	r.arrayItems = nil
	r.arrayPos = 0
	r.fatalErr = nil
	return nil
}

// ReadRecord returns the next logical record, or io.EOF once the stream is
// exhausted. The returned slice is owned by the caller.
func (r *Reader) ReadRecord() ([]byte, error) {
	if r.fatalErr != nil {
		return nil, r.fatalErr
	}
	if err := r.ensureHeader(); err != nil {
		r.fatalErr = err
		return nil, err
	}

	for {
		if r.arrayPos < len(r.arrayItems) {
			item := r.arrayItems[r.arrayPos]
			r.arrayPos++
			if r.arrayPos == len(r.arrayItems) {
				r.arrayItems = nil
				r.arrayPos = 0
			}
			return item, nil
		}

		t, payload, resynced, err := r.nextPhysicalRecord()
		if err == io.EOF {
			if r.assembling {
				r.assembling = false
				r.scratch = r.scratch[:0]
			}
			return nil, io.EOF
		}
		if err != nil {
			r.fatalErr = err
			return nil, err
		}
		if resynced && r.assembling {
			r.assembling = false
			r.scratch = r.scratch[:0]
		}

		switch t {
		case ZeroType:
			continue

		case FullType:
			if r.assembling {
				r.reportCorruption(len(r.scratch), ErrInterruptedChain)
				r.assembling = false
				r.scratch = r.scratch[:0]
			}
			out := make([]byte, len(payload))
			copy(out, payload)
			return out, nil

		case FirstType:
			if r.assembling {
				r.reportCorruption(len(r.scratch), ErrInterruptedChain)
			}
			r.scratch = append(r.scratch[:0], payload...)
			r.assembling = true

		case MiddleType:
			if !r.assembling {
				r.reportCorruption(len(payload), ErrMissingChainStart)
				continue
			}
			r.scratch = append(r.scratch, payload...)

		case LastType:
			if !r.assembling {
				r.reportCorruption(len(payload), ErrMissingChainStart)
				continue
			}
			r.scratch = append(r.scratch, payload...)
			r.assembling = false
			out := make([]byte, len(r.scratch))
			copy(out, r.scratch)
			return out, nil

		case ArrayType:
			if r.assembling {
				r.reportCorruption(len(r.scratch), ErrInterruptedChain)
				r.assembling = false
				r.scratch = r.scratch[:0]
			}
			items, derr := decodeArray(payload)
			if derr != nil {
				r.reportCorruption(len(payload), derr)
				continue
			}
			r.arrayItems = items
			r.arrayPos = 0

		default:
			r.reportCorruption(len(payload), ErrInvalidRecordType)
		}
	}
}

func (r *Reader) reportCorruption(dropped int, cause error) {
	if r.opts.Reporter != nil {
		r.opts.Reporter(dropped, cause)
	}
}

// ensureHeader reads and parses the header on first use.
func (r *Reader) ensureHeader() error {
	if r.headerRead {
		return nil
	}
	h, consumed, err := decodeHeader(r.src)
	if err != nil {
		return err
	}
	r.headerRead = true
	r.meta = h.meta
	r.compress = h.compression
	r.anchorOffset = consumed
	r.readHeaderBytes = uint64(consumed)

	r.blockSizeBytes = blockSize(h.multiplier)
	r.recordAreaSize = r.blockSizeBytes
	if r.compress {
		r.recordAreaSize--
	}
	return nil
}

// nextPhysicalRecord returns the next valid physical record, transparently
// skipping (and reporting) any corrupt ones along the way. resynced is true
// if at least one corrupt record was skipped before a valid one was found,
// signaling the caller that any in-progress chain assembly must be reset.
func (r *Reader) nextPhysicalRecord() (t RecordType, payload []byte, resynced bool, err error) {
	for {
		if r.blockPos+physicalHeaderSize > len(r.blockBuf) {
			if err := r.loadNextBlock(); err != nil {
				return 0, nil, resynced, err
			}
			continue
		}

		hdr := r.blockBuf[r.blockPos : r.blockPos+physicalHeaderSize]
		length := int(varint.Fixed16(hdr[4:6]))
		rt := RecordType(hdr[6])

		// Empty zero-type slots (block padding, preallocated space) carry no
		// checksum; skip them before CRC verification.
		if rt == ZeroType && length == 0 {
			r.blockPos += physicalHeaderSize
			continue
		}

		if r.blockPos+physicalHeaderSize+length > len(r.blockBuf) {
			dropped := len(r.blockBuf) - r.blockPos
			r.reportCorruption(dropped, ErrBadRecordLength)
			r.blockPos = len(r.blockBuf)
			resynced = true
			continue
		}

		body := r.blockBuf[r.blockPos+physicalHeaderSize : r.blockPos+physicalHeaderSize+length]

		if rt > maxRecordType {
			r.reportCorruption(physicalHeaderSize+length, ErrInvalidRecordType)
			r.blockPos += physicalHeaderSize + length
			resynced = true
			continue
		}

		if !r.opts.SkipChecksums {
			want := varint.Fixed32(hdr[:4])
			got := checksum.Mask(checksum.Extend(r.typeCRC[rt], body))
			if got != want {
				r.reportCorruption(physicalHeaderSize+length, ErrChecksumMismatch)
				r.blockPos += physicalHeaderSize + length
				resynced = true
				continue
			}
		}

		r.blockPos += physicalHeaderSize + length
		if rt == ZeroType {
			continue
		}
		return rt, body, resynced, nil
	}
}

// loadNextBlock reads and, if necessary, decompresses the next block into
// blockBuf. It returns io.EOF once the source is exhausted.
func (r *Reader) loadNextBlock() error {
	raw := make([]byte, r.blockSizeBytes)
	n, err := io.ReadFull(r.src, raw)
	if n == 0 {
		if errors.Is(err, io.EOF) {
			r.blockBuf = nil
			r.blockPos = 0
			return io.EOF
		}
		if err != nil {
			return fmt.Errorf("listfile: read block: %w", err)
		}
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("listfile: read block: %w", err)
	}
	raw = raw[:n]
	r.readDataBytes += uint64(n)

	if !r.compress {
		r.blockBuf = raw
		r.blockPos = 0
		return nil
	}

	if n == 0 {
		r.blockBuf = nil
		r.blockPos = 0
		return nil
	}

	method := Method(raw[0])
	if method == NoCompression {
		r.blockBuf = raw[1:]
		r.blockPos = 0
		return nil
	}
	if !method.IsSupported() {
		return fmt.Errorf("listfile: unsupported compression method %d", raw[0])
	}
	if n < 5 {
		r.reportCorruption(n, ErrTruncatedCompressed)
		r.blockBuf = nil
		r.blockPos = 0
		return nil
	}
	clen := int(varint.Fixed32(raw[1:5]))
	if 5+clen > n {
		r.reportCorruption(n-5, ErrTruncatedCompressed)
		clen = n - 5
	}
	decompressed, derr := compression.Decompress(method, raw[5:5+clen], r.recordAreaSize)
	if derr != nil {
		r.reportCorruption(clen, fmt.Errorf("listfile: decompress block: %w", derr))
		r.blockBuf = nil
		r.blockPos = 0
		return nil
	}
	r.blockBuf = decompressed
	r.blockPos = 0
	return nil
}

// decodeArray parses an ArrayType payload into its packed elements.
func decodeArray(payload []byte) ([][]byte, error) {
	count, n, err := varint.Varint32(payload)
	if err != nil {
		return nil, fmt.Errorf("listfile: decode array count: %w", err)
	}
	if count < 2 {
		return nil, ErrInvalidArrayCount
	}
	// Each packed element occupies at least one byte (its length prefix), so
	// a count beyond the remaining payload is corrupt regardless of content.
	if int64(count) > int64(len(payload)-n) {
		return nil, ErrTruncatedArrayEntry
	}
	pos := n
	items := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		value, consumed, err := varint.LengthPrefixed(payload[pos:])
		if err != nil {
			return nil, ErrTruncatedArrayEntry
		}
		cp := make([]byte, len(value))
		copy(cp, value)
		items = append(items, cp)
		pos += consumed
	}
	return items, nil
}
