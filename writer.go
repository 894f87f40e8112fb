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

// ErrWriterClosed is returned by AddRecord and Flush when called after Flush.
// AddMeta and Init called after Flush return ErrAlreadyInitialized instead.
var ErrWriterClosed = errors.New("listfile: writer closed")

// ErrAlreadyInitialized is returned by Init if called more than once, and by
// AddMeta if called after Init.
var ErrAlreadyInitialized = errors.New("listfile: writer already initialized")

// ErrHeaderMismatch is returned when a file reopened with Options.Append has
// a header incompatible with the supplied options.
var ErrHeaderMismatch = errors.New("listfile: existing header incompatible with options")

// Writer partitions a sequence of records into fixed-size blocks, framing
// each as one or more physical records, optionally packing small records
// into array records, and optionally compressing each completed block.
//
// A Writer is not safe for concurrent use. Dropping a Writer without calling
// Flush leaves the last partial block unwritten.
type Writer struct {
	dest   io.Writer
	sink   *vfs.Sink // non-nil when the Writer owns a file handle
	opts   Options
	method Method

	meta       *MetaMap
	metaClosed bool
	initDone   bool
	closed     bool
	err        error

	blockSizeBytes int
	recordAreaSize int
	block          []byte // accumulated raw bytes of the current block

	pendingSmall       [][]byte
	pendingSmallLength int // summed length-prefixed size of pendingSmall, excluding the count prefix

	typeCRC [maxRecordType + 1]uint32

	recordsAdded       uint64
	bytesAdded         uint64
	compressionSavings uint64
}

// NewWriter returns a Writer that appends records to dest. dest is not
// closed by Flush; use NewWriterFile to own a file handle.
func NewWriter(dest io.Writer, opts Options) *Writer {
	w := &Writer{
		dest:   dest,
		opts:   opts,
		method: opts.method(),
		meta:   NewMetaMap(),
	}
	for i := 0; i <= int(maxRecordType); i++ {
		w.typeCRC[i] = checksum.Value([]byte{byte(i)})
	}
	return w
}

// NewWriterFile creates (or, with Options.Append, reopens) filename and
// returns a Writer that owns the resulting file handle; Flush closes it.
func NewWriterFile(filename string, opts Options) (*Writer, error) {
	if opts.Append {
		return newAppendWriter(filename, opts)
	}
	file, err := vfs.Create(filename)
	if err != nil {
		return nil, err
	}
	sink := vfs.NewSink(file, true)
	w := NewWriter(sink, opts)
	w.sink = sink
	return w, nil
}

// newAppendWriter reopens an existing file for appending: the on-disk header
// is re-validated against opts (and not rewritten), metadata is already
// frozen so AddMeta and Init are both off the table, and any partial
// trailing block is zero-padded out to a block boundary so appended blocks
// stay aligned with the blocks readers load.
func newAppendWriter(filename string, opts Options) (*Writer, error) {
	existing, err := vfs.Open(filename)
	if err != nil {
		return nil, err
	}
	source := vfs.NewSource(existing, false)
	h, headerLen, err := decodeHeader(source)
	if err != nil {
		existing.Close()
		return nil, err
	}
	size, err := existing.Size()
	if err != nil {
		existing.Close()
		return nil, err
	}
	if err := existing.Close(); err != nil {
		return nil, err
	}
	if h.multiplier != opts.multiplier() {
		return nil, fmt.Errorf("%w: block size multiplier %d on disk, %d requested",
			ErrHeaderMismatch, h.multiplier, opts.multiplier())
	}
	if h.compression != opts.UseCompression {
		return nil, fmt.Errorf("%w: compression flag %t on disk, %t requested",
			ErrHeaderMismatch, h.compression, opts.UseCompression)
	}

	file, err := vfs.OpenAppend(filename)
	if err != nil {
		return nil, err
	}
	sink := vfs.NewSink(file, true)
	w := NewWriter(sink, opts)
	w.sink = sink
	w.meta = h.meta
	w.metaClosed = true
	w.initDone = true
	w.configureBlockSizes()

	if partial := int((size - headerLen) % int64(w.blockSizeBytes)); partial > 0 {
		if _, err := sink.Write(make([]byte, w.blockSizeBytes-partial)); err != nil {
			sink.Close()
			return nil, err
		}
	}
	return w, nil
}

// configureBlockSizes derives the block and record-area sizes from opts.
// Called by Init for a fresh file, and directly by newAppendWriter for a
// reopened one (whose header is not rewritten).
func (w *Writer) configureBlockSizes() {
	w.blockSizeBytes = blockSize(w.opts.multiplier())
	w.recordAreaSize = w.blockSizeBytes
	if w.opts.UseCompression {
		w.recordAreaSize--
	}
	w.block = make([]byte, 0, w.recordAreaSize)
}

// AddMeta adds a metadata entry. It must be called before Init.
func (w *Writer) AddMeta(key string, value []byte) error {
	if w.metaClosed {
		return ErrAlreadyInitialized
	}
	return w.meta.Set(key, value)
}

// Init serializes the header and prepares the writer for AddRecord. It must
// be called exactly once, and AddMeta must not be called afterward.
func (w *Writer) Init() error {
	if w.initDone {
		return ErrAlreadyInitialized
	}
	w.metaClosed = true
	w.initDone = true

	h := header{
		multiplier:  w.opts.multiplier(),
		compression: w.opts.UseCompression,
		meta:        w.meta,
	}
	w.configureBlockSizes()

	if _, err := w.dest.Write(encodeHeader(h)); err != nil {
		return w.fail(err)
	}
	return nil
}

// AddRecord makes payload durable as of the next successful Flush (or
// sooner, once a full block boundary is reached). Small records (below
// 4096 bytes) may be held in memory briefly to be packed into an array
// record alongside other small records.
func (w *Writer) AddRecord(payload []byte) error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return ErrWriterClosed
	}
	if !w.initDone {
		return fmt.Errorf("listfile: AddRecord before Init")
	}

	w.recordsAdded++
	w.bytesAdded += uint64(len(payload))

	if len(payload) < arrayRecordMaxSize {
		entryLen := varint.Len(uint64(len(payload))) + len(payload)
		countLen := varint.Len(uint64(len(w.pendingSmall) + 1))
		arrayLen := countLen + w.pendingSmallLength + entryLen
		if len(w.pendingSmall) > 0 && (physicalHeaderSize+arrayLen > w.leftover() || arrayLen > 0xFFFF) {
			if err := w.flushArray(); err != nil {
				return err
			}
		}
		cp := make([]byte, len(payload))
		copy(cp, payload)
		w.pendingSmall = append(w.pendingSmall, cp)
		w.pendingSmallLength += entryLen
		return nil
	}

	if err := w.flushArray(); err != nil {
		return err
	}
	return w.emitChain(payload)
}

// Flush emits any pending array record, writes the (possibly short)
// trailing block, and releases any owned file handle.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return ErrWriterClosed
	}
	if err := w.flushArray(); err != nil {
		return err
	}
	if len(w.block) > 0 {
		if err := w.writeBlock(w.block, true); err != nil {
			return w.fail(err)
		}
		w.block = w.block[:0]
	}
	w.closed = true
	if w.sink != nil {
		if err := w.sink.Sync(); err != nil {
			return err
		}
		return w.sink.Close()
	}
	return nil
}

// RecordsAdded returns the number of logical records passed to AddRecord.
func (w *Writer) RecordsAdded() uint64 { return w.recordsAdded }

// BytesAdded returns the sum of logical record payload lengths.
func (w *Writer) BytesAdded() uint64 { return w.bytesAdded }

// CompressionSavings returns the number of bytes avoided by compressing
// blocks, relative to storing the same blocks verbatim.
func (w *Writer) CompressionSavings() uint64 { return w.compressionSavings }

func (w *Writer) fail(err error) error {
	w.err = err
	return err
}

func (w *Writer) leftover() int {
	return w.recordAreaSize - len(w.block)
}

// flushArray emits any buffered small records: a single buffered record
// falls back to ordinary chained framing (array packing never emits a
// single-element array), two or more are packed into one ArrayType record.
func (w *Writer) flushArray() error {
	switch len(w.pendingSmall) {
	case 0:
		return nil
	case 1:
		payload := w.pendingSmall[0]
		w.pendingSmall = nil
		w.pendingSmallLength = 0
		return w.emitChain(payload)
	default:
		body := varint.AppendVarint32(nil, uint32(len(w.pendingSmall)))
		for _, p := range w.pendingSmall {
			body = varint.AppendLengthPrefixed(body, p)
		}
		w.pendingSmall = nil
		w.pendingSmallLength = 0
		return w.writeRecord(ArrayType, body)
	}
}

// emitChain fragments payload across FullType/FirstType/MiddleType/LastType
// physical records as needed to fit the remaining block capacity.
func (w *Writer) emitChain(payload []byte) error {
	ptr := payload
	left := len(payload)
	begin := true
	for {
		if err := w.rotateIfNeeded(); err != nil {
			return err
		}
		avail := w.leftover() - physicalHeaderSize
		if avail > 0xFFFF {
			// The physical length field is 16 bits; blocks larger than 64KiB
			// hold several fragments.
			avail = 0xFFFF
		}
		fragLen := left
		if fragLen > avail {
			fragLen = avail
		}
		end := left == fragLen

		var t RecordType
		switch {
		case begin && end:
			t = FullType
		case begin:
			t = FirstType
		case end:
			t = LastType
		default:
			t = MiddleType
		}

		if err := w.writeOnePhysical(t, ptr[:fragLen]); err != nil {
			return err
		}
		ptr = ptr[fragLen:]
		left -= fragLen
		begin = false
		if left == 0 {
			return nil
		}
	}
}

// writeRecord rotates the block if payload doesn't fit whole and writes it
// as a single physical record of type t. Callers must ensure payload fits
// in a fresh block (physicalHeaderSize+len(payload) <= recordAreaSize).
func (w *Writer) writeRecord(t RecordType, payload []byte) error {
	if w.leftover() < physicalHeaderSize+len(payload) {
		if err := w.rotateBlock(); err != nil {
			return err
		}
	}
	return w.writeOnePhysical(t, payload)
}

// rotateIfNeeded pads and flushes the current block if fewer than
// physicalHeaderSize bytes remain in it.
func (w *Writer) rotateIfNeeded() error {
	if w.leftover() >= physicalHeaderSize {
		return nil
	}
	return w.rotateBlock()
}

// rotateBlock zero-pads whatever remains of the current block, writes it,
// and starts a fresh one. Padding of physicalHeaderSize or more reads back
// as zero-type slots, which readers skip.
func (w *Writer) rotateBlock() error {
	pad := w.leftover()
	if pad > 0 {
		w.block = append(w.block, make([]byte, pad)...)
	}
	if err := w.writeBlock(w.block, false); err != nil {
		return w.fail(err)
	}
	w.block = w.block[:0]
	return nil
}

// writeOnePhysical appends a physical record header and payload to the
// current block, flushing the block if it becomes exactly full.
func (w *Writer) writeOnePhysical(t RecordType, payload []byte) error {
	if len(payload) > 0xFFFF {
		return fmt.Errorf("listfile: fragment payload too large (%d bytes)", len(payload))
	}

	var hdr [physicalHeaderSize]byte
	varint.PutFixed16(hdr[4:6], uint16(len(payload)))
	hdr[6] = byte(t)

	crc := checksum.Extend(w.typeCRC[t], payload)
	crc = checksum.Mask(crc)
	varint.PutFixed32(hdr[:4], crc)

	w.block = append(w.block, hdr[:]...)
	w.block = append(w.block, payload...)

	if len(w.block) == w.recordAreaSize {
		if err := w.writeBlock(w.block, false); err != nil {
			return w.fail(err)
		}
		w.block = w.block[:0]
	}
	return nil
}

// writeBlock emits raw — the accumulated bytes of one block — to dest,
// compressing it first if enabled and beneficial. final is true only for
// the trailing block written by Flush, which is never padded out to the
// full block size.
func (w *Writer) writeBlock(raw []byte, final bool) error {
	var out []byte

	if !w.opts.UseCompression {
		out = raw
	} else {
		compressed, cerr := compression.Compress(w.method, w.opts.CompressLevel, raw, nil)
		if cerr != nil && !compression.IsIncompressible(cerr) {
			return fmt.Errorf("listfile: compress block: %w", cerr)
		}
		useCompressed := cerr == nil && len(compressed) > 0 && 1+4+len(compressed) < 1+len(raw)
		if useCompressed {
			out = make([]byte, 0, 5+len(compressed))
			out = append(out, byte(w.method))
			out = varint.AppendFixed32(out, uint32(len(compressed)))
			out = append(out, compressed...)
			w.compressionSavings += uint64((1 + len(raw)) - len(out))
		} else {
			out = make([]byte, 0, 1+len(raw))
			out = append(out, byte(NoCompression))
			out = append(out, raw...)
		}
	}

	if !final {
		if pad := w.blockSizeBytes - len(out); pad > 0 {
			out = append(out, make([]byte, pad)...)
		}
	}

	_, err := w.dest.Write(out)
	return err
}
