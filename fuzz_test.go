package listfile

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/romange/listfile/internal/checksum"
	"github.com/romange/listfile/internal/varint"
)

func makeValidRecord(t RecordType, payload []byte) []byte {
	out := make([]byte, physicalHeaderSize+len(payload))
	varint.PutFixed16(out[4:6], uint16(len(payload)))
	out[6] = byte(t)
	crc := checksum.Extend(checksum.Value([]byte{byte(t)}), payload)
	varint.PutFixed32(out[:4], checksum.Mask(crc))
	copy(out[physicalHeaderSize:], payload)
	return out
}

func appendRecords(records ...[]byte) []byte {
	var out []byte
	for _, r := range records {
		out = append(out, r...)
	}
	return out
}

func plainHeader() []byte {
	return append([]byte(Magic), 1, 0)
}

// FuzzReader feeds arbitrary bytes to the reader after a valid header and
// checks it neither panics nor delivers records forever.
func FuzzReader(f *testing.F) {
	f.Add([]byte{})
	f.Add(bytes.Repeat([]byte{0}, physicalHeaderSize))
	f.Add(makeValidRecord(FullType, []byte("hello")))
	f.Add(makeValidRecord(FullType, nil))

	// Orphan fragments and interrupted chains.
	f.Add(makeValidRecord(MiddleType, []byte("orphan middle")))
	f.Add(makeValidRecord(LastType, []byte("orphan last")))
	f.Add(appendRecords(
		makeValidRecord(FirstType, []byte("start")),
		makeValidRecord(MiddleType, []byte("middle")),
	))
	f.Add(appendRecords(
		makeValidRecord(FirstType, []byte("start")),
		makeValidRecord(FullType, []byte("complete")),
	))
	f.Add(appendRecords(
		makeValidRecord(FirstType, []byte("first1")),
		makeValidRecord(FirstType, []byte("first2")),
		makeValidRecord(LastType, []byte("end")),
	))

	// Array records: valid, single-element, and lying about the count.
	f.Add(makeValidRecord(ArrayType, appendRecords(
		varint.AppendVarint32(nil, 2),
		varint.AppendLengthPrefixed(nil, []byte("a")),
		varint.AppendLengthPrefixed(nil, []byte("b")),
	)))
	f.Add(makeValidRecord(ArrayType, varint.AppendLengthPrefixed(
		varint.AppendVarint32(nil, 1), []byte("solo"))))
	f.Add(makeValidRecord(ArrayType, varint.AppendVarint32(nil, 0xFFFFFFFF)))

	// Bad lengths and unknown types.
	f.Add([]byte{0, 0, 0, 0, 0xFF, 0xFF, 1})
	f.Add(makeValidRecord(RecordType(99), []byte("junk")))

	f.Fuzz(func(t *testing.T, data []byte) {
		file := append(plainHeader(), data...)
		r := NewReader(bytes.NewReader(file), ReaderOptions{
			Reporter: func(int, error) {},
		})
		// An uncorrupted stream of len(data) bytes can't pack more logical
		// records than it has bytes, plus one empty record per 7-byte frame;
		// anything past that bound means the reader is looping.
		limit := len(data) + len(data)/physicalHeaderSize + 16
		for i := 0; i < limit; i++ {
			if _, err := r.ReadRecord(); err != nil {
				return
			}
		}
		t.Fatalf("reader delivered more than %d records from %d input bytes", limit, len(data))
	})
}

// FuzzRoundTrip writes the fuzzed payload both as a lone record and split in
// two, and checks both files read back exactly.
func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte("hello"))
	f.Add(bytes.Repeat([]byte{0xA5}, arrayRecordMaxSize))
	f.Add(bytes.Repeat([]byte{7}, blockUnit+1))

	f.Fuzz(func(t *testing.T, payload []byte) {
		half := len(payload) / 2
		for _, records := range [][][]byte{
			{payload},
			{payload[:half], payload[half:]},
		} {
			var buf bytes.Buffer
			w := NewWriter(&buf, Options{})
			if err := w.Init(); err != nil {
				t.Fatalf("Init: %v", err)
			}
			for _, rec := range records {
				if err := w.AddRecord(rec); err != nil {
					t.Fatalf("AddRecord: %v", err)
				}
			}
			if err := w.Flush(); err != nil {
				t.Fatalf("Flush: %v", err)
			}

			r := NewReader(bytes.NewReader(buf.Bytes()), ReaderOptions{})
			for i, want := range records {
				got, err := r.ReadRecord()
				if err != nil {
					t.Fatalf("ReadRecord %d: %v", i, err)
				}
				if !bytes.Equal(got, want) {
					t.Fatalf("record %d mismatch: %d bytes, want %d", i, len(got), len(want))
				}
			}
			if _, err := r.ReadRecord(); !errors.Is(err, io.EOF) {
				t.Fatalf("trailing ReadRecord: %v, want io.EOF", err)
			}
		}
	})
}
