package vfs

import (
	"bytes"
	"io"
	"testing"
)

func TestOSFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/data.bin"

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte("hello, file")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	size, err := r.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != int64(len("hello, file")) {
		t.Errorf("Size() = %d, want %d", size, len("hello, file"))
	}

	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(buf) != "hello, file" {
		t.Errorf("ReadAt = %q", buf)
	}
}

func TestOpenAppend(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/append.bin"

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte("first")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w2, err := OpenAppend(path)
	if err != nil {
		t.Fatalf("OpenAppend: %v", err)
	}
	if _, err := w2.Write([]byte("second")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	size, _ := r.Size()
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(buf) != "firstsecond" {
		t.Errorf("ReadAt = %q, want %q", buf, "firstsecond")
	}
}

type memReadonlyFile struct {
	data []byte
}

func (m *memReadonlyFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
func (m *memReadonlyFile) Close() error          { return nil }
func (m *memReadonlyFile) Size() (int64, error) { return int64(len(m.data)), nil }

func TestSourceSequentialRead(t *testing.T) {
	file := &memReadonlyFile{data: []byte("0123456789")}
	src := NewSource(file, false)

	buf := make([]byte, 4)
	n, err := io.ReadFull(src, buf)
	if err != nil || n != 4 || string(buf) != "0123" {
		t.Fatalf("first read: n=%d err=%v buf=%q", n, err, buf)
	}

	rest, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(rest) != "456789" {
		t.Errorf("rest = %q, want %q", rest, "456789")
	}
}

func TestSourceSeekStart(t *testing.T) {
	file := &memReadonlyFile{data: []byte("abcdefgh")}
	src := NewSource(file, false)

	io.CopyN(io.Discard, src, 4)
	src.SeekStart(2)
	if src.Offset() != 2 {
		t.Fatalf("Offset() = %d, want 2", src.Offset())
	}
	rest, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(rest) != "cdefgh" {
		t.Errorf("rest after seek = %q, want %q", rest, "cdefgh")
	}
}

type memFile struct {
	buf bytes.Buffer
}

func (m *memFile) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *memFile) Close() error                { return nil }
func (m *memFile) Sync() error                 { return nil }

func TestSinkWrite(t *testing.T) {
	file := &memFile{}
	sink := NewSink(file, false)
	if _, err := sink.Write([]byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if file.buf.String() != "payload" {
		t.Errorf("underlying buffer = %q", file.buf.String())
	}
}
