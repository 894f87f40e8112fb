// Package vfs defines the minimal file interfaces the log codec needs from
// its environment, plus an OS-backed implementation.
//
// These interfaces are deliberately thin: a generic Source/Sink buffering
// layer, line/CSV readers, and typed-record helpers are a different
// collaborator's job and live outside this module entirely. What's here is
// just enough to let a Writer/Reader be opened by filename without pulling
// in an external I/O library.
package vfs

import (
	"io"
	"os"
)

// ReadonlyFile supports positioned reads of an existing file.
type ReadonlyFile interface {
	io.ReaderAt
	io.Closer

	// Size returns the file's total size in bytes.
	Size() (int64, error)
}

// File supports appending to a file and making it durable.
type File interface {
	io.Writer
	io.Closer

	// Sync flushes file contents to stable storage.
	Sync() error
}

// Open opens name for positioned reads.
func Open(name string) (ReadonlyFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return &osReadonlyFile{f: f}, nil
}

// Create creates (truncating if necessary) name for appending.
func Create(name string) (File, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

// OpenAppend opens an existing file for appending, for Options.Append.
func OpenAppend(name string) (File, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

type osReadonlyFile struct{ f *os.File }

func (r *osReadonlyFile) ReadAt(p []byte, off int64) (int, error) { return r.f.ReadAt(p, off) }
func (r *osReadonlyFile) Close() error                            { return r.f.Close() }
func (r *osReadonlyFile) Size() (int64, error) {
	info, err := r.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

type osFile struct{ f *os.File }

func (w *osFile) Write(p []byte) (int, error) { return w.f.Write(p) }
func (w *osFile) Close() error                { return w.f.Close() }
func (w *osFile) Sync() error                 { return w.f.Sync() }
