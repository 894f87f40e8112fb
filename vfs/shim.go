package vfs

import "io"

// Sink adapts a File into an io.Writer by appending every write, mirroring
// the original C++ file::Sink wrapper around file::File.
type Sink struct {
	file  File
	owned bool
}

// NewSink wraps file as an io.Writer. If owned is true, Close closes file.
func NewSink(file File, owned bool) *Sink {
	return &Sink{file: file, owned: owned}
}

// Write appends p to the underlying file.
func (s *Sink) Write(p []byte) (int, error) { return s.file.Write(p) }

// Sync flushes the underlying file.
func (s *Sink) Sync() error { return s.file.Sync() }

// Close releases the underlying file if this Sink owns it.
func (s *Sink) Close() error {
	if !s.owned {
		return nil
	}
	return s.file.Close()
}

// Source adapts a ReadonlyFile into a sequential io.Reader by tracking an
// internal offset across reads, mirroring the original C++ file::Source
// wrapper around file::ReadonlyFile. It also supports SeekStart, which the
// log Reader uses to implement Reset.
type Source struct {
	file   ReadonlyFile
	owned  bool
	offset int64
}

// NewSource wraps file as a sequential io.Reader starting at offset 0. If
// owned is true, Close closes file.
func NewSource(file ReadonlyFile, owned bool) *Source {
	return &Source{file: file, owned: owned}
}

// Read implements io.Reader by issuing a positioned read at the current
// offset and advancing it by the number of bytes returned.
func (s *Source) Read(p []byte) (int, error) {
	n, err := s.file.ReadAt(p, s.offset)
	s.offset += int64(n)
	if err == io.EOF && n > 0 {
		// ReaderAt may return (n>0, io.EOF) for a short final read; surface
		// the bytes now and let the next Read observe EOF with n==0.
		return n, nil
	}
	return n, err
}

// SeekStart moves the read offset to an absolute position.
func (s *Source) SeekStart(offset int64) {
	s.offset = offset
}

// Offset returns the current read offset.
func (s *Source) Offset() int64 { return s.offset }

// Close releases the underlying file if this Source owns it.
func (s *Source) Close() error {
	if !s.owned {
		return nil
	}
	return s.file.Close()
}
