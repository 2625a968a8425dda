// Copyright 2020-2021 The Mox Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package container implements the MOX essence container: a simplified
// but self-consistent KLV-over-KAG partition layout, the
// Track/IndexTable abstraction, and the abstract ByteStream the muxer
// and demuxer read and write through. The wire format reuses SMPTE
// 377M's shapes (16-byte ULs, BER-style lengths, 512-byte KAG
// alignment, track-number encoding) without matching the standard byte
// for byte.
package container

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"mox/pkg/mox/moxerr"
)

// ByteStream is the abstract byte stream the container reads and writes
// through: seek-to-absolute, read/write with count
// returned, tell, flush, truncate, size. End-of-file on read returns 0
// without error: ReadAt at or past the end yields (0, nil), and a read
// that crosses the end returns the short count with a nil error.
type ByteStream interface {
	ReadAt(p []byte, off uint64) (n int, err error)
	WriteAt(p []byte, off uint64) (n int, err error)
	Tell() (uint64, error)
	Seek(off uint64) error
	Flush() error
	Truncate(size uint64) error
	Size() (uint64, error)
}

// FileStream is a ByteStream backed by an *os.File.
type FileStream struct {
	f   *os.File
	pos uint64
}

// OpenFileStream opens path for read/write, creating it if flag includes
// os.O_CREATE.
func OpenFileStream(path string, flag int, perm os.FileMode) (*FileStream, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, fmt.Errorf("container: open %s: %w: %v", path, moxerr.ErrIO, err)
	}
	return &FileStream{f: f}, nil
}

// ReadAt implements ByteStream.
func (s *FileStream) ReadAt(p []byte, off uint64) (int, error) {
	n, err := s.f.ReadAt(p, int64(off))
	if errors.Is(err, io.EOF) && n > 0 {
		return n, nil
	}
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return n, fmt.Errorf("container: read: %w: %v", moxerr.ErrIO, err)
	}
	return n, nil
}

// WriteAt implements ByteStream.
func (s *FileStream) WriteAt(p []byte, off uint64) (int, error) {
	n, err := s.f.WriteAt(p, int64(off))
	if err != nil {
		return n, fmt.Errorf("container: write: %w: %v", moxerr.ErrIO, err)
	}
	return n, nil
}

// Tell implements ByteStream.
func (s *FileStream) Tell() (uint64, error) { return s.pos, nil }

// Seek implements ByteStream.
func (s *FileStream) Seek(off uint64) error {
	s.pos = off
	return nil
}

// Flush implements ByteStream.
func (s *FileStream) Flush() error {
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("container: flush: %w: %v", moxerr.ErrIO, err)
	}
	return nil
}

// Truncate implements ByteStream.
func (s *FileStream) Truncate(size uint64) error {
	if err := s.f.Truncate(int64(size)); err != nil {
		return fmt.Errorf("container: truncate: %w: %v", moxerr.ErrIO, err)
	}
	return nil
}

// Size implements ByteStream.
func (s *FileStream) Size() (uint64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("container: stat: %w: %v", moxerr.ErrIO, err)
	}
	return uint64(info.Size()), nil
}

// Close releases the underlying file.
func (s *FileStream) Close() error { return s.f.Close() }

// Seek validation errors for the io.Seeker adapters below.
var (
	errInvalidWhence    = errors.New("container: invalid whence")
	errNegativePosition = errors.New("container: negative position")
)

// MemoryStream is an in-memory ByteStream, useful standalone for
// round-trip tests and in-memory transcoding.
type MemoryStream struct {
	mu   sync.Mutex
	buf  []byte
	pos  uint64
}

// NewMemoryStream returns an empty in-memory stream.
func NewMemoryStream() *MemoryStream {
	return &MemoryStream{}
}

// ReadAt implements ByteStream.
func (s *MemoryStream) ReadAt(p []byte, off uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off >= uint64(len(s.buf)) {
		return 0, nil
	}
	n := copy(p, s.buf[off:])
	return n, nil
}

// WriteAt implements ByteStream.
func (s *MemoryStream) WriteAt(p []byte, off uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	end := off + uint64(len(p))
	if end > uint64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	n := copy(s.buf[off:end], p)
	return n, nil
}

// Tell implements ByteStream.
func (s *MemoryStream) Tell() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, nil
}

// Seek implements ByteStream. Offsets are absolute, so there is no
// whence parameter to validate here.
func (s *MemoryStream) Seek(off uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = off
	return nil
}

// Flush implements ByteStream. It is a no-op for an in-memory stream.
func (s *MemoryStream) Flush() error { return nil }

// Truncate implements ByteStream.
func (s *MemoryStream) Truncate(size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size <= uint64(len(s.buf)) {
		s.buf = s.buf[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, s.buf)
	s.buf = grown
	return nil
}

// Size implements ByteStream.
func (s *MemoryStream) Size() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.buf)), nil
}

// Bytes returns a copy of the stream's current contents, for tests.
func (s *MemoryStream) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

// handles is the process-wide opaque-integer stream registry: streams
// are registered on muxer/demuxer construction and deregistered on
// finalize/close, so embedded third-party code can find a live stream
// by an opaque integer handle.
var (
	handles   sync.Map // uint64 -> ByteStream
	handleSeq uint64
)

// RegisterHandle assigns s an opaque handle and returns it.
func RegisterHandle(s ByteStream) uint64 {
	h := atomic.AddUint64(&handleSeq, 1)
	handles.Store(h, s)
	return h
}

// LookupHandle returns the stream registered under h, if any.
func LookupHandle(h uint64) (ByteStream, bool) {
	v, ok := handles.Load(h)
	if !ok {
		return nil, false
	}
	return v.(ByteStream), true
}

// ReleaseHandle removes h from the registry.
func ReleaseHandle(h uint64) {
	handles.Delete(h)
}
