package match

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// FileSource is a random-access Source backed by a memory-mapped file,
// grounded on sourcegraph-zoekt's mmapedIndexFile (indexfile.go): one
// read-only mapping, sliced per ReadAt call, no syscalls on the hot path.
type FileSource struct {
	name string
	data mmap.MMap
}

// NewFileSource memory-maps f read-only. The caller keeps ownership of f
// (NewFileSource does not close it); Close unmaps the backing memory.
func NewFileSource(f *os.File) (*FileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, newSourceError("stat file source", err)
	}
	if info.Size() == 0 {
		return &FileSource{name: f.Name(), data: mmap.MMap{}}, nil
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, newSourceError("mmap file source", err)
	}
	return &FileSource{name: f.Name(), data: data}, nil
}

// ReadAt implements Source.
func (s *FileSource) ReadAt(offset, n int) ([]byte, error) {
	if offset < 0 || offset >= len(s.data) {
		return nil, nil
	}
	end := offset + n
	if end > len(s.data) {
		end = len(s.data)
	}
	return s.data[offset:end], nil
}

// Len returns the total number of bytes available.
func (s *FileSource) Len() int { return len(s.data) }

// Close unmaps the backing memory.
func (s *FileSource) Close() error {
	if len(s.data) == 0 {
		return nil
	}
	return s.data.Unmap()
}

// BufferSource is a random-access Source over an in-memory byte slice,
// for callers that already have the bytes and for tests.
type BufferSource struct {
	data []byte
}

// NewBufferSource wraps data; data is not copied and must not be mutated
// concurrently with matching.
func NewBufferSource(data []byte) *BufferSource {
	return &BufferSource{data: data}
}

// ReadAt implements Source.
func (s *BufferSource) ReadAt(offset, n int) ([]byte, error) {
	if offset < 0 || offset >= len(s.data) {
		return nil, nil
	}
	end := offset + n
	if end > len(s.data) {
		end = len(s.data)
	}
	return s.data[offset:end], nil
}

// Len returns the total number of bytes available.
func (s *BufferSource) Len() int { return len(s.data) }
