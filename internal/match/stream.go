package match

import (
	"bufio"
	"bytes"
	"io"
)

// StreamSource is a forward-only Source over an io.Reader, implementing
// the spec's "mark(limit); read(n); reset()" contract on top of
// bufio.Reader.Peek. Peek never advances the StreamSource's own read
// position, so resetting is free: the engine simply stops calling ReadAt.
// The bytes the buffer has pulled from the underlying reader stay in the
// buffer; they are not given back to the underlying reader.
type StreamSource struct {
	r     io.Reader
	br    *bufio.Reader
	limit int
}

// NewStreamSource wraps r. Mark is normally called — directly, or by the
// engine via the Marker interface — before ReadAt is used; if it was not,
// the first ReadAt marks the stream itself.
func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{r: r}
}

// Mark bounds how far ahead the stream will be inspected and primes the
// buffer with a single Peek, so later ReadAt calls never touch the
// underlying reader directly. With a limit already covered, it is a
// no-op. Calling Mark again with a larger limit is safe: any bytes
// already buffered by a prior Mark are preserved (prepended ahead of the
// still-unread tail of the underlying reader) rather than discarded, so
// growing the mark never skips bytes a previous Peek had already pulled
// off the wire.
func (s *StreamSource) Mark(limit int) error {
	if limit <= 0 {
		limit = 1
	}
	if s.br != nil && s.limit >= limit {
		return nil
	}

	var r io.Reader = s.r
	if s.br != nil {
		buffered, _ := s.br.Peek(s.br.Buffered())
		r = io.MultiReader(bytes.NewReader(buffered), s.r)
	}

	s.br = bufio.NewReaderSize(r, limit)
	s.limit = limit
	if _, err := s.br.Peek(limit); err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return newUsageError("mark stream source", err)
	}
	return nil
}

// ReadAt implements Source. It marks the stream lazily (bounded to
// exactly what's requested) if the caller never called Mark explicitly.
func (s *StreamSource) ReadAt(offset, n int) ([]byte, error) {
	if s.br == nil {
		if err := s.Mark(offset + n); err != nil {
			return nil, err
		}
	}
	buf, err := s.br.Peek(offset + n)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, newSourceError("read stream source", err)
	}
	if len(buf) <= offset {
		return nil, nil
	}
	return buf[offset:], nil
}
