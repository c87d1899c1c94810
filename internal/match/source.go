package match

// Source is the byte-provider abstraction the engine matches against.
// ReadAt returns up to n bytes starting at offset; a short read (fewer
// bytes than requested) is signaled by a short slice with a nil error —
// it is a normal outcome, not a SourceError. A non-nil error means the
// underlying source itself failed.
type Source interface {
	ReadAt(offset, n int) ([]byte, error)
}

// Marker is implemented by sources that need a one-time bound placed on
// how far ahead the engine will read before evaluation starts (spec.md
// §4.2, "Stream precomputation"). Random-access sources don't need this
// and simply don't implement it.
type Marker interface {
	Mark(limit int) error
}

// RandomAccessSource is implemented by sources that already expose their
// full extent up front (FileSource, BufferSource) and so need no Marker
// bound: Match accepts any Source implementing either Marker or
// RandomAccessSource, and rejects one implementing neither as a usage
// error, since the engine would otherwise read an unbounded stream with
// no way to cap how far ahead it goes.
type RandomAccessSource interface {
	Len() int
}
