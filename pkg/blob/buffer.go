// Package blob provides an owning byte buffer for sensitive material.
//
// Key, nonce, PIN, and MAC-input bytes flow through Buffer so that every
// holder has exactly one owned copy and can wipe it on the way out. Set and
// Append always copy; the caller's slice is never aliased.
package blob

// Buffer is a length-delimited, exclusively owned byte container.
// The zero value is an empty buffer ready for use.
type Buffer struct {
	data []byte
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// FromBytes returns a buffer holding a copy of b.
func FromBytes(b []byte) *Buffer {
	buf := &Buffer{}
	buf.Set(b)
	return buf
}

// Set replaces the buffer contents with a copy of b.
// Previous contents are zeroized before being dropped.
func (buf *Buffer) Set(b []byte) {
	buf.Reset()
	if len(b) == 0 {
		return
	}
	buf.data = make([]byte, len(b))
	copy(buf.data, b)
}

// Append extends the buffer with a copy of b.
func (buf *Buffer) Append(b []byte) {
	if len(b) == 0 {
		return
	}
	buf.data = append(buf.data, b...)
}

// Bytes returns the buffer contents for inspection.
// The returned slice remains owned by the buffer.
func (buf *Buffer) Bytes() []byte {
	return buf.data
}

// Len returns the number of bytes held.
func (buf *Buffer) Len() int {
	return len(buf.data)
}

// IsEmpty reports whether the buffer holds no bytes.
func (buf *Buffer) IsEmpty() bool {
	return len(buf.data) == 0
}

// Reset zeroizes the contents and drops the backing storage.
func (buf *Buffer) Reset() {
	Zero(buf.data)
	buf.data = nil
}

// Zero overwrites b with zero bytes.
// Use on transient key, nonce, and MAC-input slices on every exit path.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
