package dvid

// BinaryData wraps a byte buffer with shared, immutable ownership:
// producer and any number of consumers may hold it, and none may
// modify the bytes after construction.
type BinaryData struct {
	data []byte
}

// NewBinaryData wraps the given bytes without copying.  The caller
// gives up ownership and must not modify the slice afterwards.
func NewBinaryData(data []byte) *BinaryData {
	return &BinaryData{data}
}

// CopyBinaryData wraps a private copy of the given bytes, for callers
// that cannot give up ownership of the source slice.
func CopyBinaryData(data []byte) *BinaryData {
	dup := make([]byte, len(data))
	copy(dup, data)
	return &BinaryData{dup}
}

// Bytes returns the underlying buffer, which must not be modified.
// Safe to call on a nil receiver, returning nil.
func (b *BinaryData) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Length returns the number of bytes held.  Safe on a nil receiver.
func (b *BinaryData) Length() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}
