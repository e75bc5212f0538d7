package dvid

import "errors"

var (
	// ErrInvalidArgument means the caller supplied malformed dims,
	// offsets, channels, or other parameters.  Such calls never reach
	// the network and retrying without a fix cannot succeed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBadAlignment means a volume PUT was not aligned to the block
	// grid.
	ErrBadAlignment = errors.New("data not aligned to block grid")

	// ErrSizeMismatch means a buffer's byte length disagrees with its
	// declared shape.
	ErrSizeMismatch = errors.New("buffer size does not match dimensions")

	// ErrProtocol means the server's response violated the wire
	// contract, e.g., an unexpected status or a payload of the wrong
	// length.  It is surfaced immediately and never retried.
	ErrProtocol = errors.New("protocol error")

	// ErrNotFound means the requested node, key, or body is absent.
	// Operations with a natural empty-result shape return that shape
	// instead of this error.
	ErrNotFound = errors.New("not found")
)
