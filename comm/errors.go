package comm

import "errors"

var (
	// ErrRankRange indicates a source or destination rank outside the communicator.
	ErrRankRange = errors.New("comm: rank out of range")
	// ErrTagRange indicates a negative user tag; negative tags are reserved for collectives.
	ErrTagRange = errors.New("comm: tag must be non-negative")
	// ErrTruncated indicates a message longer than the receive buffer.
	ErrTruncated = errors.New("comm: message truncated")
	// ErrTypeMismatch indicates a message whose element type differs from the receive buffer.
	ErrTypeMismatch = errors.New("comm: message element type mismatch")
	// ErrFreed indicates use of a freed communicator.
	ErrFreed = errors.New("comm: communicator has been freed")
	// ErrInactive indicates an operation on a request that was not started.
	ErrInactive = errors.New("comm: request is not active")
	// ErrLength indicates collective contributions of different lengths.
	ErrLength = errors.New("comm: collective buffers differ in length")
)
