package domain

import "errors"

var (
	// ErrInvalidArgument reports a caller error such as a non-positive top_k
	// or a malformed filter expression. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDimensionMismatch reports a vector whose dimension does not match
	// the index's fixed dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrUnsupportedStrategy reports a strategy the configured stores cannot
	// serve, surfaced at construction or first use.
	ErrUnsupportedStrategy = errors.New("unsupported retrieval strategy")

	// ErrTimeout reports a retrieval aborted by its deadline. Distinct from
	// an empty result set.
	ErrTimeout = errors.New("retrieval timed out")

	// ErrIndexCorrupt reports an internal inconsistency such as a posting
	// that references a removed document. Unrecoverable.
	ErrIndexCorrupt = errors.New("index inconsistency")

	// ErrNotFound reports a missing document or term.
	ErrNotFound = errors.New("not found")
)
