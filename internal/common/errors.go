package common

import "errors"

var (
	ErrMalformedHeader    = errors.New("oasis: malformed header")
	ErrMalformedRecord    = errors.New("oasis: malformed record")
	ErrTruncatedStream    = errors.New("oasis: truncated stream")
	ErrUnsetModalField    = errors.New("oasis: unset modal field")
	ErrDanglingReference  = errors.New("oasis: dangling reference")
	ErrOverflow           = errors.New("oasis: numeric overflow")
	ErrCompression        = errors.New("oasis: compression error")
	ErrValidationMismatch = errors.New("oasis: validation mismatch")
	ErrPlacementCycle     = errors.New("oasis: placement cycle")
)
