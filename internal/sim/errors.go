package sim

import "errors"

// ErrInvalidArgument is returned when a caller passes an out-of-range or
// nonsensical parameter (shots <= 0, noise outside [0,1], and so on).
// These are configuration errors, not transient failures: a rejected call
// never consumes randomness or mutates any state, so callers may not retry
// with the same arguments and expect a different outcome.
//
// Use errors.Is(err, ErrInvalidArgument) to check for this condition.
var ErrInvalidArgument = errors.New("invalid argument")
