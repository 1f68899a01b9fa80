package reminder

import "errors"

// ErrInvalidArgument marks rejected input: a bad snooze duration or a
// malformed settings snapshot. Nothing is applied when it is returned.
var ErrInvalidArgument = errors.New("invalid argument")
