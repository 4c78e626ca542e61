package ptysup

import "errors"

// Sentinel errors forming the supervisor's failure taxonomy. Callers can
// match against these with errors.Is; the underlying OS error, if any, is
// included in the message text but is not itself wrapped.
var (
	ErrPtyOpenFailed = errors.New("ptysup: failed to open pty")
	ErrSpawnFailed   = errors.New("ptysup: failed to spawn child process")
	ErrUnknownAgent  = errors.New("ptysup: unknown agent id")
	ErrIOFailed      = errors.New("ptysup: pty io failed")
)
