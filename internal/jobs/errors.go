package jobs

import "errors"

// ErrNotReady is returned by a stage handler whose predecessor stage has
// not finished for the batch yet. The worker requeues the job without
// consuming an attempt.
var ErrNotReady = errors.New("job not ready")

// PermanentError marks a failure that retrying cannot fix (revoked
// connection, malformed payload). The worker parks the job in terminal
// error immediately instead of burning through attempts.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

type missingHandlerError struct{ Kind string }

func (e *missingHandlerError) Error() string { return "no handler registered for kind=" + e.Kind }

type panicError struct{ Val any }

func (e *panicError) Error() string { return "panic in job handler" }
