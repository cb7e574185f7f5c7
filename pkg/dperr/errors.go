// Package dperr defines the error taxonomy shared by every component
// in this module. Sentinels are checked with errors.Is; wrapping uses
// github.com/pkg/errors so callers can recover the original cause
// with errors.Cause when logging.
package dperr

import "github.com/pkg/errors"

// Sentinel errors forming this module's error taxonomy. EndOfStream
// is a signal, not a failure, but is still represented here so every
// component speaks the same vocabulary.
var (
	ErrInvalidRequest         = errors.New("dperr: invalid request")
	ErrInvalidState           = errors.New("dperr: invalid state for operation")
	ErrShuttingDown           = errors.New("dperr: producer saw a closed buffer")
	ErrEndOfStream            = errors.New("dperr: end of stream")
	ErrTimeout                = errors.New("dperr: deadline expired")
	ErrCancelled              = errors.New("dperr: cancelled")
	ErrTransport              = errors.New("dperr: transport error")
	ErrInvalidBucket          = errors.New("dperr: bucket timestamp/value size mismatch")
	ErrDuplicateSourceInBlock = errors.New("dperr: duplicate source in correlated block")
	ErrConfig                 = errors.New("dperr: invalid or missing configuration")

	// ErrEmptySourceSet and ErrInvalidRange are InvalidRequest causes
	// specific to pkg/dprequest.
	ErrEmptySourceSet = errors.Wrap(ErrInvalidRequest, "empty source set")
	ErrInvalidRange   = errors.Wrap(ErrInvalidRequest, "range start >= end")
)

// Wrap annotates err with msg, preserving errors.Is/As against the
// sentinels above and errors.Cause for the deepest wrapped error.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Wrapf is Wrap with fmt-style formatting.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Rejected carries a per-frame or per-message server rejection. It is
// data returned alongside a successful call, never raised as an
// error — but it satisfies the error interface so it can be
// logged/wrapped uniformly when convenient.
type Rejected struct {
	Reason string
}

func (r *Rejected) Error() string { return "dperr: rejected: " + r.Reason }
