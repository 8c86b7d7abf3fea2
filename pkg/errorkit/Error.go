package errorkit

import (
	"errors"
	"fmt"
)

// Error is an error kind that can be declared as a constant.
//
//	const ErrNotFound errorkit.Error = "not found"
type Error string

func (err Error) Error() string { return string(err) }

// Wrap returns an error that matches both the kind and the cause with errors.Is and errors.As.
// A nil cause yields the kind itself.
func (err Error) Wrap(cause error) error {
	if cause == nil {
		return err
	}
	return &kindError{kind: err, cause: cause}
}

// F wraps a formatted cause. The format may use %w.
func (err Error) F(format string, a ...any) error {
	return err.Wrap(fmt.Errorf(format, a...))
}

type kindError struct {
	kind  Error
	cause error
}

func (e *kindError) Error() string { return "[" + string(e.kind) + "] " + e.cause.Error() }

func (e *kindError) Unwrap() []error { return []error{e.kind, e.cause} }

// WithDetail attaches a human readable hint to err.
// The hint is not part of the error message, loggers pick it up with LookupDetail.
func WithDetail(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return &detailError{err: err, detail: fmt.Sprintf(format, a...)}
}

// LookupDetail returns the outermost detail attached to err.
func LookupDetail(err error) (string, bool) {
	var de *detailError
	if !errors.As(err, &de) {
		return "", false
	}
	return de.detail, true
}

type detailError struct {
	err    error
	detail string
}

func (e *detailError) Error() string { return e.err.Error() }

func (e *detailError) Unwrap() error { return e.err }
