package poe

import "errors"

// NotFoundError reports a failed domain lookup (mod, base, gem, price,
// plan, step, build). Hint, when present, tells the caller how to recover.
type NotFoundError struct {
	Message string
	Hint    string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError reports malformed caller input. It is never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StorageError reports a snapshot-store failure (no snapshots, unreadable
// pointer or index). It is fatal to the calling operation.
type StorageError struct {
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *StorageError) Unwrap() error { return e.Err }

// NotFound reports whether err is a NotFoundError.
func NotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// HintOf extracts the remediation hint from err, if it carries one.
func HintOf(err error) string {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Hint
	}
	return ""
}
