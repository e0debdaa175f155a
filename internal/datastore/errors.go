package datastore

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")
)

// PartialWriteError reports a multi-step write that failed after Completed rows
// were already written. Written rows are left in place.
type PartialWriteError struct {
	Op        string
	Completed int
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s: failed after %d written rows: %s", e.Op, e.Completed, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
