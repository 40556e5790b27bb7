package statecell

import (
	"errors"
	"fmt"
)

var (
	// ErrUninitialized is returned when the cell could not be populated.
	ErrUninitialized = errors.New("state cell not initialized")
	// ErrStateTaken is returned when the value is checked out by a running
	// Modify, including reentrant calls from inside the transform.
	ErrStateTaken = errors.New("state is taken by an active modify")
)

// TransformError wraps the error returned by a Modify transform. The cell
// kept its previous value.
type TransformError struct {
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("state transform failed: %v", e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// PersistenceError is a failure to read or write the durable copy of the
// state. After a failed write the cell kept its previous value.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("state %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
