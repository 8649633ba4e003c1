// ABOUTME: PersistenceError wraps storage failures with the operation that failed
// ABOUTME: Callers use errors.As to distinguish storage faults from capability faults
package sqlite

import "fmt"

// PersistenceError reports a failed read or write against the store
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
