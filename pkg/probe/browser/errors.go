package browser

import (
	"errors"
	"fmt"
)

// ErrTimeout reports that a bounded wait expired before its condition held.
var ErrTimeout = errors.New("timeout")

// DriverError wraps a failure of the underlying automation session:
// the browser crashed, an element query failed, or a script threw.
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver %s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

func driverErr(op string, err error) error {
	return &DriverError{Op: op, Err: err}
}
