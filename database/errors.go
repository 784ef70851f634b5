package database

import (
	"errors"
)

var (
	// ErrConnectivity marks failures to reach the database at all.
	ErrConnectivity = errors.New("database unreachable")
	// ErrExecution marks failures of a statement once connected: unknown or
	// malformed procedure, constraint violation, scan errors.
	ErrExecution = errors.New("database execution failed")
)

type Kind int

const (
	KindConnectivity Kind = iota + 1
	KindExecution
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindExecution:
		return "execution"
	}
	return "unknown"
}

// DataAccessError is returned by every Gateway operation that fails.
// errors.Is matches both its kind sentinel and the driver error.
type DataAccessError struct {
	Kind      Kind
	Procedure string
	Err       error
}

var _ error = (*DataAccessError)(nil)

func connectivityError(proc string, cause error) error {
	return &DataAccessError{Kind: KindConnectivity, Procedure: proc, Err: cause}
}

func executionError(proc string, cause error) error {
	return &DataAccessError{Kind: KindExecution, Procedure: proc, Err: cause}
}

func (err *DataAccessError) Error() string {
	if err == nil {
		return "(*DataAccessError)(nil)"
	}
	message := err.sentinel().Error()
	if err.Procedure != "" {
		message += ": " + err.Procedure
	}
	if err.Err != nil {
		message += ": " + err.Err.Error()
	}
	return message
}

func (err *DataAccessError) Unwrap() []error {
	if err.Err == nil {
		return []error{err.sentinel()}
	}
	return []error{err.sentinel(), err.Err}
}

func (err *DataAccessError) sentinel() error {
	if err.Kind == KindConnectivity {
		return ErrConnectivity
	}
	return ErrExecution
}
