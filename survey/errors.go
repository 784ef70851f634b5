package survey

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrNotFound means the procedure returned nothing for the requested survey.
var ErrNotFound = errors.New("survey not found")

// ValidationError lists every problem found in a request. It is returned
// before any database work starts.
type ValidationError struct {
	errs *multierror.Error
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + strings.Join(e.Problems(), "; ")
}

func (e *ValidationError) Problems() []string {
	problems := make([]string, 0, e.errs.Len())
	for _, err := range e.errs.WrappedErrors() {
		problems = append(problems, err.Error())
	}
	return problems
}

func (e *ValidationError) Unwrap() error {
	return e.errs
}

// MalformedDataError reports procedure output that cannot be mapped onto a
// survey: unparseable embedded JSON, or a required field with no safe default.
type MalformedDataError struct {
	Reason string
	Err    error
}

func (e *MalformedDataError) Error() string {
	msg := "malformed upstream data: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedDataError) Unwrap() error {
	return e.Err
}

func malformed(reason string, args ...any) error {
	return &MalformedDataError{Reason: fmt.Sprintf(reason, args...)}
}
