package discovery

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks caller errors that are fixed by changing the input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrClosed is returned by a Coordinator after Close.
	ErrClosed = errors.New("discovery coordinator closed")
)

// ArgumentError reports an invalid argument along with the parameter name.
// It matches ErrInvalidArgument and its cause with errors.Is.
type ArgumentError struct {
	Param string
	Err   error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %v", e.Param, e.Err)
}

func (e *ArgumentError) Unwrap() []error {
	return []error{ErrInvalidArgument, e.Err}
}
