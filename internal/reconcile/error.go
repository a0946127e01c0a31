package reconcile

import (
	"errors"
	"fmt"
)

// ErrorKind classifies reconciliation failures.
type ErrorKind int

const (
	// ErrorKindAuthentication means the charger service session could not be established.
	ErrorKindAuthentication ErrorKind = iota + 1
	// ErrorKindResolution means the site, circuit or charger could not be found.
	ErrorKindResolution
	// ErrorKindTransient means a state read or write failed and the attempt was dropped.
	ErrorKindTransient
)

// String implements the fmt.Stringer interface.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindAuthentication:
		return "authentication"
	case ErrorKindResolution:
		return "resolution"
	case ErrorKindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is a reconciliation failure with the step it happened in.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error during %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a reconciliation error anywhere in the chain.
func KindOf(err error) (ErrorKind, bool) {
	var rErr *Error
	if errors.As(err, &rErr) {
		return rErr.Kind, true
	}

	return 0, false
}
