package benchmark

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindPrecondition          ErrorKind = "precondition"
	KindCapabilityUnavailable ErrorKind = "capability_unavailable"
	KindResource              ErrorKind = "resource"
	KindInvalidParameters     ErrorKind = "invalid_parameters"
	KindInternal              ErrorKind = "internal"
)

var (
	// A test ran before the state it depends on exists, e.g. reading a backing file that was never written.
	ErrPrecondition = errors.New("precondition not met")

	// A test needs a capability (an accelerator backend) the host does not have.
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// A filesystem operation failed: permission denied, disk full, invalid path.
	ErrResource = errors.New("resource error")

	ErrInvalidParameters = errors.New("invalid parameters")
)

var sentinels = map[ErrorKind]error{
	KindPrecondition:          ErrPrecondition,
	KindCapabilityUnavailable: ErrCapabilityUnavailable,
	KindResource:              ErrResource,
	KindInvalidParameters:     ErrInvalidParameters,
}

// Error is a classified workload failure. errors.Is matches both the sentinel of its kind and anything in the
// wrapped chain.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if s, ok := sentinels[e.Kind]; ok {
		msg = s.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

func PreconditionError(op string, err error) error {
	return &Error{Kind: KindPrecondition, Op: op, Err: err}
}

func CapabilityError(op string, err error) error {
	return &Error{Kind: KindCapabilityUnavailable, Op: op, Err: err}
}

func ResourceError(op string, err error) error {
	return &Error{Kind: KindResource, Op: op, Err: err}
}

func ParamError(op string, err error) error {
	return &Error{Kind: KindInvalidParameters, Op: op, Err: err}
}

// ParamErrorf is shorthand for a parameter validation failure.
func ParamErrorf(format string, args ...any) error {
	return ParamError("", fmt.Errorf(format, args...))
}

// KindOf classifies err. Unclassified errors are KindInternal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for kind, s := range sentinels {
		if errors.Is(err, s) {
			return kind
		}
	}
	return KindInternal
}
