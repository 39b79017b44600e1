package plugin

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotImplemented signals that a plugin has nothing to contribute for
	// the current input. It is never reported as a failure.
	ErrNotImplemented = errors.New("capability not implemented")

	// ErrPluginTimeout is returned when a plugin exceeds its time budget.
	ErrPluginTimeout = errors.New("plugin execution timed out")

	// ErrDuplicateName is returned when a name is registered twice in a family.
	ErrDuplicateName = errors.New("plugin already registered")
)

// ProcessingError is a recognized, named failure raised by a plugin while
// doing its work.
type ProcessingError struct {
	Detail string
	Err    error
}

// NewProcessingError builds a ProcessingError with a formatted detail.
func NewProcessingError(format string, args ...any) error {
	return &ProcessingError{Detail: fmt.Sprintf(format, args...)}
}

// WrapProcessingError marks err as a domain failure with the given detail.
func WrapProcessingError(err error, detail string) error {
	return &ProcessingError{Detail: detail, Err: err}
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// FaultKind classifies the outcome of one plugin invocation.
type FaultKind int

const (
	FaultNone FaultKind = iota
	// FaultAbsent means the plugin declined: skip silently.
	FaultAbsent
	// FaultDomain means the plugin reported a ProcessingError: warn and skip.
	FaultDomain
	// FaultUnexpected covers every other error: warn and skip.
	FaultUnexpected
)

func (k FaultKind) String() string {
	switch k {
	case FaultNone:
		return "ok"
	case FaultAbsent:
		return "absent"
	case FaultDomain:
		return "domain"
	case FaultUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by a plugin invocation to its FaultKind.
// A ProcessingError wrapping ErrNotImplemented is still a domain fault.
func Classify(err error) FaultKind {
	if err == nil {
		return FaultNone
	}
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return FaultDomain
	}
	if errors.Is(err, ErrNotImplemented) {
		return FaultAbsent
	}
	return FaultUnexpected
}
