package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/psantana5/steward-action/internal/actions"
)

// Kind categorizes a pipeline failure by the step that raised it
type Kind int

const (
	UnclassifiedFailure Kind = iota
	InputFailure
	PreconditionFailure
	InstallFailure
	IdentityFailure
	WorkspacePrepareFailure
	WorkspaceCacheFailure
	LaunchFailure
)

// String returns string representation of the kind
func (k Kind) String() string {
	switch k {
	case InputFailure:
		return "input"
	case PreconditionFailure:
		return "precondition"
	case InstallFailure:
		return "install"
	case IdentityFailure:
		return "identity"
	case WorkspacePrepareFailure:
		return "workspace_prepare"
	case WorkspaceCacheFailure:
		return "workspace_cache"
	case LaunchFailure:
		return "launch"
	default:
		return "unclassified"
	}
}

// StepError wraps a step's failure with its kind. The message is the
// underlying error's, unchanged.
type StepError struct {
	Kind Kind
	Step string
	Err  error
}

// Error implements error interface
func (e *StepError) Error() string {
	return e.Err.Error()
}

// Unwrap implements error unwrapping
func (e *StepError) Unwrap() error {
	return e.Err
}

// NewStepError creates a new step error
func NewStepError(kind Kind, step string, err error) *StepError {
	return &StepError{Kind: kind, Step: step, Err: err}
}

// panicError carries a value recovered from a panicking step
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprint(e.value)
}

// KindOf returns the kind of the first StepError in err's chain
func KindOf(err error) Kind {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Kind
	}
	return UnclassifiedFailure
}

// Message formats err for the failure sink. Joined errors get one
// marked line each.
func Message(err error) string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var lines []string
		for _, e := range joined.Unwrap() {
			if e != nil {
				lines = append(lines, Message(e))
			}
		}
		return strings.Join(lines, "\n")
	}
	return actions.FailureGlyph + err.Error()
}
