package strata

import "fmt"

// ErrorCode represents specific error conditions in the engine
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// Graph structure is invalid
	ErrCodeInvalidGraph
	// A referenced state does not exist
	ErrCodeUnknownState
	// Two transitions on the same state tie for the same event
	ErrCodeAmbiguousTransition
	// Sibling orthogonal regions fired transitions with overlapping scope
	ErrCodeRegionConflict
	// Machine is in the wrong phase for the requested operation
	ErrCodeInvalidState
	// Guard evaluation failed
	ErrCodeGuardFailed
	// Action execution failed
	ErrCodeActionFailed
	// Timer operation failed
	ErrCodeTimer
)

// GraphError reports a structural problem found while validating a state
// graph. It is always raised at build time; a graph that validates never
// produces a GraphError during dispatch.
type GraphError struct {
	Code    ErrorCode
	Element string
	Message string
}

func (e *GraphError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("graph error [%s]: %s", e.Element, e.Message)
	}
	return fmt.Sprintf("graph error: %s", e.Message)
}

// NewGraphError creates a graph validation error for the named element
func NewGraphError(element, message string) *GraphError {
	return &GraphError{
		Code:    ErrCodeInvalidGraph,
		Element: element,
		Message: message,
	}
}

// NewUnknownStateError creates an error for a reference to a missing state
func NewUnknownStateError(name string) *GraphError {
	return &GraphError{
		Code:    ErrCodeUnknownState,
		Element: name,
		Message: fmt.Sprintf("state '%s' does not exist", name),
	}
}

// AmbiguousTransitionError reports that more than one transition on the same
// state was eligible for a single event, or that sibling orthogonal regions
// fired transitions whose exit scopes overlap while the machine runs in
// strict region-conflict mode. Both indicate an authoring defect; the engine
// never resolves them by arbitrary order.
type AmbiguousTransitionError struct {
	Code       ErrorCode
	State      string
	Event      string
	Candidates []string
}

func (e *AmbiguousTransitionError) Error() string {
	return fmt.Sprintf("ambiguous transition in state '%s' on event '%s': %d candidates %v",
		e.State, e.Event, len(e.Candidates), e.Candidates)
}

// NewAmbiguousTransitionError creates a same-state tie error
func NewAmbiguousTransitionError(state, event string, candidates []string) *AmbiguousTransitionError {
	return &AmbiguousTransitionError{
		Code:       ErrCodeAmbiguousTransition,
		State:      state,
		Event:      event,
		Candidates: candidates,
	}
}

// NewRegionConflictError creates a cross-region overlap error
func NewRegionConflictError(state, event string, candidates []string) *AmbiguousTransitionError {
	return &AmbiguousTransitionError{
		Code:       ErrCodeRegionConflict,
		State:      state,
		Event:      event,
		Candidates: candidates,
	}
}

// InvalidStateError reports a machine-lifecycle violation: dispatching before
// Start, after Stop, or re-entrantly from inside a callback.
type InvalidStateError struct {
	Code      ErrorCode
	Operation string
	Message   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid machine state during %s: %s", e.Operation, e.Message)
}

// NewInvalidStateError creates a machine-lifecycle error
func NewInvalidStateError(operation, message string) *InvalidStateError {
	return &InvalidStateError{
		Code:      ErrCodeInvalidState,
		Operation: operation,
		Message:   message,
	}
}

// GuardError wraps a failure raised while evaluating a transition guard
type GuardError struct {
	State string
	Event string
	Err   error
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("guard failed in state '%s' on event '%s': %v", e.State, e.Event, e.Err)
}

func (e *GuardError) Unwrap() error {
	return e.Err
}

// NewGuardError creates a guard evaluation error
func NewGuardError(state, event string, err error) *GuardError {
	return &GuardError{
		State: state,
		Event: event,
		Err:   err,
	}
}

// ActionError wraps a failure raised by an entry, exit or transition action.
// Stage identifies which hook failed.
type ActionError struct {
	Stage string
	State string
	Event string
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s action failed in state '%s' on event '%s': %v", e.Stage, e.State, e.Event, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// NewActionError creates an action execution error
func NewActionError(stage, state, event string, err error) *ActionError {
	return &ActionError{
		Stage: stage,
		State: state,
		Event: event,
		Err:   err,
	}
}

// TimerError reports a scheduling or cancellation problem in the timer layer
type TimerError struct {
	Code    ErrorCode
	TimerID string
	Message string
}

func (e *TimerError) Error() string {
	return fmt.Sprintf("timer error [%s]: %s", e.TimerID, e.Message)
}

// NewTimerError creates a timer error
func NewTimerError(timerID, message string) *TimerError {
	return &TimerError{
		Code:    ErrCodeTimer,
		TimerID: timerID,
		Message: message,
	}
}

// IsGraphError checks if an error is a GraphError
func IsGraphError(err error) bool {
	_, ok := err.(*GraphError)
	return ok
}

// IsAmbiguousTransitionError checks if an error is an AmbiguousTransitionError
func IsAmbiguousTransitionError(err error) bool {
	_, ok := err.(*AmbiguousTransitionError)
	return ok
}

// IsInvalidStateError checks if an error is an InvalidStateError
func IsInvalidStateError(err error) bool {
	_, ok := err.(*InvalidStateError)
	return ok
}

// IsGuardError checks if an error is a GuardError
func IsGuardError(err error) bool {
	_, ok := err.(*GuardError)
	return ok
}

// IsActionError checks if an error is an ActionError
func IsActionError(err error) bool {
	_, ok := err.(*ActionError)
	return ok
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	switch e := err.(type) {
	case *GraphError:
		return e.Code
	case *AmbiguousTransitionError:
		return e.Code
	case *InvalidStateError:
		return e.Code
	case *GuardError:
		return ErrCodeGuardFailed
	case *ActionError:
		return ErrCodeActionFailed
	case *TimerError:
		return e.Code
	default:
		return ErrCodeNone
	}
}
