package lateness

import "errors"

// Reason identifies why a planning run was rejected.
type Reason int

const (
	ReasonNoStation Reason = iota + 1
	ReasonNoClass
	ReasonClassFormat
	ReasonClassStart
	ReasonLineUnresolved
)

var reasonMessages = map[Reason]string{
	ReasonNoStation:      "Please select a station.",
	ReasonNoClass:        "Please select a class.",
	ReasonClassFormat:    "Invalid class time format.",
	ReasonClassStart:     "Could not read class start time.",
	ReasonLineUnresolved: "Could not determine train line.",
}

// ValidationError blocks the planning flow. Its message is meant for the
// student; Err holds the underlying cause when there is one.
type ValidationError struct {
	Reason Reason
	Err    error
}

func (e *ValidationError) Error() string { return reasonMessages[e.Reason] }
func (e *ValidationError) Unwrap() error { return e.Err }

// Is matches another ValidationError with the same reason.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}

// Sentinels for errors.Is.
var (
	ErrNoStation      = &ValidationError{Reason: ReasonNoStation}
	ErrNoClass        = &ValidationError{Reason: ReasonNoClass}
	ErrClassFormat    = &ValidationError{Reason: ReasonClassFormat}
	ErrClassStart     = &ValidationError{Reason: ReasonClassStart}
	ErrLineUnresolved = &ValidationError{Reason: ReasonLineUnresolved}
)

// ErrNotAwaitingConfirmation is returned by Confirm outside the late branch.
var ErrNotAwaitingConfirmation = errors.New("no late notice is waiting for confirmation")
