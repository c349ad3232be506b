package flow

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrEditOfUnansweredStep = errors.New("edit of unanswered step")
	ErrOutOfOrderSubmit     = errors.New("answer submitted for a step other than the current one")
	ErrDuplicateSubmission  = errors.New("duplicate submission")
	ErrEditInProgress       = errors.New("an edit is in progress")
	ErrNotEditing           = errors.New("no edit in progress")
	ErrNotAnswering         = errors.New("flow is not accepting answers")
	ErrNotReady             = errors.New("order is not ready to be submitted")
	ErrStepLocked           = errors.New("step is fixed in free order mode")
	ErrAlreadyAuthenticated = errors.New("flow already authenticated")
	ErrUnknownStep          = errors.New("unknown step")
)

// Silent reports whether an error is an internal guard that callers should swallow.
func Silent(err error) bool {
	return errors.Is(err, ErrDuplicateSubmission) || errors.Is(err, ErrEditOfUnansweredStep)
}
