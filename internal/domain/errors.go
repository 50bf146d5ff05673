package domain

import "errors"

var (
	// ErrEventNotFound is returned when the referenced event does not exist.
	ErrEventNotFound = errors.New("event not found")
	// ErrContestNotFound is returned when the referenced contest does not exist.
	ErrContestNotFound = errors.New("contest not found")
	// ErrProblemNotFound is returned when the referenced problem does not exist.
	ErrProblemNotFound = errors.New("problem not found")
	// ErrParticipantNotFound is returned when the participant id is unknown.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrSubmissionNotFound is returned when a submission lookup misses.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrNotRegistered is returned when no active registration ties the
	// participant to the event.
	ErrNotRegistered = errors.New("not registered for this event")
	// ErrRegistrationNotFound is returned when cancelling a missing registration.
	ErrRegistrationNotFound = errors.New("registration not found")

	// ErrEventNotLive is returned when a session action falls outside the
	// event's [start, end] window.
	ErrEventNotLive = errors.New("event is not live")
	// ErrContestNotActive is returned when a code submission falls outside
	// the contest's [start, end] window.
	ErrContestNotActive = errors.New("contest is not active")
	// ErrRegistrationClosed is returned when registering or cancelling at or
	// after event start.
	ErrRegistrationClosed = errors.New("registration closed: event already started")
	// ErrAlreadyCancelled is returned when cancelling twice.
	ErrAlreadyCancelled = errors.New("registration already cancelled")

	// ErrAlreadyRegistered is returned on a duplicate registration.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	// ErrAlreadySubmitted is returned when acting on a terminal session.
	ErrAlreadySubmitted = errors.New("assessment already submitted")
	// ErrSessionExists signals the store's one-session-per-pair invariant.
	ErrSessionExists = errors.New("session already exists")
	// ErrNotStarted is returned when no session exists for the pair.
	ErrNotStarted = errors.New("assessment not started")

	// ErrUnknownQuestion rejects a submission batch referencing a question id
	// the event does not contain.
	ErrUnknownQuestion = errors.New("unknown question in submission")
	// ErrTooManyAnswers rejects a batch with more answers than questions.
	ErrTooManyAnswers = errors.New("more answers than questions")
	// ErrUnsupportedLanguage rejects a language tag before any sandbox call.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Kind is the stable error taxonomy surfaced to callers.
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindInvalidState     Kind = "INVALID_STATE"
	KindAlreadySubmitted Kind = "ALREADY_SUBMITTED"
	KindNotStarted       Kind = "NOT_STARTED"
	KindInvalidArgument  Kind = "INVALID_ARGUMENT"
	KindInternal         Kind = "INTERNAL"
)

// KindOf classifies an error into the caller-facing taxonomy. Anything not
// recognized is Internal: not attributable to caller input.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrContestNotFound),
		errors.Is(err, ErrProblemNotFound),
		errors.Is(err, ErrParticipantNotFound),
		errors.Is(err, ErrSubmissionNotFound),
		errors.Is(err, ErrNotRegistered),
		errors.Is(err, ErrRegistrationNotFound):
		return KindNotFound
	case errors.Is(err, ErrEventNotLive),
		errors.Is(err, ErrContestNotActive),
		errors.Is(err, ErrRegistrationClosed),
		errors.Is(err, ErrAlreadyCancelled):
		return KindInvalidState
	case errors.Is(err, ErrAlreadySubmitted),
		errors.Is(err, ErrAlreadyRegistered),
		errors.Is(err, ErrSessionExists):
		return KindAlreadySubmitted
	case errors.Is(err, ErrNotStarted):
		return KindNotStarted
	case errors.Is(err, ErrUnknownQuestion),
		errors.Is(err, ErrTooManyAnswers),
		errors.Is(err, ErrUnsupportedLanguage):
		return KindInvalidArgument
	default:
		return KindInternal
	}
}
