package app

import (
	"context"
	"time"

	"campus-assessment-service/internal/domain"
)

// EventStore reads events and owns the attendance-reconciled flag.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	// ListEndedUnreconciled returns events whose end time has passed and
	// whose reconciled flag is still false.
	ListEndedUnreconciled(ctx context.Context, now time.Time) ([]domain.Event, error)
	// MarkReconciled flips the flag from false to true atomically. It
	// reports false when another run already flipped it.
	MarkReconciled(ctx context.Context, id string) (bool, error)
}

// RegistrationStore enforces one registration per (event, participant).
type RegistrationStore interface {
	// CreateRegistration fails with domain.ErrAlreadyRegistered when a row
	// for the pair exists.
	CreateRegistration(ctx context.Context, reg domain.Registration) error
	GetRegistration(ctx context.Context, eventID, participantID string) (domain.Registration, error)
	UpdateRegistration(ctx context.Context, reg domain.Registration) error
	ListRegistrations(ctx context.Context, eventID string) ([]domain.Registration, error)
	CountRegistrations(ctx context.Context, eventID string) (int, error)
}

// QuestionRepository loads the question set of an event (store or cache).
type QuestionRepository interface {
	QuestionsByEvent(ctx context.Context, eventID string) ([]domain.Question, error)
}

// SessionStore enforces one session per (event, participant) and provides
// the compare-and-set primitives the engines rely on.
type SessionStore interface {
	// CreateSession is insert-if-absent on (EventID, ParticipantID); it
	// fails with domain.ErrSessionExists when the pair already has a row.
	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, eventID, participantID string) (domain.Session, error)
	// FinishSession persists the terminal form of a session only if the
	// stored row is still IN_PROGRESS; otherwise domain.ErrAlreadySubmitted.
	// Two concurrent submits cannot both succeed.
	FinishSession(ctx context.Context, session domain.Session) error
	ListSessionsByEvent(ctx context.Context, eventID string) ([]domain.Session, error)
}

// ContestStore reads contests.
type ContestStore interface {
	GetContest(ctx context.Context, id string) (domain.Contest, error)
}

// ProblemStore reads problems with their test cases.
type ProblemStore interface {
	GetProblem(ctx context.Context, id string) (domain.Problem, error)
}

// SubmissionStore persists code submissions. A submission is created
// PENDING and finalized exactly once.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, sub domain.Submission) error
	// FinalizeSubmission sets score and verdict only while the row is still
	// PENDING; a second finalize is a no-op returning the stored row.
	FinalizeSubmission(ctx context.Context, id string, score int, verdict domain.Verdict) error
	GetSubmission(ctx context.Context, id string) (domain.Submission, error)
	ListSubmissionsByContest(ctx context.Context, contestID string) ([]domain.Submission, error)
	ListSubmissionsByProblem(ctx context.Context, problemID string) ([]domain.Submission, error)
	ListSubmissionsByParticipant(ctx context.Context, participantID string) ([]domain.Submission, error)
}

// ParticipantDirectory is the identity boundary: ids are trusted once
// authenticated, the directory only resolves display data.
type ParticipantDirectory interface {
	GetParticipant(ctx context.Context, id string) (domain.Participant, error)
}
