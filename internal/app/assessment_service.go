package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"campus-assessment-service/internal/domain"
)

// AssessmentService owns the MCQ session state machine for one participant
// per event: start/resume, submit, and lazy auto-expiry.
type AssessmentService struct {
	events        EventStore
	registrations RegistrationStore
	questions     QuestionRepository
	sessions      SessionStore
	now           func() time.Time
}

func NewAssessmentService(events EventStore, registrations RegistrationStore, questions QuestionRepository, sessions SessionStore) *AssessmentService {
	return &AssessmentService{
		events:        events,
		registrations: registrations,
		questions:     questions,
		sessions:      sessions,
		now:           time.Now,
	}
}

// WithClock overrides the clock for deterministic expiry tests.
func (s *AssessmentService) WithClock(now func() time.Time) *AssessmentService {
	s.now = now
	return s
}

// AssessmentResult is returned from Submit.
type AssessmentResult struct {
	TotalScore   float64              `json:"totalScore"`
	CorrectCount int                  `json:"correctCount"`
	WrongCount   int                  `json:"wrongCount"`
	Status       domain.SessionStatus `json:"status"`
	Rank         int                  `json:"rank"`
}

// RemainingTime is returned from Remaining.
type RemainingTime struct {
	Remaining    time.Duration        `json:"remaining"`
	Status       domain.SessionStatus `json:"status"`
	StartedAt    time.Time            `json:"startedAt"`
	EventEndTime time.Time            `json:"eventEndTime"`
}

// Start begins a session or resumes an IN_PROGRESS one, returning the
// event's questions without grading data. Resuming never resets the start
// time. A terminal session fails with ErrAlreadySubmitted.
func (s *AssessmentService) Start(ctx context.Context, participantID, eventID string) ([]domain.QuestionView, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.Before(event.StartTime) || now.After(event.EndTime) {
		return nil, domain.ErrEventNotLive
	}

	if err := s.requireRegistration(ctx, eventID, participantID); err != nil {
		return nil, err
	}

	session, err := s.sessions.GetSession(ctx, eventID, participantID)
	switch {
	case err == nil:
		if session.Status.Terminal() {
			return nil, domain.ErrAlreadySubmitted
		}
		return s.questionViews(ctx, eventID)
	case errors.Is(err, domain.ErrNotStarted):
		// fall through to create
	default:
		return nil, err
	}

	err = s.sessions.CreateSession(ctx, domain.Session{
		ID:            uuid.NewString(),
		EventID:       eventID,
		ParticipantID: participantID,
		Status:        domain.SessionInProgress,
		StartedAt:     now,
	})
	if errors.Is(err, domain.ErrSessionExists) {
		// Lost a concurrent start; the other call's session wins and this
		// one degrades to a resume.
		existing, getErr := s.sessions.GetSession(ctx, eventID, participantID)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Status.Terminal() {
			return nil, domain.ErrAlreadySubmitted
		}
	} else if err != nil {
		return nil, err
	}

	return s.questionViews(ctx, eventID)
}

// Submit grades the answer batch and terminates the session in one
// compare-and-set write. An over-budget submission is still scored but the
// outgoing state is AUTO_SUBMITTED instead of COMPLETED.
func (s *AssessmentService) Submit(ctx context.Context, participantID, eventID string, answers []domain.Answer) (AssessmentResult, error) {
	session, err := s.sessions.GetSession(ctx, eventID, participantID)
	if err != nil {
		return AssessmentResult{}, err
	}
	if session.Status.Terminal() {
		return AssessmentResult{}, domain.ErrAlreadySubmitted
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return AssessmentResult{}, err
	}

	questions, err := s.questions.QuestionsByEvent(ctx, eventID)
	if err != nil {
		return AssessmentResult{}, err
	}

	total, correct, wrong, err := scoreAnswers(questions, answers)
	if err != nil {
		return AssessmentResult{}, err
	}

	now := s.now()
	status := domain.SessionCompleted
	if event.Duration > 0 && now.Sub(session.StartedAt) > event.Duration {
		status = domain.SessionAutoSubmitted
	}

	session.Status = status
	session.SubmittedAt = now
	session.Answers = answers
	session.TotalScore = total
	session.CorrectCount = correct
	session.WrongCount = wrong

	if err := s.sessions.FinishSession(ctx, session); err != nil {
		return AssessmentResult{}, err
	}

	rank, err := s.rank(ctx, eventID, participantID)
	if err != nil {
		return AssessmentResult{}, err
	}

	return AssessmentResult{
		TotalScore:   total,
		CorrectCount: correct,
		WrongCount:   wrong,
		Status:       status,
		Rank:         rank,
	}, nil
}

// Remaining reports the time budget left. When the budget is already spent
// this call itself performs the AUTO_SUBMITTED transition, scoring whatever
// answers the session holds (none, for a session that never submitted).
func (s *AssessmentService) Remaining(ctx context.Context, participantID, eventID string) (RemainingTime, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return RemainingTime{}, err
	}
	if err := s.requireRegistration(ctx, eventID, participantID); err != nil {
		return RemainingTime{}, err
	}

	session, err := s.sessions.GetSession(ctx, eventID, participantID)
	if err != nil {
		return RemainingTime{}, err
	}
	if session.Status.Terminal() {
		return RemainingTime{
			Remaining:    0,
			Status:       session.Status,
			StartedAt:    session.StartedAt,
			EventEndTime: event.EndTime,
		}, nil
	}

	now := s.now()
	remaining := event.Duration - now.Sub(session.StartedAt)
	if remaining > 0 {
		return RemainingTime{
			Remaining:    remaining,
			Status:       session.Status,
			StartedAt:    session.StartedAt,
			EventEndTime: event.EndTime,
		}, nil
	}

	// Lazy expiry: score the answers already recorded and terminate.
	questions, err := s.questions.QuestionsByEvent(ctx, eventID)
	if err != nil {
		return RemainingTime{}, err
	}
	total, correct, wrong, err := scoreAnswers(questions, session.Answers)
	if err != nil {
		return RemainingTime{}, err
	}

	session.Status = domain.SessionAutoSubmitted
	session.SubmittedAt = now
	session.TotalScore = total
	session.CorrectCount = correct
	session.WrongCount = wrong

	if err := s.sessions.FinishSession(ctx, session); err != nil {
		// A concurrent submit already terminated it; report the stored state.
		if errors.Is(err, domain.ErrAlreadySubmitted) {
			stored, getErr := s.sessions.GetSession(ctx, eventID, participantID)
			if getErr != nil {
				return RemainingTime{}, getErr
			}
			return RemainingTime{Remaining: 0, Status: stored.Status, StartedAt: stored.StartedAt, EventEndTime: event.EndTime}, nil
		}
		return RemainingTime{}, err
	}

	return RemainingTime{
		Remaining:    0,
		Status:       domain.SessionAutoSubmitted,
		StartedAt:    session.StartedAt,
		EventEndTime: event.EndTime,
	}, nil
}

func (s *AssessmentService) requireRegistration(ctx context.Context, eventID, participantID string) error {
	reg, err := s.registrations.GetRegistration(ctx, eventID, participantID)
	if err != nil {
		if errors.Is(err, domain.ErrRegistrationNotFound) {
			return domain.ErrNotRegistered
		}
		return err
	}
	if reg.Status == domain.RegistrationCancelled {
		return domain.ErrNotRegistered
	}
	return nil
}

func (s *AssessmentService) questionViews(ctx context.Context, eventID string) ([]domain.QuestionView, error) {
	questions, err := s.questions.QuestionsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	views := make([]domain.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, q.View())
	}
	return views, nil
}

func (s *AssessmentService) rank(ctx context.Context, eventID, participantID string) (int, error) {
	sessions, err := s.sessions.ListSessionsByEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return SessionRank(sessions, participantID), nil
}
