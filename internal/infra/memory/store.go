package memory

import (
	"context"
	"sync"
	"time"

	"campus-assessment-service/internal/domain"
)

// Store is an in-memory implementation of every app repository. It backs
// the unit tests and the no-database development mode. The same mutex
// guards every map, so the insert-if-absent and compare-and-set operations
// the engines depend on are atomic here the way the unique indexes and
// conditional updates make them atomic in Postgres.
type Store struct {
	mu            sync.RWMutex
	events        map[string]domain.Event
	registrations map[string]map[string]domain.Registration // eventID → participantID
	questions     map[string][]domain.Question              // eventID
	sessions      map[string]map[string]domain.Session      // eventID → participantID
	contests      map[string]domain.Contest
	problems      map[string]domain.Problem
	submissions   map[string]domain.Submission
	participants  map[string]domain.Participant
}

func NewStore() *Store {
	return &Store{
		events:        make(map[string]domain.Event),
		registrations: make(map[string]map[string]domain.Registration),
		questions:     make(map[string][]domain.Question),
		sessions:      make(map[string]map[string]domain.Session),
		contests:      make(map[string]domain.Contest),
		problems:      make(map[string]domain.Problem),
		submissions:   make(map[string]domain.Submission),
		participants:  make(map[string]domain.Participant),
	}
}

// Seed helpers for tests and the sample dataset.

func (s *Store) PutEvent(event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
}

func (s *Store) PutQuestions(eventID string, questions []domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[eventID] = questions
}

func (s *Store) PutContest(contest domain.Contest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contests[contest.ID] = contest
}

func (s *Store) PutProblem(problem domain.Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problems[problem.ID] = problem
}

func (s *Store) PutParticipant(participant domain.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[participant.ID] = participant
}

// EventStore

func (s *Store) GetEvent(_ context.Context, id string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return event, nil
}

func (s *Store) ListEndedUnreconciled(_ context.Context, now time.Time) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ended []domain.Event
	for _, event := range s.events {
		if now.After(event.EndTime) && !event.AttendanceReconciled {
			ended = append(ended, event)
		}
	}
	return ended, nil
}

func (s *Store) MarkReconciled(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return false, domain.ErrEventNotFound
	}
	if event.AttendanceReconciled {
		return false, nil
	}
	event.AttendanceReconciled = true
	s.events[id] = event
	return true, nil
}

// RegistrationStore

func (s *Store) CreateRegistration(_ context.Context, reg domain.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byParticipant, ok := s.registrations[reg.EventID]
	if !ok {
		byParticipant = make(map[string]domain.Registration)
		s.registrations[reg.EventID] = byParticipant
	}
	if _, exists := byParticipant[reg.ParticipantID]; exists {
		return domain.ErrAlreadyRegistered
	}
	byParticipant[reg.ParticipantID] = reg
	return nil
}

func (s *Store) GetRegistration(_ context.Context, eventID, participantID string) (domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.registrations[eventID][participantID]
	if !ok {
		return domain.Registration{}, domain.ErrRegistrationNotFound
	}
	return reg, nil
}

func (s *Store) UpdateRegistration(_ context.Context, reg domain.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registrations[reg.EventID][reg.ParticipantID]; !ok {
		return domain.ErrRegistrationNotFound
	}
	s.registrations[reg.EventID][reg.ParticipantID] = reg
	return nil
}

func (s *Store) ListRegistrations(_ context.Context, eventID string) ([]domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regs := make([]domain.Registration, 0, len(s.registrations[eventID]))
	for _, reg := range s.registrations[eventID] {
		regs = append(regs, reg)
	}
	return regs, nil
}

func (s *Store) CountRegistrations(_ context.Context, eventID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registrations[eventID]), nil
}

// QuestionRepository

func (s *Store) QuestionsByEvent(_ context.Context, eventID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	questions := make([]domain.Question, len(s.questions[eventID]))
	copy(questions, s.questions[eventID])
	return questions, nil
}

// SessionStore

func (s *Store) CreateSession(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byParticipant, ok := s.sessions[session.EventID]
	if !ok {
		byParticipant = make(map[string]domain.Session)
		s.sessions[session.EventID] = byParticipant
	}
	if _, exists := byParticipant[session.ParticipantID]; exists {
		return domain.ErrSessionExists
	}
	byParticipant[session.ParticipantID] = session
	return nil
}

func (s *Store) GetSession(_ context.Context, eventID, participantID string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[eventID][participantID]
	if !ok {
		return domain.Session{}, domain.ErrNotStarted
	}
	return session, nil
}

func (s *Store) FinishSession(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[session.EventID][session.ParticipantID]
	if !ok {
		return domain.ErrNotStarted
	}
	if stored.Status != domain.SessionInProgress {
		return domain.ErrAlreadySubmitted
	}
	s.sessions[session.EventID][session.ParticipantID] = session
	return nil
}

func (s *Store) ListSessionsByEvent(_ context.Context, eventID string) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]domain.Session, 0, len(s.sessions[eventID]))
	for _, session := range s.sessions[eventID] {
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// ContestStore / ProblemStore

func (s *Store) GetContest(_ context.Context, id string) (domain.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contest, ok := s.contests[id]
	if !ok {
		return domain.Contest{}, domain.ErrContestNotFound
	}
	return contest, nil
}

func (s *Store) GetProblem(_ context.Context, id string) (domain.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	problem, ok := s.problems[id]
	if !ok {
		return domain.Problem{}, domain.ErrProblemNotFound
	}
	return problem, nil
}

// SubmissionStore

func (s *Store) CreateSubmission(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[sub.ID] = sub
	return nil
}

func (s *Store) FinalizeSubmission(_ context.Context, id string, score int, verdict domain.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.ErrSubmissionNotFound
	}
	if sub.Verdict != domain.VerdictPending {
		return nil
	}
	sub.Score = score
	sub.Verdict = verdict
	s.submissions[id] = sub
	return nil
}

func (s *Store) GetSubmission(_ context.Context, id string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *Store) ListSubmissionsByContest(_ context.Context, contestID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subs []domain.Submission
	for _, sub := range s.submissions {
		if sub.ContestID == contestID {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

func (s *Store) ListSubmissionsByProblem(_ context.Context, problemID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subs []domain.Submission
	for _, sub := range s.submissions {
		if sub.ProblemID == problemID {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

func (s *Store) ListSubmissionsByParticipant(_ context.Context, participantID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subs []domain.Submission
	for _, sub := range s.submissions {
		if sub.ParticipantID == participantID {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

// ParticipantDirectory

func (s *Store) GetParticipant(_ context.Context, id string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participant, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return participant, nil
}
