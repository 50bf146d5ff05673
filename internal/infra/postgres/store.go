package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"campus-assessment-service/internal/domain"
)

// Store is the pgx-backed implementation of every app repository. The
// uniqueness invariants live in the schema (composite UNIQUE indexes on
// registrations and sessions) and the exactly-once transitions are plain
// conditional updates, so concurrent engines and sweep runs coordinate
// through the database rather than through process-local locks.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EventStore

func (s *Store) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	var (
		event       domain.Event
		durationSec int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, start_time, end_time, duration_seconds, total_marks, attendance_reconciled
		 FROM events WHERE id=$1`, id).
		Scan(&event.ID, &event.Title, &event.StartTime, &event.EndTime, &durationSec, &event.TotalMarks, &event.AttendanceReconciled)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	event.Duration = time.Duration(durationSec) * time.Second
	return event, nil
}

func (s *Store) ListEndedUnreconciled(ctx context.Context, now time.Time) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, start_time, end_time, duration_seconds, total_marks, attendance_reconciled
		 FROM events WHERE end_time < $1 AND attendance_reconciled = FALSE`, now)
	if err != nil {
		return nil, fmt.Errorf("list ended events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			event       domain.Event
			durationSec int64
		)
		if err := rows.Scan(&event.ID, &event.Title, &event.StartTime, &event.EndTime, &durationSec, &event.TotalMarks, &event.AttendanceReconciled); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Duration = time.Duration(durationSec) * time.Second
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) MarkReconciled(ctx context.Context, id string) (bool, error) {
	// Conditional update: only one sweep run per event performs the flip.
	tag, err := s.pool.Exec(ctx,
		`UPDATE events SET attendance_reconciled = TRUE
		 WHERE id=$1 AND attendance_reconciled = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("mark reconciled: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RegistrationStore

func (s *Store) CreateRegistration(ctx context.Context, reg domain.Registration) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO registrations (id, event_id, participant_id, registered_at, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (event_id, participant_id) DO NOTHING`,
		reg.ID, reg.EventID, reg.ParticipantID, reg.RegisteredAt, reg.Status)
	if err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyRegistered
	}
	return nil
}

func (s *Store) GetRegistration(ctx context.Context, eventID, participantID string) (domain.Registration, error) {
	var reg domain.Registration
	err := s.pool.QueryRow(ctx,
		`SELECT id, event_id, participant_id, registered_at, status
		 FROM registrations WHERE event_id=$1 AND participant_id=$2`, eventID, participantID).
		Scan(&reg.ID, &reg.EventID, &reg.ParticipantID, &reg.RegisteredAt, &reg.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Registration{}, domain.ErrRegistrationNotFound
	}
	if err != nil {
		return domain.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (s *Store) UpdateRegistration(ctx context.Context, reg domain.Registration) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE registrations SET status=$1 WHERE event_id=$2 AND participant_id=$3`,
		reg.Status, reg.EventID, reg.ParticipantID)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRegistrationNotFound
	}
	return nil
}

func (s *Store) ListRegistrations(ctx context.Context, eventID string) ([]domain.Registration, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_id, participant_id, registered_at, status
		 FROM registrations WHERE event_id=$1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []domain.Registration
	for rows.Next() {
		var reg domain.Registration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.ParticipantID, &reg.RegisteredAt, &reg.Status); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (s *Store) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id=$1`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

// QuestionRepository

func (s *Store) QuestionsByEvent(ctx context.Context, eventID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_id, text, options, correct_option, marks, penalty
		 FROM questions WHERE event_id=$1 ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q       domain.Question
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.EventID, &q.Text, &options, &q.CorrectOption, &q.Marks, &q.Penalty); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// SessionStore

func (s *Store) CreateSession(ctx context.Context, session domain.Session) error {
	answers, err := json.Marshal(session.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, event_id, participant_id, status, started_at, submitted_at, answers, total_score, correct_count, wrong_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (event_id, participant_id) DO NOTHING`,
		session.ID, session.EventID, session.ParticipantID, session.Status,
		nullTime(session.StartedAt), nullTime(session.SubmittedAt), answers,
		session.TotalScore, session.CorrectCount, session.WrongCount)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionExists
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, eventID, participantID string) (domain.Session, error) {
	var (
		session     domain.Session
		startedAt   *time.Time
		submittedAt *time.Time
		answers     []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, event_id, participant_id, status, started_at, submitted_at, answers, total_score, correct_count, wrong_count
		 FROM sessions WHERE event_id=$1 AND participant_id=$2`, eventID, participantID).
		Scan(&session.ID, &session.EventID, &session.ParticipantID, &session.Status,
			&startedAt, &submittedAt, &answers, &session.TotalScore, &session.CorrectCount, &session.WrongCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrNotStarted
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	if startedAt != nil {
		session.StartedAt = *startedAt
	}
	if submittedAt != nil {
		session.SubmittedAt = *submittedAt
	}
	if err := json.Unmarshal(answers, &session.Answers); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	return session, nil
}

func (s *Store) FinishSession(ctx context.Context, session domain.Session) error {
	answers, err := json.Marshal(session.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	// Compare-and-set: the terminal write lands only while the stored row
	// is still IN_PROGRESS, so two concurrent submits cannot both succeed.
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions
		 SET status=$1, submitted_at=$2, answers=$3, total_score=$4, correct_count=$5, wrong_count=$6
		 WHERE event_id=$7 AND participant_id=$8 AND status='IN_PROGRESS'`,
		session.Status, nullTime(session.SubmittedAt), answers,
		session.TotalScore, session.CorrectCount, session.WrongCount,
		session.EventID, session.ParticipantID)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM sessions WHERE event_id=$1 AND participant_id=$2)`,
		session.EventID, session.ParticipantID).Scan(&exists); err != nil {
		return fmt.Errorf("finish session recheck: %w", err)
	}
	if !exists {
		return domain.ErrNotStarted
	}
	return domain.ErrAlreadySubmitted
}

func (s *Store) ListSessionsByEvent(ctx context.Context, eventID string) ([]domain.Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_id, participant_id, status, started_at, submitted_at, answers, total_score, correct_count, wrong_count
		 FROM sessions WHERE event_id=$1
		 ORDER BY total_score DESC, submitted_at ASC NULLS LAST`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var (
			session     domain.Session
			startedAt   *time.Time
			submittedAt *time.Time
			answers     []byte
		)
		if err := rows.Scan(&session.ID, &session.EventID, &session.ParticipantID, &session.Status,
			&startedAt, &submittedAt, &answers, &session.TotalScore, &session.CorrectCount, &session.WrongCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if startedAt != nil {
			session.StartedAt = *startedAt
		}
		if submittedAt != nil {
			session.SubmittedAt = *submittedAt
		}
		if err := json.Unmarshal(answers, &session.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// ContestStore / ProblemStore

func (s *Store) GetContest(ctx context.Context, id string) (domain.Contest, error) {
	var (
		contest    domain.Contest
		problemIDs []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, start_time, end_time, problem_ids FROM contests WHERE id=$1`, id).
		Scan(&contest.ID, &contest.Title, &contest.StartTime, &contest.EndTime, &problemIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Contest{}, domain.ErrContestNotFound
	}
	if err != nil {
		return domain.Contest{}, fmt.Errorf("get contest: %w", err)
	}
	if err := json.Unmarshal(problemIDs, &contest.ProblemIDs); err != nil {
		return domain.Contest{}, fmt.Errorf("unmarshal problem ids: %w", err)
	}
	return contest, nil
}

func (s *Store) GetProblem(ctx context.Context, id string) (domain.Problem, error) {
	var (
		problem   domain.Problem
		testCases []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, description, difficulty, test_cases FROM problems WHERE id=$1`, id).
		Scan(&problem.ID, &problem.Title, &problem.Description, &problem.Difficulty, &testCases)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Problem{}, domain.ErrProblemNotFound
	}
	if err != nil {
		return domain.Problem{}, fmt.Errorf("get problem: %w", err)
	}
	if err := json.Unmarshal(testCases, &problem.TestCases); err != nil {
		return domain.Problem{}, fmt.Errorf("unmarshal test cases: %w", err)
	}
	return problem, nil
}

// SubmissionStore

func (s *Store) CreateSubmission(ctx context.Context, sub domain.Submission) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO submissions (id, contest_id, problem_id, participant_id, code, language, verdict, score, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sub.ID, sub.ContestID, sub.ProblemID, sub.ParticipantID, sub.Code, sub.Language, sub.Verdict, sub.Score, sub.SubmittedAt)
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

func (s *Store) FinalizeSubmission(ctx context.Context, id string, score int, verdict domain.Verdict) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE submissions SET score=$1, verdict=$2 WHERE id=$3 AND verdict='PENDING'`,
		score, verdict, id)
	if err != nil {
		return fmt.Errorf("finalize submission: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM submissions WHERE id=$1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("finalize submission recheck: %w", err)
	}
	if !exists {
		return domain.ErrSubmissionNotFound
	}
	// Already finalized: keep the first verdict.
	return nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	var sub domain.Submission
	err := s.pool.QueryRow(ctx,
		`SELECT id, contest_id, problem_id, participant_id, code, language, verdict, score, submitted_at
		 FROM submissions WHERE id=$1`, id).
		Scan(&sub.ID, &sub.ContestID, &sub.ProblemID, &sub.ParticipantID, &sub.Code, &sub.Language, &sub.Verdict, &sub.Score, &sub.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

func (s *Store) ListSubmissionsByContest(ctx context.Context, contestID string) ([]domain.Submission, error) {
	return s.listSubmissions(ctx, `contest_id`, contestID)
}

func (s *Store) ListSubmissionsByProblem(ctx context.Context, problemID string) ([]domain.Submission, error) {
	return s.listSubmissions(ctx, `problem_id`, problemID)
}

func (s *Store) ListSubmissionsByParticipant(ctx context.Context, participantID string) ([]domain.Submission, error) {
	return s.listSubmissions(ctx, `participant_id`, participantID)
}

func (s *Store) listSubmissions(ctx context.Context, column, value string) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, contest_id, problem_id, participant_id, code, language, verdict, score, submitted_at
		 FROM submissions WHERE `+column+`=$1 ORDER BY submitted_at`, value)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Submission
	for rows.Next() {
		var sub domain.Submission
		if err := rows.Scan(&sub.ID, &sub.ContestID, &sub.ProblemID, &sub.ParticipantID, &sub.Code, &sub.Language, &sub.Verdict, &sub.Score, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ParticipantDirectory

func (s *Store) GetParticipant(ctx context.Context, id string) (domain.Participant, error) {
	var participant domain.Participant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, roll_number FROM participants WHERE id=$1`, id).
		Scan(&participant.ID, &participant.Name, &participant.RollNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return participant, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
