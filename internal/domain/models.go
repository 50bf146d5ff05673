package domain

import "time"

// SessionStatus is the lifecycle state of an assessment session.
// A session leaves IN_PROGRESS exactly once; every other state is terminal.
type SessionStatus string

const (
	SessionInProgress    SessionStatus = "IN_PROGRESS"
	SessionCompleted     SessionStatus = "COMPLETED"
	SessionAutoSubmitted SessionStatus = "AUTO_SUBMITTED"
	SessionAbsent        SessionStatus = "ABSENT"
)

// Terminal reports whether the status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAutoSubmitted || s == SessionAbsent
}

// Verdict is the terminal judging outcome of a code submission.
type Verdict string

const (
	VerdictPending     Verdict = "PENDING"
	VerdictAccepted    Verdict = "ACCEPTED"
	VerdictWrongAnswer Verdict = "WRONG_ANSWER"
)

// RegistrationStatus distinguishes active registrations from cancelled ones.
type RegistrationStatus string

const (
	RegistrationActive    RegistrationStatus = "REGISTERED"
	RegistrationCancelled RegistrationStatus = "CANCELLED"
)

// Event identifies one timed MCQ assessment window.
type Event struct {
	ID                   string        `json:"id"`
	Title                string        `json:"title"`
	StartTime            time.Time     `json:"startTime"`
	EndTime              time.Time     `json:"endTime"`
	Duration             time.Duration `json:"duration"` // per-participant time budget
	TotalMarks           float64       `json:"totalMarks"`
	AttendanceReconciled bool          `json:"attendanceReconciled"`
}

// Registration ties one participant to one event before it starts.
// At most one row exists per (EventID, ParticipantID).
type Registration struct {
	ID            string             `json:"id"`
	EventID       string             `json:"eventId"`
	ParticipantID string             `json:"participantId"`
	RegisteredAt  time.Time          `json:"registeredAt"`
	Status        RegistrationStatus `json:"status"`
}

// Question is one MCQ belonging to an event. CorrectOption indexes into
// Options. Penalty is subtracted on a wrong answer and may be zero.
type Question struct {
	ID            string   `json:"id"`
	EventID       string   `json:"eventId"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Marks         float64  `json:"marks"`
	Penalty       float64  `json:"penalty"`
}

// QuestionView is the participant-facing shape of a question: it never
// carries the correct option or the penalty.
type QuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Marks   float64  `json:"marks"`
}

// View strips grading data from a question.
func (q Question) View() QuestionView {
	return QuestionView{ID: q.ID, Text: q.Text, Options: q.Options, Marks: q.Marks}
}

// Answer is one selected option for one question.
type Answer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
}

// Session is one participant's attempt record for one event.
// Exactly one session exists per (EventID, ParticipantID).
// ABSENT sessions carry zero StartedAt/SubmittedAt: "never attempted" stays
// distinguishable from "attempted and scored zero".
type Session struct {
	ID            string        `json:"id"`
	EventID       string        `json:"eventId"`
	ParticipantID string        `json:"participantId"`
	Status        SessionStatus `json:"status"`
	StartedAt     time.Time     `json:"startedAt,omitempty"`
	SubmittedAt   time.Time     `json:"submittedAt,omitempty"`
	Answers       []Answer      `json:"answers,omitempty"`
	TotalScore    float64       `json:"totalScore"`
	CorrectCount  int           `json:"correctCount"`
	WrongCount    int           `json:"wrongCount"`
}

// Contest identifies one code-judging window.
type Contest struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	ProblemIDs []string  `json:"problemIds"`
}

// TestCase is one input/expected-output pair for a problem.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	Hidden         bool   `json:"hidden"`
}

// Problem is one code-judging task with its test cases.
type Problem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  string     `json:"difficulty"`
	TestCases   []TestCase `json:"testCases"`
}

// Submission is one code-judging attempt. It is written PENDING before any
// sandbox call and finalized exactly once with a score and verdict.
type Submission struct {
	ID            string    `json:"id"`
	ContestID     string    `json:"contestId"`
	ProblemID     string    `json:"problemId"`
	ParticipantID string    `json:"participantId"`
	Code          string    `json:"code"`
	Language      string    `json:"language"`
	Verdict       Verdict   `json:"verdict"`
	Score         int       `json:"score"` // 0..100
	SubmittedAt   time.Time `json:"submittedAt"`
}

// Participant is the identity-boundary view of a user. The id is trusted
// once authenticated; nothing else about identity is modeled here.
type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RollNumber string `json:"rollNumber"`
}

// StandingsEntry is a derived contest leaderboard row; never persisted.
type StandingsEntry struct {
	ParticipantID  string    `json:"participantId"`
	Name           string    `json:"name"`
	RollNumber     string    `json:"rollNumber"`
	TotalScore     int       `json:"totalScore"`
	ProblemsSolved int       `json:"problemsSolved"`
	LastSubmission time.Time `json:"lastSubmission,omitempty"`
	Rank           int       `json:"rank"`
}

// TopPerformer is one row of the admin analytics top list.
type TopPerformer struct {
	ParticipantID string  `json:"participantId"`
	Score         float64 `json:"score"`
	Rank          int     `json:"rank"`
}

// EventAnalytics is the derived admin view over one event's sessions.
type EventAnalytics struct {
	Registrations  int            `json:"registrations"`
	Attempted      int            `json:"attempted"`
	Absent         int            `json:"absent"`
	AverageScore   float64        `json:"averageScore"`
	HighestScore   float64        `json:"highestScore"`
	LowestScore    float64        `json:"lowestScore"`
	PassCount      int            `json:"passCount"`
	PassPercentage float64        `json:"passPercentage"`
	TopPerformers  []TopPerformer `json:"topPerformers"`
}
