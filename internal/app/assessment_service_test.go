package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus-assessment-service/internal/app"
	"campus-assessment-service/internal/domain"
	"campus-assessment-service/internal/infra/memory"
)

var testStart = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

// newAssessmentEnv seeds a 30-minute event with two questions worth 5
// (penalty 1) and 3 (penalty 0), and one registered participant.
func newAssessmentEnv(t *testing.T) (*app.AssessmentService, *memory.Store, *testClock) {
	t.Helper()
	store := memory.NewStore()
	clock := &testClock{now: testStart}

	store.PutEvent(domain.Event{
		ID:         "event-1",
		StartTime:  testStart,
		EndTime:    testStart.Add(30 * time.Minute),
		Duration:   30 * time.Minute,
		TotalMarks: 8,
	})
	store.PutQuestions("event-1", []domain.Question{
		{ID: "q1", EventID: "event-1", Text: "first", Options: []string{"a", "b"}, CorrectOption: 1, Marks: 5, Penalty: 1},
		{ID: "q2", EventID: "event-1", Text: "second", Options: []string{"a", "b"}, CorrectOption: 0, Marks: 3, Penalty: 0},
	})
	register(t, store, "event-1", "alice")

	service := app.NewAssessmentService(store, store, store, store).WithClock(clock.Now)
	return service, store, clock
}

func register(t *testing.T, store *memory.Store, eventID, participantID string) {
	t.Helper()
	err := store.CreateRegistration(context.Background(), domain.Registration{
		ID:            "reg-" + participantID,
		EventID:       eventID,
		ParticipantID: participantID,
		RegisteredAt:  testStart.Add(-time.Hour),
		Status:        domain.RegistrationActive,
	})
	if err != nil {
		t.Fatalf("register %s: %v", participantID, err)
	}
}

func TestStartReturnsSanitizedQuestions(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newAssessmentEnv(t)

	questions, err := service.Start(ctx, "alice", "event-1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	for _, q := range questions {
		if len(q.Options) == 0 || q.Text == "" {
			t.Fatalf("question view missing content: %+v", q)
		}
	}
}

func TestStartIsIdempotentWhileInProgress(t *testing.T) {
	ctx := context.Background()
	service, store, clock := newAssessmentEnv(t)

	if _, err := service.Start(ctx, "alice", "event-1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	first, err := store.GetSession(ctx, "event-1", "alice")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}

	clock.now = testStart.Add(5 * time.Minute)
	if _, err := service.Start(ctx, "alice", "event-1"); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	second, err := store.GetSession(ctx, "event-1", "alice")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !second.StartedAt.Equal(first.StartedAt) {
		t.Fatalf("resume reset start time: %v → %v", first.StartedAt, second.StartedAt)
	}
	if second.ID != first.ID {
		t.Fatalf("resume created a new session")
	}
}

func TestStartFailsOutsideEventWindow(t *testing.T) {
	ctx := context.Background()
	service, _, clock := newAssessmentEnv(t)

	clock.now = testStart.Add(-time.Minute)
	if _, err := service.Start(ctx, "alice", "event-1"); !errors.Is(err, domain.ErrEventNotLive) {
		t.Fatalf("expected ErrEventNotLive before start, got %v", err)
	}

	clock.now = testStart.Add(31 * time.Minute)
	if _, err := service.Start(ctx, "alice", "event-1"); !errors.Is(err, domain.ErrEventNotLive) {
		t.Fatalf("expected ErrEventNotLive after end, got %v", err)
	}
}

func TestStartRequiresRegistration(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newAssessmentEnv(t)

	if _, err := service.Start(ctx, "mallory", "event-1"); !errors.Is(err, domain.ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestStartUnknownEvent(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newAssessmentEnv(t)

	if _, err := service.Start(ctx, "alice", "event-bogus"); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestSubmitScoresAndCompletes(t *testing.T) {
	ctx := context.Background()
	service, _, clock := newAssessmentEnv(t)

	if _, err := service.Start(ctx, "alice", "event-1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	clock.now = testStart.Add(10 * time.Minute)
	result, err := service.Submit(ctx, "alice", "event-1", []domain.Answer{
		{QuestionID: "q1", SelectedOption: 1}, // correct, +5
		{QuestionID: "q2", SelectedOption: 1}, // wrong, penalty 0
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.TotalScore != 5 || result.CorrectCount != 1 || result.WrongCount != 1 {
		t.Fatalf("expected score=5 correct=1 wrong=1, got %+v", result)
	}
	if result.Status != domain.SessionCompleted {
		t.Fatalf("expected COMPLETED, got %s", result.Status)
	}
	if result.Rank != 1 {
		t.Fatalf("expected rank 1, got %d", result.Rank)
	}
}

func TestSubmitWithoutStartFails(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newAssessmentEnv(t)

	_, err := service.Submit(ctx, "alice", "event-1", nil)
	if !errors.Is(err, domain.ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestSubmitTwiceFails(t *testing.T) {
	ctx := context.Background()
	service, _, clock := newAssessmentEnv(t)

	if _, err := service.Start(ctx, "alice", "event-1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	clock.now = testStart.Add(5 * time.Minute)
	if _, err := service.Submit(ctx, "alice", "event-1", nil); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		_, err := service.Submit(ctx, "alice", "event-1", nil)
		if !errors.Is(err, domain.ErrAlreadySubmitted) {
			t.Fatalf("repeat %d: expected ErrAlreadySubmitted, got %v", i, err)
		}
	}

	if _, err := service.Start(ctx, "alice", "event-1"); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected start after submit to fail, got %v", err)
	}
}

func TestSubmitOverBudgetIsAutoSubmittedButScored(t *testing.T) {
	ctx := context.Background()
	service, _, clock := newAssessmentEnv(t)

	if _, err := service.Start(ctx, "alice", "event-1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	clock.now = testStart.Add(31 * time.Minute)
	result, err := service.Submit(ctx, "alice", "event-1", []domain.Answer{
		{QuestionID: "q1", SelectedOption: 1},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Status != domain.SessionAutoSubmitted {
		t.Fatalf("expected AUTO_SUBMITTED, got %s", result.Status)
	}
	if result.TotalScore != 5 {
		t.Fatalf("over-time answers must still be scored, got %v", result.TotalScore)
	}
}

func TestSubmitRejectsUnknownQuestionBatch(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newAssessmentEnv(t)

	if _, err := service.Start(ctx, "alice", "event-1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	_, err := service.Submit(ctx, "alice", "event-1", []domain.Answer{
		{QuestionID: "q1", SelectedOption: 1},
		{QuestionID: "q-bogus", SelectedOption: 0},
	})
	if !errors.Is(err, domain.ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}

	// The whole batch is rejected: the session must still be open.
	session, err := store.GetSession(ctx, "event-1", "alice")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.Status != domain.SessionInProgress {
		t.Fatalf("invalid batch must not terminate the session, got %s", session.Status)
	}
}

func TestRemainingTimeCountsDown(t *testing.T) {
	ctx := context.Background()
	service, _, clock := newAssessmentEnv(t)

	if _, err := service.Start(ctx, "alice", "event-1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	clock.now = testStart.Add(10 * time.Minute)
	remaining, err := service.Remaining(ctx, "alice", "event-1")
	if err != nil {
		t.Fatalf("remaining failed: %v", err)
	}
	if remaining.Remaining != 20*time.Minute {
		t.Fatalf("expected 20m remaining, got %v", remaining.Remaining)
	}
	if remaining.Status != domain.SessionInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", remaining.Status)
	}
}

func TestRemainingTimeLazyExpiry(t *testing.T) {
	ctx := context.Background()
	service, store, clock := newAssessmentEnv(t)

	if _, err := service.Start(ctx, "alice", "event-1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	clock.now = testStart.Add(31 * time.Minute)
	remaining, err := service.Remaining(ctx, "alice", "event-1")
	if err != nil {
		t.Fatalf("remaining failed: %v", err)
	}
	if remaining.Remaining != 0 {
		t.Fatalf("expected zero remaining, got %v", remaining.Remaining)
	}
	if remaining.Status != domain.SessionAutoSubmitted {
		t.Fatalf("expected AUTO_SUBMITTED, got %s", remaining.Status)
	}

	// No answers were ever recorded: score over zero answers is zero.
	session, err := store.GetSession(ctx, "event-1", "alice")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.TotalScore != 0 || session.CorrectCount != 0 || session.WrongCount != 0 {
		t.Fatalf("expected zero score for empty auto-submit, got %+v", session)
	}
	if session.SubmittedAt.IsZero() {
		t.Fatalf("auto-submit must record a submission time")
	}

	// Subsequent calls see the terminal state without another transition.
	again, err := service.Remaining(ctx, "alice", "event-1")
	if err != nil {
		t.Fatalf("remaining after expiry failed: %v", err)
	}
	if again.Status != domain.SessionAutoSubmitted || again.Remaining != 0 {
		t.Fatalf("expected stable AUTO_SUBMITTED, got %+v", again)
	}
}

func TestRemainingTimeWithoutSession(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newAssessmentEnv(t)

	_, err := service.Remaining(ctx, "alice", "event-1")
	if !errors.Is(err, domain.ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestSubmitRankUsesTieBreak(t *testing.T) {
	ctx := context.Background()
	service, store, clock := newAssessmentEnv(t)
	register(t, store, "event-1", "bob")

	if _, err := service.Start(ctx, "alice", "event-1"); err != nil {
		t.Fatalf("start alice: %v", err)
	}
	if _, err := service.Start(ctx, "bob", "event-1"); err != nil {
		t.Fatalf("start bob: %v", err)
	}

	answers := []domain.Answer{{QuestionID: "q1", SelectedOption: 1}}

	clock.now = testStart.Add(5 * time.Minute)
	if _, err := service.Submit(ctx, "alice", "event-1", answers); err != nil {
		t.Fatalf("submit alice: %v", err)
	}

	clock.now = testStart.Add(10 * time.Minute)
	result, err := service.Submit(ctx, "bob", "event-1", answers)
	if err != nil {
		t.Fatalf("submit bob: %v", err)
	}
	// Same score, alice submitted earlier, so bob ranks second.
	if result.Rank != 2 {
		t.Fatalf("expected rank 2 for later equal score, got %d", result.Rank)
	}
}
