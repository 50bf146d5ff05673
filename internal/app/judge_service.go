package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"campus-assessment-service/internal/domain"
)

// ExecRequest is one sandbox call: run the source against stdin.
type ExecRequest struct {
	Source       string
	Language     string
	VersionIndex string
	Stdin        string
}

// ExecResult carries the sandbox output for one test case.
type ExecResult struct {
	Output string
}

// CodeExecutor is the external execution sandbox. Calls are synchronous
// with no latency bound and treated as unreliable.
type CodeExecutor interface {
	Execute(ctx context.Context, req ExecRequest) (ExecResult, error)
}

// execParams maps a submission language tag onto sandbox parameters.
type execParams struct {
	language     string
	versionIndex string
}

// languageParams is the finite dispatch table; unknown tags are rejected at
// the boundary before any sandbox call is spent.
var languageParams = map[string]execParams{
	"python": {language: "python3", versionIndex: "3"},
	"java":   {language: "java", versionIndex: "4"},
	"c":      {language: "c", versionIndex: "5"},
	"cpp":    {language: "cpp14", versionIndex: "3"},
}

// JudgeService owns the code-submission lifecycle: persist PENDING, run
// every test case through the sandbox, aggregate a score and verdict, and
// finalize the same record exactly once.
type JudgeService struct {
	contests     ContestStore
	problems     ProblemStore
	submissions  SubmissionStore
	participants ParticipantDirectory
	executor     CodeExecutor
	log          zerolog.Logger
	now          func() time.Time
}

func NewJudgeService(contests ContestStore, problems ProblemStore, submissions SubmissionStore, participants ParticipantDirectory, executor CodeExecutor, log zerolog.Logger) *JudgeService {
	return &JudgeService{
		contests:     contests,
		problems:     problems,
		submissions:  submissions,
		participants: participants,
		executor:     executor,
		log:          log,
		now:          time.Now,
	}
}

// WithClock overrides the clock for deterministic tests.
func (s *JudgeService) WithClock(now func() time.Time) *JudgeService {
	s.now = now
	return s
}

// SubmitCode judges one submission. The record is written PENDING before
// the first sandbox call so a crash mid-judging leaves an auditable row. A
// sandbox failure counts as that single test case failing; judging always
// reaches a terminal verdict.
func (s *JudgeService) SubmitCode(ctx context.Context, participantID, contestID, problemID, code, language string) (domain.Submission, error) {
	contest, err := s.contests.GetContest(ctx, contestID)
	if err != nil {
		return domain.Submission{}, err
	}

	now := s.now()
	if now.Before(contest.StartTime) || now.After(contest.EndTime) {
		return domain.Submission{}, domain.ErrContestNotActive
	}

	problem, err := s.problems.GetProblem(ctx, problemID)
	if err != nil {
		return domain.Submission{}, err
	}
	if _, err := s.participants.GetParticipant(ctx, participantID); err != nil {
		return domain.Submission{}, err
	}

	params, ok := languageParams[strings.ToLower(language)]
	if !ok {
		return domain.Submission{}, domain.ErrUnsupportedLanguage
	}

	submission := domain.Submission{
		ID:            uuid.NewString(),
		ContestID:     contestID,
		ProblemID:     problemID,
		ParticipantID: participantID,
		Code:          code,
		Language:      language,
		Verdict:       domain.VerdictPending,
		Score:         0,
		SubmittedAt:   now,
	}
	if err := s.submissions.CreateSubmission(ctx, submission); err != nil {
		return domain.Submission{}, err
	}

	passed := 0
	total := len(problem.TestCases)
	for i, testCase := range problem.TestCases {
		result, err := s.executor.Execute(ctx, ExecRequest{
			Source:       normalize(code),
			Language:     params.language,
			VersionIndex: params.versionIndex,
			Stdin:        normalize(testCase.Input),
		})
		if err != nil {
			// Sandbox failures are absorbed per test case so the submission
			// still reaches a terminal verdict.
			s.log.Warn().Err(err).
				Str("submission", submission.ID).
				Int("testCase", i).
				Msg("sandbox call failed, counting test case as failed")
			continue
		}
		if strings.TrimSpace(result.Output) == strings.TrimSpace(testCase.ExpectedOutput) {
			passed++
		}
	}

	submission.Score = passRatioScore(passed, total)
	submission.Verdict = domain.VerdictWrongAnswer
	if total > 0 && passed == total {
		submission.Verdict = domain.VerdictAccepted
	}

	if err := s.submissions.FinalizeSubmission(ctx, submission.ID, submission.Score, submission.Verdict); err != nil {
		return domain.Submission{}, err
	}

	s.log.Info().
		Str("submission", submission.ID).
		Str("participant", participantID).
		Str("problem", problemID).
		Int("passed", passed).
		Int("total", total).
		Str("verdict", string(submission.Verdict)).
		Msg("submission judged")

	return submission, nil
}

// Submission returns one submission by id.
func (s *JudgeService) Submission(ctx context.Context, id string) (domain.Submission, error) {
	return s.submissions.GetSubmission(ctx, id)
}

// ContestSubmissions lists every submission of a contest.
func (s *JudgeService) ContestSubmissions(ctx context.Context, contestID string) ([]domain.Submission, error) {
	if _, err := s.contests.GetContest(ctx, contestID); err != nil {
		return nil, err
	}
	return s.submissions.ListSubmissionsByContest(ctx, contestID)
}

// ProblemSubmissions lists every submission against a problem.
func (s *JudgeService) ProblemSubmissions(ctx context.Context, problemID string) ([]domain.Submission, error) {
	if _, err := s.problems.GetProblem(ctx, problemID); err != nil {
		return nil, err
	}
	return s.submissions.ListSubmissionsByProblem(ctx, problemID)
}

// normalize unifies line endings and guarantees a trailing newline.
// Sandboxes are sensitive to line-ending mismatches that are not a
// correctness defect in the submitted program.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text
}
