package app

import (
	"context"
	"sort"
	"time"

	"campus-assessment-service/internal/domain"
)

// RankSessions orders an event's sessions: total score descending, then
// submission time ascending (earlier submit wins ties), sessions without a
// submission time last regardless of score, and participant id as the final
// key so the order is total. The input slice is not modified.
func RankSessions(sessions []domain.Session) []domain.Session {
	ranked := make([]domain.Session, len(sessions))
	copy(ranked, sessions)

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.SubmittedAt.IsZero() != b.SubmittedAt.IsZero() {
			return b.SubmittedAt.IsZero()
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return a.ParticipantID < b.ParticipantID
	})
	return ranked
}

// SessionRank returns the 1-based rank of a participant within the ranked
// order, or the list size when the participant is not present.
func SessionRank(sessions []domain.Session, participantID string) int {
	ranked := RankSessions(sessions)
	for i, session := range ranked {
		if session.ParticipantID == participantID {
			return i + 1
		}
	}
	return len(ranked)
}

// ComputeStandings folds a contest's submissions into ordered standings:
// only the best submission per (participant, problem) counts, total score is
// the sum of bests, solved counts bests above zero, and ties on total score
// break by earlier last activity. Participants with no activity sort last;
// participant id is the final key. Pure and replayable: calling it twice on
// the same data yields an identical order.
func ComputeStandings(submissions []domain.Submission) []domain.StandingsEntry {
	type key struct{ participant, problem string }
	best := make(map[key]domain.Submission)
	for _, sub := range submissions {
		k := key{sub.ParticipantID, sub.ProblemID}
		existing, ok := best[k]
		// Strictly greater keeps the first submission encountered on a tie;
		// only the score matters for totals.
		if !ok || sub.Score > existing.Score {
			best[k] = sub
		}
	}

	type accum struct {
		total  int
		solved int
		last   time.Time
	}
	totals := make(map[string]*accum)
	for k, sub := range best {
		acc, ok := totals[k.participant]
		if !ok {
			acc = &accum{}
			totals[k.participant] = acc
		}
		acc.total += sub.Score
		if sub.Score > 0 {
			acc.solved++
		}
		if sub.SubmittedAt.After(acc.last) {
			acc.last = sub.SubmittedAt
		}
	}

	entries := make([]domain.StandingsEntry, 0, len(totals))
	for participantID, acc := range totals {
		entries = append(entries, domain.StandingsEntry{
			ParticipantID:  participantID,
			TotalScore:     acc.total,
			ProblemsSolved: acc.solved,
			LastSubmission: acc.last,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.LastSubmission.IsZero() != b.LastSubmission.IsZero() {
			return b.LastSubmission.IsZero()
		}
		if !a.LastSubmission.Equal(b.LastSubmission) {
			return a.LastSubmission.Before(b.LastSubmission)
		}
		return a.ParticipantID < b.ParticipantID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// LeaderboardService computes derived rankings and analytics on demand.
// It holds no state of its own: every read replays the stored records.
type LeaderboardService struct {
	events        EventStore
	registrations RegistrationStore
	sessions      SessionStore
	contests      ContestStore
	submissions   SubmissionStore
	participants  ParticipantDirectory
}

func NewLeaderboardService(events EventStore, registrations RegistrationStore, sessions SessionStore, contests ContestStore, submissions SubmissionStore, participants ParticipantDirectory) *LeaderboardService {
	return &LeaderboardService{
		events:        events,
		registrations: registrations,
		sessions:      sessions,
		contests:      contests,
		submissions:   submissions,
		participants:  participants,
	}
}

// EventLeaderboard returns the ranked sessions for one event.
func (s *LeaderboardService) EventLeaderboard(ctx context.Context, eventID string) ([]domain.Session, error) {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListSessionsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return RankSessions(sessions), nil
}

// ContestStandings returns the ranked standings for one contest, with
// display data resolved from the participant directory where available.
func (s *LeaderboardService) ContestStandings(ctx context.Context, contestID string) ([]domain.StandingsEntry, error) {
	if _, err := s.contests.GetContest(ctx, contestID); err != nil {
		return nil, err
	}
	submissions, err := s.submissions.ListSubmissionsByContest(ctx, contestID)
	if err != nil {
		return nil, err
	}

	entries := ComputeStandings(submissions)
	for i := range entries {
		participant, err := s.participants.GetParticipant(ctx, entries[i].ParticipantID)
		if err != nil {
			entries[i].Name = "Unknown"
			entries[i].RollNumber = "N/A"
			continue
		}
		entries[i].Name = participant.Name
		entries[i].RollNumber = participant.RollNumber
	}
	return entries, nil
}

// topPerformerLimit caps the analytics top list.
const topPerformerLimit = 10

// passThreshold is the pass mark as a fraction of an event's total marks.
const passThreshold = 0.4

// EventAnalytics aggregates the admin view for one event from the same
// ranked order the leaderboard uses.
func (s *LeaderboardService) EventAnalytics(ctx context.Context, eventID string) (domain.EventAnalytics, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return domain.EventAnalytics{}, err
	}

	registrations, err := s.registrations.CountRegistrations(ctx, eventID)
	if err != nil {
		return domain.EventAnalytics{}, err
	}

	sessions, err := s.sessions.ListSessionsByEvent(ctx, eventID)
	if err != nil {
		return domain.EventAnalytics{}, err
	}
	ranked := RankSessions(sessions)

	attempted := 0
	for _, session := range ranked {
		if session.Status.Terminal() && session.Status != domain.SessionAbsent {
			attempted++
		}
	}

	analytics := domain.EventAnalytics{
		Registrations: registrations,
		Attempted:     attempted,
		Absent:        registrations - attempted,
		TopPerformers: []domain.TopPerformer{},
	}
	if len(ranked) == 0 {
		return analytics, nil
	}

	passMark := event.TotalMarks * passThreshold
	var sum float64
	highest := ranked[0].TotalScore
	lowest := ranked[0].TotalScore
	for _, session := range ranked {
		sum += session.TotalScore
		if session.TotalScore > highest {
			highest = session.TotalScore
		}
		if session.TotalScore < lowest {
			lowest = session.TotalScore
		}
		if session.TotalScore >= passMark {
			analytics.PassCount++
		}
	}
	analytics.AverageScore = sum / float64(len(ranked))
	analytics.HighestScore = highest
	analytics.LowestScore = lowest
	if attempted > 0 {
		analytics.PassPercentage = float64(analytics.PassCount) * 100 / float64(attempted)
	}

	limit := topPerformerLimit
	if len(ranked) < limit {
		limit = len(ranked)
	}
	for i := 0; i < limit; i++ {
		analytics.TopPerformers = append(analytics.TopPerformers, domain.TopPerformer{
			ParticipantID: ranked[i].ParticipantID,
			Score:         ranked[i].TotalScore,
			Rank:          i + 1,
		})
	}
	return analytics, nil
}

// ParticipantActivity is the per-participant profile summary.
type ParticipantActivity struct {
	Participant domain.Participant  `json:"participant"`
	Submissions []domain.Submission `json:"submissions"`
}

// ParticipantSubmissions lists one participant's code submissions.
func (s *LeaderboardService) ParticipantSubmissions(ctx context.Context, participantID string) (ParticipantActivity, error) {
	participant, err := s.participants.GetParticipant(ctx, participantID)
	if err != nil {
		return ParticipantActivity{}, err
	}
	submissions, err := s.submissions.ListSubmissionsByParticipant(ctx, participantID)
	if err != nil {
		return ParticipantActivity{}, err
	}
	return ParticipantActivity{Participant: participant, Submissions: submissions}, nil
}
