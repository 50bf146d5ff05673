package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"campus-assessment-service/internal/app"
	"campus-assessment-service/internal/domain"
)

// Handler wires the use cases onto a chi router. Identity is out of scope:
// the participant id arrives in the X-Participant-ID header and is trusted
// once authenticated upstream.
type Handler struct {
	assessments   *app.AssessmentService
	judge         *app.JudgeService
	leaderboards  *app.LeaderboardService
	registrations *app.RegistrationService
	live          *LiveStandingsHandler
	log           zerolog.Logger
}

func NewHandler(assessments *app.AssessmentService, judge *app.JudgeService, leaderboards *app.LeaderboardService, registrations *app.RegistrationService, live *LiveStandingsHandler, log zerolog.Logger) *Handler {
	return &Handler{
		assessments:   assessments,
		judge:         judge,
		leaderboards:  leaderboards,
		registrations: registrations,
		live:          live,
		log:           log,
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/events/{eventID}", func(r chi.Router) {
		r.Post("/registration", h.register)
		r.Delete("/registration", h.cancelRegistration)
		r.Post("/session", h.startSession)
		r.Post("/session/answers", h.submitSession)
		r.Get("/session/remaining", h.remainingTime)
		r.Get("/leaderboard", h.eventLeaderboard)
		r.Get("/analytics", h.eventAnalytics)
	})

	r.Post("/contests/{contestID}/problems/{problemID}/submissions", h.submitCode)
	r.Get("/contests/{contestID}/submissions", h.contestSubmissions)
	r.Get("/contests/{contestID}/leaderboard", h.contestStandings)
	if h.live != nil {
		r.Get("/contests/{contestID}/leaderboard/live", h.live.ServeWS)
	}
	r.Get("/submissions/{submissionID}", h.submission)
	r.Get("/problems/{problemID}/submissions", h.problemSubmissions)
	r.Get("/participants/{participantID}/submissions", h.participantSubmissions)

	return r
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	participantID, ok := participantID(w, r)
	if !ok {
		return
	}
	err := h.registrations.Register(r.Context(), participantID, chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"message": "registered"})
}

func (h *Handler) cancelRegistration(w http.ResponseWriter, r *http.Request) {
	participantID, ok := participantID(w, r)
	if !ok {
		return
	}
	err := h.registrations.Cancel(r.Context(), participantID, chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "registration cancelled"})
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	participantID, ok := participantID(w, r)
	if !ok {
		return
	}
	questions, err := h.assessments.Start(r.Context(), participantID, chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, questions)
}

type submitSessionRequest struct {
	Answers []domain.Answer `json:"answers"`
}

func (h *Handler) submitSession(w http.ResponseWriter, r *http.Request) {
	participantID, ok := participantID(w, r)
	if !ok {
		return
	}
	var req submitSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorKind(w, domain.KindInvalidArgument, "invalid submit payload")
		return
	}
	result, err := h.assessments.Submit(r.Context(), participantID, chi.URLParam(r, "eventID"), req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) remainingTime(w http.ResponseWriter, r *http.Request) {
	participantID, ok := participantID(w, r)
	if !ok {
		return
	}
	remaining, err := h.assessments.Remaining(r.Context(), participantID, chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"remainingSeconds": int64(remaining.Remaining.Seconds()),
		"status":           remaining.Status,
		"startedAt":        remaining.StartedAt,
		"eventEndTime":     remaining.EventEndTime,
	})
}

func (h *Handler) eventLeaderboard(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.leaderboards.EventLeaderboard(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	type entry struct {
		ParticipantID string               `json:"participantId"`
		TotalScore    float64              `json:"totalScore"`
		Status        domain.SessionStatus `json:"status"`
		Rank          int                  `json:"rank"`
	}
	entries := make([]entry, 0, len(sessions))
	for i, session := range sessions {
		entries = append(entries, entry{
			ParticipantID: session.ParticipantID,
			TotalScore:    session.TotalScore,
			Status:        session.Status,
			Rank:          i + 1,
		})
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) eventAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.leaderboards.EventAnalytics(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, analytics)
}

type submitCodeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

func (h *Handler) submitCode(w http.ResponseWriter, r *http.Request) {
	participantID, ok := participantID(w, r)
	if !ok {
		return
	}
	var req submitCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorKind(w, domain.KindInvalidArgument, "invalid submission payload")
		return
	}
	submission, err := h.judge.SubmitCode(r.Context(), participantID,
		chi.URLParam(r, "contestID"), chi.URLParam(r, "problemID"), req.Code, req.Language)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, submission)
}

func (h *Handler) submission(w http.ResponseWriter, r *http.Request) {
	submission, err := h.judge.Submission(r.Context(), chi.URLParam(r, "submissionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, submission)
}

func (h *Handler) contestSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.judge.ContestSubmissions(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) problemSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.judge.ProblemSubmissions(r.Context(), chi.URLParam(r, "problemID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) participantSubmissions(w http.ResponseWriter, r *http.Request) {
	activity, err := h.leaderboards.ParticipantSubmissions(r.Context(), chi.URLParam(r, "participantID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, activity)
}

func (h *Handler) contestStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.leaderboards.ContestStandings(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, standings)
}

type errorResponse struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		h.log.Error().Err(err).Msg("request failed")
		h.writeErrorKind(w, kind, "internal error")
		return
	}
	h.writeErrorKind(w, kind, err.Error())
}

func (h *Handler) writeErrorKind(w http.ResponseWriter, kind domain.Kind, message string) {
	h.writeJSON(w, statusForKind(kind), errorResponse{Kind: kind, Message: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("write response failed")
	}
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidState, domain.KindAlreadySubmitted, domain.KindNotStarted:
		return http.StatusConflict
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func participantID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-Participant-ID")
	if id == "" {
		payload, _ := json.Marshal(errorResponse{Kind: domain.KindInvalidArgument, Message: "missing X-Participant-ID header"})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write(payload)
		return "", false
	}
	return id, true
}
