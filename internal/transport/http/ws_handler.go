package http

import (
	"net/http"
	"reflect"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"campus-assessment-service/internal/app"
	"campus-assessment-service/internal/domain"
)

// LiveStandingsHandler streams contest standings over a websocket. The
// standings are derived data, so the feed simply recomputes them on an
// interval and pushes only when the order or scores changed.
type LiveStandingsHandler struct {
	leaderboards *app.LeaderboardService
	interval     time.Duration
	upgrader     websocket.Upgrader
	log          zerolog.Logger
}

func NewLiveStandingsHandler(leaderboards *app.LeaderboardService, interval time.Duration, log zerolog.Logger) *LiveStandingsHandler {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &LiveStandingsHandler{
		leaderboards: leaderboards,
		interval:     interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type standingsMessage struct {
	Type      string                  `json:"type"`
	ContestID string                  `json:"contestId"`
	Entries   []domain.StandingsEntry `json:"entries"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// ServeWS upgrades the request and pushes standings until the client goes
// away or the contest lookup starts failing.
func (h *LiveStandingsHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "contestID")

	initial, err := h.leaderboards.ContestStandings(r.Context(), contestID)
	if err != nil {
		h.writeHTTPError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		// Drain reads so close frames and pings are processed.
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	last := initial
	if err := conn.WriteJSON(standingsMessage{Type: "standings", ContestID: contestID, Entries: last, UpdatedAt: time.Now()}); err != nil {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			current, err := h.leaderboards.ContestStandings(r.Context(), contestID)
			if err != nil {
				h.log.Warn().Err(err).Str("contest", contestID).Msg("standings refresh failed")
				return
			}
			if reflect.DeepEqual(current, last) {
				continue
			}
			last = current
			if err := conn.WriteJSON(standingsMessage{Type: "standings", ContestID: contestID, Entries: current, UpdatedAt: time.Now()}); err != nil {
				return
			}
		}
	}
}

func (h *LiveStandingsHandler) writeHTTPError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		h.log.Error().Err(err).Msg("standings lookup failed")
	}
	http.Error(w, err.Error(), statusForKind(kind))
}
