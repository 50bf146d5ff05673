package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"campus-assessment-service/internal/domain"
)

// Sweeper is the attendance reconciliation process: after an event ends it
// manufactures ABSENT sessions for registrants who never started, then
// flips the event's reconciled flag exactly once. Re-running a sweep over
// the same event is harmless; the session uniqueness invariant and the
// atomic flag update make it idempotent.
type Sweeper struct {
	events        EventStore
	registrations RegistrationStore
	sessions      SessionStore
	log           zerolog.Logger
	now           func() time.Time
}

func NewSweeper(events EventStore, registrations RegistrationStore, sessions SessionStore, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		events:        events,
		registrations: registrations,
		sessions:      sessions,
		log:           log,
		now:           time.Now,
	}
}

// WithClock overrides the clock for deterministic tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run performs one reconciliation pass over every ended, unreconciled event.
func (s *Sweeper) Run(ctx context.Context) error {
	events, err := s.events.ListEndedUnreconciled(ctx, s.now())
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := s.reconcileEvent(ctx, event); err != nil {
			s.log.Error().Err(err).Str("event", event.ID).Msg("attendance reconciliation failed")
			// Keep going; the event stays unreconciled and the next pass retries.
			continue
		}
	}
	return nil
}

// Start runs the sweep on a fixed interval until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.log.Error().Err(err).Msg("attendance sweep pass failed")
			}
		}
	}
}

func (s *Sweeper) reconcileEvent(ctx context.Context, event domain.Event) error {
	registrations, err := s.registrations.ListRegistrations(ctx, event.ID)
	if err != nil {
		return err
	}

	absent := 0
	for _, reg := range registrations {
		if reg.Status == domain.RegistrationCancelled {
			continue
		}
		_, err := s.sessions.GetSession(ctx, event.ID, reg.ParticipantID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotStarted) {
			return err
		}

		// ABSENT rows carry no start or submission time: "never attempted"
		// stays distinguishable from "attempted and scored zero".
		err = s.sessions.CreateSession(ctx, domain.Session{
			ID:            uuid.NewString(),
			EventID:       event.ID,
			ParticipantID: reg.ParticipantID,
			Status:        domain.SessionAbsent,
		})
		if errors.Is(err, domain.ErrSessionExists) {
			// Another sweep run (or a very late start) got there first.
			continue
		}
		if err != nil {
			return err
		}
		absent++
	}

	flipped, err := s.events.MarkReconciled(ctx, event.ID)
	if err != nil {
		return err
	}
	if flipped {
		s.log.Info().Str("event", event.ID).Int("absent", absent).Msg("event attendance reconciled")
	}
	return nil
}
