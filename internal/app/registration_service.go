package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"campus-assessment-service/internal/domain"
)

// RegistrationService is the thin registration boundary: register and
// cancel strictly before an event starts. It holds no state machine of its
// own beyond the REGISTERED/CANCELLED flag.
type RegistrationService struct {
	events        EventStore
	registrations RegistrationStore
	now           func() time.Time
}

func NewRegistrationService(events EventStore, registrations RegistrationStore) *RegistrationService {
	return &RegistrationService{
		events:        events,
		registrations: registrations,
		now:           time.Now,
	}
}

// WithClock overrides the clock for deterministic tests.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	s.now = now
	return s
}

// Register enrolls a participant before the event starts. A duplicate
// registration is rejected, including a previously cancelled one.
func (s *RegistrationService) Register(ctx context.Context, participantID, eventID string) error {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !s.now().Before(event.StartTime) {
		return domain.ErrRegistrationClosed
	}

	if _, err := s.registrations.GetRegistration(ctx, eventID, participantID); err == nil {
		return domain.ErrAlreadyRegistered
	} else if !errors.Is(err, domain.ErrRegistrationNotFound) {
		return err
	}

	return s.registrations.CreateRegistration(ctx, domain.Registration{
		ID:            uuid.NewString(),
		EventID:       eventID,
		ParticipantID: participantID,
		RegisteredAt:  s.now(),
		Status:        domain.RegistrationActive,
	})
}

// Cancel withdraws a registration strictly before event start.
func (s *RegistrationService) Cancel(ctx context.Context, participantID, eventID string) error {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !s.now().Before(event.StartTime) {
		return domain.ErrRegistrationClosed
	}

	reg, err := s.registrations.GetRegistration(ctx, eventID, participantID)
	if err != nil {
		return err
	}
	if reg.Status == domain.RegistrationCancelled {
		return domain.ErrAlreadyCancelled
	}

	reg.Status = domain.RegistrationCancelled
	return s.registrations.UpdateRegistration(ctx, reg)
}

// Count returns the number of registrations for an event.
func (s *RegistrationService) Count(ctx context.Context, eventID string) (int, error) {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return 0, err
	}
	return s.registrations.CountRegistrations(ctx, eventID)
}
