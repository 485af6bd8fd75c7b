package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VaccinationChecker reports whether a vaccination has already been recorded
// for a patient at a session, which freezes attendance. The vaccination
// service satisfies it via an adapter in main.
type VaccinationChecker interface {
	HasRecord(ctx context.Context, patientID, sessionID uuid.UUID) (bool, error)
}

type Service struct {
	records      Repository
	vaccinations VaccinationChecker
}

func NewService(records Repository, vaccinations VaccinationChecker) *Service {
	return &Service{records: records, vaccinations: vaccinations}
}

// SetAttendance registers or updates a patient's attendance for a session.
func (s *Service) SetAttendance(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if s.vaccinations != nil {
		vaccinated, err := s.vaccinations.HasRecord(ctx, rec.PatientID, rec.SessionID)
		if err != nil {
			return fmt.Errorf("check vaccination records: %w", err)
		}
		if vaccinated {
			return errors.Join(ErrLocked,
				fmt.Errorf("patient %s already has a vaccination outcome for session %s", rec.PatientID, rec.SessionID))
		}
	}
	return s.records.Upsert(ctx, rec)
}

// Current returns the patient's attendance for the session, defaulting to
// not_registered when no record exists.
func (s *Service) Current(ctx context.Context, patientID, sessionID uuid.UUID) (Status, error) {
	rec, err := s.records.Get(ctx, patientID, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return StatusNotRegistered, nil
	}
	if err != nil {
		return "", fmt.Errorf("load attendance record: %w", err)
	}
	return rec.Status, nil
}

// ListBySession returns attendance for a session, most recently updated
// first.
func (s *Service) ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.records.ListBySession(ctx, sessionID, limit, offset)
}
