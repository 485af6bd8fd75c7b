package status

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/schoolvax/schoolvax/internal/domain/attendance"
	"github.com/schoolvax/schoolvax/internal/domain/consent"
	"github.com/schoolvax/schoolvax/internal/domain/programme"
	"github.com/schoolvax/schoolvax/internal/domain/triage"
	"github.com/schoolvax/schoolvax/internal/domain/vaccination"
)

// The service reads each dimension through a narrow source interface so that
// it depends on behaviour, not on the other domains' service types.

type ConsentSource interface {
	CurrentDecision(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) (consent.Decision, error)
}

type TriageSource interface {
	CurrentState(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) (triage.State, error)
}

type AttendanceSource interface {
	Current(ctx context.Context, patientID, sessionID uuid.UUID) (attendance.Status, error)
}

type VaccinationSource interface {
	RecordsForKey(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) ([]*vaccination.Record, error)
	GetSession(ctx context.Context, id uuid.UUID) (*vaccination.Session, error)
}

type PatientSource interface {
	YearGroup(ctx context.Context, patientID uuid.UUID) (*int, error)
}

type Service struct {
	consents     ConsentSource
	triages      TriageSource
	attendances  AttendanceSource
	vaccinations VaccinationSource
	patients     PatientSource
}

func NewService(consents ConsentSource, triages TriageSource, attendances AttendanceSource, vaccinations VaccinationSource, patients PatientSource) *Service {
	return &Service{
		consents:     consents,
		triages:      triages,
		attendances:  attendances,
		vaccinations: vaccinations,
		patients:     patients,
	}
}

// snapshot loads every event dimension for the key. sessionID narrows the
// registration dimension to one session; nil leaves it at not_registered and
// relaxes the gate's registration requirement.
func (s *Service) snapshot(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear, sessionID *uuid.UUID) (Inputs, error) {
	in := Inputs{
		Programme:    t,
		AcademicYear: year,
		Registration: attendance.StatusNotRegistered,
	}

	decision, err := s.consents.CurrentDecision(ctx, patientID, t, year)
	if err != nil {
		return in, fmt.Errorf("consent decision: %w", err)
	}
	in.Consent = decision

	state, err := s.triages.CurrentState(ctx, patientID, t, year)
	if err != nil {
		return in, fmt.Errorf("triage state: %w", err)
	}
	in.Triage = state

	records, err := s.vaccinations.RecordsForKey(ctx, patientID, t, year)
	if err != nil {
		return in, fmt.Errorf("vaccination records: %w", err)
	}
	in.Records = records

	yearGroup, err := s.patients.YearGroup(ctx, patientID)
	if err != nil {
		return in, fmt.Errorf("patient year group: %w", err)
	}
	in.YearGroup = yearGroup

	if sessionID != nil {
		session, err := s.vaccinations.GetSession(ctx, *sessionID)
		if err != nil {
			return in, fmt.Errorf("load session: %w", err)
		}
		in.RegistrationRequired = session.RegistrationRequired
		reg, err := s.attendances.Current(ctx, patientID, *sessionID)
		if err != nil {
			return in, fmt.Errorf("registration status: %w", err)
		}
		in.Registration = reg
	}

	return in, nil
}

// StatusFor recomputes the bundle and gate for one key on demand.
func (s *Service) StatusFor(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear, sessionID *uuid.UUID) (Bundle, Gate, error) {
	in, err := s.snapshot(ctx, patientID, t, year, sessionID)
	if err != nil {
		return Bundle{}, Gate{}, err
	}
	return Derive(in), CanVaccinate(in), nil
}

// Check is the vaccination recorder's gate: same derivation, narrowed to the
// fields the recorder needs.
func (s *Service) Check(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear, sessionID uuid.UUID) (Gate, error) {
	in, err := s.snapshot(ctx, patientID, t, year, &sessionID)
	if err != nil {
		return Gate{}, err
	}
	return CanVaccinate(in), nil
}
