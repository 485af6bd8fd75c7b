package vaccination

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schoolvax/schoolvax/internal/domain/programme"
	"github.com/schoolvax/schoolvax/internal/platform/db"
)

// GateResult is what the status deriver reports about whether a nurse may
// vaccinate right now, and with what.
type GateResult struct {
	Allowed            bool                   `json:"allowed"`
	Reason             string                 `json:"reason,omitempty"`
	PermittedMethods   []programme.Method     `json:"permitted_methods,omitempty"`
	AdmissibleVariants []programme.Variant    `json:"admissible_variants,omitempty"`
	AcademicYear       programme.AcademicYear `json:"academic_year"`
}

// Gate checks whether vaccination may proceed for a patient at a session.
// The status service satisfies it via an adapter in main, keeping this
// package free of a dependency on the deriver that reads its records.
type Gate interface {
	Check(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear, sessionID uuid.UUID) (GateResult, error)
}

type Service struct {
	pool     *pgxpool.Pool
	sessions SessionRepository
	records  RecordRepository
	batches  DefaultBatchRepository
	gate     Gate
}

func NewService(pool *pgxpool.Pool, sessions SessionRepository, records RecordRepository, batches DefaultBatchRepository, gate Gate) *Service {
	return &Service{pool: pool, sessions: sessions, records: records, batches: batches, gate: gate}
}

// inTx runs fn inside a database transaction. A nil pool degrades to a plain
// call, which in-memory repositories rely on.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

// CreateSession registers a session.
func (s *Service) CreateSession(ctx context.Context, session *Session) error {
	if session.SchoolID == uuid.Nil {
		return errors.Join(ErrValidation, errors.New("school_id is required"))
	}
	if session.Date.IsZero() {
		return errors.Join(ErrValidation, errors.New("date is required"))
	}
	for _, p := range session.Programmes {
		if !p.Valid() {
			return errors.Join(ErrValidation, fmt.Errorf("unknown programme %q", p))
		}
	}
	return s.sessions.Create(ctx, session)
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *Service) ListSessionsBySchool(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	return s.sessions.ListBySchool(ctx, schoolID, limit, offset)
}

// RecordVaccination validates an outcome against the session, the nurse gate
// and the variant rules, then appends it.
func (s *Service) RecordVaccination(ctx context.Context, rec *Record) error {
	session, err := s.sessions.GetByID(ctx, rec.SessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if rec.AcademicYear == "" {
		rec.AcademicYear = session.AcademicYear
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	if !session.Covers(rec.Programme) {
		return errors.Join(ErrValidation,
			fmt.Errorf("session does not offer programme %s", rec.Programme))
	}

	// The gate check and the insert share one transaction so two nurses
	// recording the same dose cannot both pass the check.
	return s.inTx(ctx, func(ctx context.Context) error {
		// Only an administered dose needs the clinical gate; recording a
		// refusal or absence is always legal.
		if rec.Outcome == OutcomeAdministered {
			gate, err := s.gate.Check(ctx, rec.PatientID, rec.Programme, rec.AcademicYear, rec.SessionID)
			if err != nil {
				return fmt.Errorf("check vaccination gate: %w", err)
			}
			if !gate.Allowed {
				if gate.Reason == "already vaccinated" {
					return errors.Join(ErrAlreadyVaccinated, errors.New(gate.Reason))
				}
				return errors.Join(ErrNotPermitted, errors.New(gate.Reason))
			}
			if !containsMethod(gate.PermittedMethods, *rec.Method) {
				return errors.Join(ErrVariantNotPermitted,
					fmt.Errorf("consent does not cover delivery method %s", *rec.Method))
			}
			if !containsVariant(gate.AdmissibleVariants, *rec.Variant) {
				return errors.Join(ErrVariantNotPermitted,
					fmt.Errorf("variant %s not admissible under current consent and triage", *rec.Variant))
			}
		}

		if err := s.records.Create(ctx, rec); err != nil {
			// The partial unique index on administered records is the
			// backstop for a race the gate cannot see.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return errors.Join(ErrAlreadyVaccinated,
					errors.New("an administered dose is already recorded for this programme and year"))
			}
			return fmt.Errorf("create vaccination record: %w", err)
		}
		return nil
	})
}

func containsMethod(methods []programme.Method, m programme.Method) bool {
	for _, pm := range methods {
		if pm == m {
			return true
		}
	}
	return false
}

func containsVariant(variants []programme.Variant, v programme.Variant) bool {
	for _, av := range variants {
		if av == v {
			return true
		}
	}
	return false
}

// HasRecord reports whether any outcome exists for the patient at the
// session. The attendance service uses it to freeze attendance.
func (s *Service) HasRecord(ctx context.Context, patientID, sessionID uuid.UUID) (bool, error) {
	return s.records.ExistsForSession(ctx, patientID, sessionID)
}

// RecordsForKey returns the ordered record history for one key.
func (s *Service) RecordsForKey(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) ([]*Record, error) {
	return s.records.ListForKey(ctx, patientID, t, year)
}

// ListByPatient returns a patient's vaccination records, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.records.ListByPatient(ctx, patientID, limit, offset)
}

// SetDefaultBatch stores a nurse's batch preselection for a session.
func (s *Service) SetDefaultBatch(ctx context.Context, b *DefaultBatch) error {
	if b.UserID == "" || b.SessionID == uuid.Nil || b.VaccineName == "" || b.BatchNumber == "" {
		return errors.Join(ErrValidation, errors.New("user, session, vaccine and batch are all required"))
	}
	return s.batches.Set(ctx, b)
}

// DefaultBatchFor returns the stored preselection, if any.
func (s *Service) DefaultBatchFor(ctx context.Context, userID string, sessionID uuid.UUID, vaccineName string) (*DefaultBatch, error) {
	return s.batches.Get(ctx, userID, sessionID, vaccineName)
}

// ClearDefaultBatch removes a preselection.
func (s *Service) ClearDefaultBatch(ctx context.Context, userID string, sessionID uuid.UUID, vaccineName string) error {
	return s.batches.Clear(ctx, userID, sessionID, vaccineName)
}
