package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	patients Repository
	parents  ParentRepository
	moves    SchoolMoveRepository
}

func NewService(patients Repository, parents ParentRepository, moves SchoolMoveRepository) *Service {
	return &Service{patients: patients, parents: parents, moves: moves}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	existing, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}
	if existing.Archived() {
		return ErrArchived
	}
	return s.patients.Update(ctx, p)
}

// ArchivePatient soft-archives the record. A reason is mandatory so the
// archive trail stays auditable.
func (s *Service) ArchivePatient(ctx context.Context, id uuid.UUID, reason string) error {
	if reason == "" {
		return errors.Join(ErrValidation, errors.New("archive reason is required"))
	}
	return s.patients.Archive(ctx, id, reason)
}

func (s *Service) ListPatients(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, orgID, limit, offset)
}

func (s *Service) ListBySchool(ctx context.Context, schoolID uuid.UUID, yearGroup *int, limit, offset int) ([]*Patient, int, error) {
	return s.patients.ListBySchool(ctx, schoolID, yearGroup, limit, offset)
}

// SearchCandidates is the identity matcher's cohort prefilter.
func (s *Service) SearchCandidates(ctx context.Context, orgID uuid.UUID, familyName string, dateOfBirth time.Time) ([]*Patient, error) {
	return s.patients.SearchCandidates(ctx, orgID, familyName, dateOfBirth)
}

// UpdateSchool sets the patient's school only when none is recorded. When the
// patient already belongs to a different school the change is parked as a
// pending school move for the cohort workflow instead of being applied.
func (s *Service) UpdateSchool(ctx context.Context, patientID, schoolID uuid.UUID, source string) error {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}
	if p.Archived() {
		return ErrArchived
	}
	if p.SchoolID == nil {
		p.SchoolID = &schoolID
		return s.patients.Update(ctx, p)
	}
	if *p.SchoolID == schoolID {
		return nil
	}
	return s.moves.Create(ctx, &SchoolMove{
		PatientID:    patientID,
		FromSchoolID: p.SchoolID,
		ToSchoolID:   schoolID,
		Source:       source,
	})
}

func (s *Service) PendingSchoolMoves(ctx context.Context, limit, offset int) ([]*SchoolMove, int, error) {
	return s.moves.ListPending(ctx, limit, offset)
}

// -- Parents --

func (s *Service) CreateParent(ctx context.Context, p *Parent) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.parents.Create(ctx, p)
}

func (s *Service) GetParent(ctx context.Context, id uuid.UUID) (*Parent, error) {
	return s.parents.GetByID(ctx, id)
}

func (s *Service) UpdateParent(ctx context.Context, p *Parent) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.parents.Update(ctx, p)
}

func (s *Service) LinkParent(ctx context.Context, link *PatientParent) error {
	if err := link.Validate(); err != nil {
		return err
	}
	return s.parents.Link(ctx, link)
}

func (s *Service) UnlinkParent(ctx context.Context, patientID, parentID uuid.UUID) error {
	return s.parents.Unlink(ctx, patientID, parentID)
}

func (s *Service) ParentsOf(ctx context.Context, patientID uuid.UUID) ([]*Parent, error) {
	return s.parents.ListForPatient(ctx, patientID)
}

func (s *Service) ParentLinks(ctx context.Context, patientID uuid.UUID) ([]*PatientParent, error) {
	return s.parents.ListLinks(ctx, patientID)
}
