package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByNHSNumber(ctx context.Context, nhsNumber string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Archive(ctx context.Context, id uuid.UUID, reason string) error
	List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Patient, int, error)
	// ListBySchool returns active patients at the school, optionally
	// filtered by year group (nil = all year groups).
	ListBySchool(ctx context.Context, schoolID uuid.UUID, yearGroup *int, limit, offset int) ([]*Patient, int, error)
	// SearchCandidates returns active patients whose family name or date of
	// birth matches, the prefilter the identity matcher ranks over. Backed
	// by the (family_name, date_of_birth) index.
	SearchCandidates(ctx context.Context, orgID uuid.UUID, familyName string, dateOfBirth time.Time) ([]*Patient, error)
}

type ParentRepository interface {
	Create(ctx context.Context, p *Parent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Parent, error)
	Update(ctx context.Context, p *Parent) error
	Link(ctx context.Context, link *PatientParent) error
	Unlink(ctx context.Context, patientID, parentID uuid.UUID) error
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Parent, error)
	ListLinks(ctx context.Context, patientID uuid.UUID) ([]*PatientParent, error)
}

type SchoolMoveRepository interface {
	Create(ctx context.Context, m *SchoolMove) error
	ListPending(ctx context.Context, limit, offset int) ([]*SchoolMove, int, error)
}
