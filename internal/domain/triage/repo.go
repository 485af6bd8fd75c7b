package triage

import (
	"context"

	"github.com/google/uuid"

	"github.com/schoolvax/schoolvax/internal/domain/programme"
)

type Repository interface {
	Create(ctx context.Context, d *Decision) error
	GetByID(ctx context.Context, id uuid.UUID) (*Decision, error)
	// ListForKey returns every decision for the patient, programme and
	// academic year ordered by decided_at ascending.
	ListForKey(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) ([]*Decision, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Decision, int, error)
}
