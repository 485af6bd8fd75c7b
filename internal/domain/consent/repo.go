package consent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/schoolvax/schoolvax/internal/domain/programme"
)

type Repository interface {
	Create(ctx context.Context, r *Response) error
	GetByID(ctx context.Context, id uuid.UUID) (*Response, error)
	// ListForKey returns every response for the patient, programme and
	// academic year ordered by creation time ascending.
	ListForKey(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) ([]*Response, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Response, int, error)
	Withdraw(ctx context.Context, id uuid.UUID, at time.Time) error
}
