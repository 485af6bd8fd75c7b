package vaccination

import (
	"context"

	"github.com/google/uuid"

	"github.com/schoolvax/schoolvax/internal/domain/programme"
)

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	ListBySchool(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*Session, int, error)
}

type RecordRepository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// ListForKey returns every record for the patient, programme and
	// academic year ordered by creation time ascending.
	ListForKey(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) ([]*Record, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error)
	ExistsForSession(ctx context.Context, patientID, sessionID uuid.UUID) (bool, error)
}

type DefaultBatchRepository interface {
	Set(ctx context.Context, b *DefaultBatch) error
	Get(ctx context.Context, userID string, sessionID uuid.UUID, vaccineName string) (*DefaultBatch, error)
	Clear(ctx context.Context, userID string, sessionID uuid.UUID, vaccineName string) error
}
