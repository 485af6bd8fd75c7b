package attendance

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert creates or replaces the record for (patient, session).
	Upsert(ctx context.Context, r *Record) error
	Get(ctx context.Context, patientID, sessionID uuid.UUID) (*Record, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*Record, int, error)
}
