package matching

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, f *UnmatchedConsentForm) error
	GetByID(ctx context.Context, id uuid.UUID) (*UnmatchedConsentForm, error)
	// Resolve stamps the review outcome onto the form. Fails when the form
	// was already resolved.
	Resolve(ctx context.Context, f *UnmatchedConsentForm) error
	ListByStatus(ctx context.Context, orgID uuid.UUID, status FormStatus, limit, offset int) ([]*UnmatchedConsentForm, int, error)
}
