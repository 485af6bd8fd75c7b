package consent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/schoolvax/schoolvax/internal/domain/programme"
)

type Service struct {
	responses Repository
}

func NewService(responses Repository) *Service {
	return &Service{responses: responses}
}

// RecordConsent validates and persists a response, then returns the fresh
// aggregate decision for the affected patient, programme and academic year.
func (s *Service) RecordConsent(ctx context.Context, res *Response) (Decision, error) {
	if err := res.Validate(); err != nil {
		return Decision{}, err
	}
	if err := s.responses.Create(ctx, res); err != nil {
		return Decision{}, fmt.Errorf("create consent response: %w", err)
	}
	return s.CurrentDecision(ctx, res.PatientID, res.Programme, res.AcademicYear)
}

// WithdrawConsent marks a response withdrawn and returns the resulting
// aggregate decision. Withdrawal is the only permitted mutation of a
// response.
func (s *Service) WithdrawConsent(ctx context.Context, id uuid.UUID) (Decision, error) {
	res, err := s.responses.GetByID(ctx, id)
	if err != nil {
		return Decision{}, fmt.Errorf("load consent response: %w", err)
	}
	if err := s.responses.Withdraw(ctx, id, time.Now().UTC()); err != nil {
		return Decision{}, fmt.Errorf("withdraw consent response: %w", err)
	}
	return s.CurrentDecision(ctx, res.PatientID, res.Programme, res.AcademicYear)
}

// CurrentDecision aggregates the stored responses for the key.
func (s *Service) CurrentDecision(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) (Decision, error) {
	responses, err := s.responses.ListForKey(ctx, patientID, t, year)
	if err != nil {
		return Decision{}, fmt.Errorf("list consent responses: %w", err)
	}
	return Aggregate(responses)
}

// ListResponses returns a patient's responses across programmes, newest
// first.
func (s *Service) ListResponses(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Response, int, error) {
	return s.responses.ListByPatient(ctx, patientID, limit, offset)
}

// ResponsesForKey returns the ordered event history for one key.
func (s *Service) ResponsesForKey(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) ([]*Response, error) {
	return s.responses.ListForKey(ctx, patientID, t, year)
}
