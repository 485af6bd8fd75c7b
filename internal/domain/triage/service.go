package triage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/schoolvax/schoolvax/internal/domain/consent"
	"github.com/schoolvax/schoolvax/internal/domain/programme"
)

// ConsentSource supplies the aggregate consent decision the state machine
// runs against. *consent.Service satisfies it.
type ConsentSource interface {
	CurrentDecision(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) (consent.Decision, error)
}

type Service struct {
	decisions Repository
	consents  ConsentSource
}

func NewService(decisions Repository, consents ConsentSource) *Service {
	return &Service{decisions: decisions, consents: consents}
}

// RecordTriage validates and persists a professional's triage decision and
// returns the resulting state. Outcomes that the programme-variant rule
// table does not admit for the patient's current consent selection are
// rejected.
func (s *Service) RecordTriage(ctx context.Context, d *Decision) (StateResult, error) {
	if err := d.Validate(); err != nil {
		return StateResult{}, err
	}

	decision, err := s.consents.CurrentDecision(ctx, d.PatientID, d.Programme, d.AcademicYear)
	if err != nil {
		return StateResult{}, fmt.Errorf("load consent decision: %w", err)
	}
	if decision.Status != consent.StatusGiven {
		return StateResult{}, errors.Join(ErrNotApplicable,
			fmt.Errorf("consent status is %s", decision.Status))
	}
	// A key with no flagged health answer never leaves no_triage_required.
	if !decision.NeedsFollowUp {
		return StateResult{}, errors.Join(ErrNotApplicable,
			errors.New("no health answer was flagged for follow up"))
	}
	if d.Outcome.Terminal() && !RuleFor(d.Programme, decision).Allows(d.Outcome) {
		return StateResult{}, errors.Join(ErrInvalidOutcomeForVariant,
			fmt.Errorf("outcome %s not admissible for %s with methods %v", d.Outcome, d.Programme, decision.Methods))
	}

	if err := s.decisions.Create(ctx, d); err != nil {
		return StateResult{}, fmt.Errorf("create triage decision: %w", err)
	}

	history, err := s.decisions.ListForKey(ctx, d.PatientID, d.Programme, d.AcademicYear)
	if err != nil {
		return StateResult{}, fmt.Errorf("list triage decisions: %w", err)
	}
	return StateResult{State: Evaluate(decision, history), Decision: d}, nil
}

// CurrentState derives the triage state for the key from stored events.
func (s *Service) CurrentState(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) (State, error) {
	decision, err := s.consents.CurrentDecision(ctx, patientID, t, year)
	if err != nil {
		return "", fmt.Errorf("load consent decision: %w", err)
	}
	history, err := s.decisions.ListForKey(ctx, patientID, t, year)
	if err != nil {
		return "", fmt.Errorf("list triage decisions: %w", err)
	}
	return Evaluate(decision, history), nil
}

// History returns a patient's triage decisions, newest first.
func (s *Service) History(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Decision, int, error) {
	return s.decisions.ListByPatient(ctx, patientID, limit, offset)
}

// DecisionsForKey returns the ordered decision history for one key.
func (s *Service) DecisionsForKey(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) ([]*Decision, error) {
	return s.decisions.ListForKey(ctx, patientID, t, year)
}
