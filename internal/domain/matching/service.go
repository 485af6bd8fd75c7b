package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schoolvax/schoolvax/internal/domain/consent"
	"github.com/schoolvax/schoolvax/internal/domain/patient"
	"github.com/schoolvax/schoolvax/internal/platform/db"
)

// PatientSource is the slice of the patient service the matcher needs.
type PatientSource interface {
	SearchCandidates(ctx context.Context, orgID uuid.UUID, familyName string, dateOfBirth time.Time) ([]*patient.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	CreatePatient(ctx context.Context, p *patient.Patient) error
	UpdateSchool(ctx context.Context, patientID, schoolID uuid.UUID, source string) error
	CreateParent(ctx context.Context, p *patient.Parent) error
	LinkParent(ctx context.Context, link *patient.PatientParent) error
}

// ConsentRecorder records the consent event once a submission is linked.
type ConsentRecorder interface {
	RecordConsent(ctx context.Context, res *consent.Response) (consent.Decision, error)
}

type Service struct {
	pool     *pgxpool.Pool
	forms    Repository
	patients PatientSource
	consents ConsentRecorder
}

func NewService(pool *pgxpool.Pool, forms Repository, patients PatientSource, consents ConsentRecorder) *Service {
	return &Service{pool: pool, forms: forms, patients: patients, consents: consents}
}

// inTx runs fn inside a database transaction. A nil pool degrades to a plain
// call, which in-memory repositories rely on.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

// SubmitResult is the outcome of one submission: either a linked patient
// with its fresh consent decision, or a parked form awaiting review.
type SubmitResult struct {
	Match    Result                `json:"match"`
	Decision *consent.Decision     `json:"decision,omitempty"`
	Form     *UnmatchedConsentForm `json:"form,omitempty"`
}

// SubmitConsentForm matches the submission against the cohort. An
// unambiguous exact match links immediately and records the consent event;
// anything else is parked for manual review and records nothing.
func (s *Service) SubmitConsentForm(ctx context.Context, orgID uuid.UUID, sub Submission) (SubmitResult, error) {
	if err := sub.Validate(); err != nil {
		return SubmitResult{}, err
	}

	cohort, err := s.patients.SearchCandidates(ctx, orgID, sub.FamilyName, sub.DateOfBirth)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("load cohort candidates: %w", err)
	}

	res := Match(sub, cohort)
	if res.Outcome == OutcomeAutoLinked {
		// Parent, consent and school backfill land atomically or not at all.
		var decision consent.Decision
		err := s.inTx(ctx, func(ctx context.Context) error {
			var err error
			decision, err = s.link(ctx, *res.PatientID, sub, "online_form")
			return err
		})
		if err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Match: res, Decision: &decision}, nil
	}

	form := &UnmatchedConsentForm{
		OrgID:      orgID,
		Submission: sub,
		Candidates: res.Candidates,
		Status:     FormUnmatched,
	}
	if res.Outcome == OutcomeCandidates {
		form.Status = FormPendingReview
	}
	if err := s.forms.Create(ctx, form); err != nil {
		return SubmitResult{}, fmt.Errorf("park consent form: %w", err)
	}
	return SubmitResult{Match: res, Form: form}, nil
}

// link attaches the submission to the patient: creates and links the parent,
// records the consent event, and backfills the school when it was unset. It
// never overwrites existing patient data.
func (s *Service) link(ctx context.Context, patientID uuid.UUID, sub Submission, recordedBy string) (consent.Decision, error) {
	var parentID *uuid.UUID
	if sub.ParentName != "" {
		parent := &patient.Parent{
			FullName: sub.ParentName,
			Email:    sub.ParentEmail,
			Phone:    sub.ParentPhone,
		}
		if err := s.patients.CreateParent(ctx, parent); err != nil {
			return consent.Decision{}, fmt.Errorf("create parent: %w", err)
		}
		rel, label := parseRelationship(sub.Relationship)
		if err := s.patients.LinkParent(ctx, &patient.PatientParent{
			PatientID:         patientID,
			ParentID:          parent.ID,
			Relationship:      rel,
			RelationshipLabel: label,
		}); err != nil {
			return consent.Decision{}, fmt.Errorf("link parent: %w", err)
		}
		parentID = &parent.ID
	}

	method := sub.Method
	if method == "" {
		method = consent.MethodOnline
	}
	decision, err := s.consents.RecordConsent(ctx, &consent.Response{
		PatientID:     patientID,
		Programme:     sub.Programme,
		AcademicYear:  sub.AcademicYear,
		ParentID:      parentID,
		Method:        method,
		Decision:      sub.Decision,
		Selection:     sub.Selection,
		HealthAnswers: sub.HealthAnswers,
		Notes:         sub.Notes,
		RecordedBy:    &recordedBy,
	})
	if err != nil {
		return consent.Decision{}, fmt.Errorf("record consent: %w", err)
	}

	if sub.SchoolID != nil {
		if err := s.patients.UpdateSchool(ctx, patientID, *sub.SchoolID, "consent_form"); err != nil {
			return consent.Decision{}, fmt.Errorf("backfill school: %w", err)
		}
	}
	return decision, nil
}

func parseRelationship(raw string) (patient.Relationship, *string) {
	switch rel := patient.Relationship(raw); rel {
	case patient.RelationshipMother, patient.RelationshipFather, patient.RelationshipGuardian:
		return rel, nil
	}
	if raw == "" {
		return patient.RelationshipOther, nil
	}
	return patient.RelationshipOther, &raw
}

// ResolutionResult reports what the reviewer's decision produced.
type ResolutionResult struct {
	Outcome   string     `json:"outcome"` // linked | created | archived
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	Decision  *consent.Decision `json:"decision,omitempty"`
}

// ResolveUnmatched applies a reviewer decision to a parked form. Linking is
// restricted to the surfaced candidates; creating a new patient is always an
// explicit choice, never automatic.
func (s *Service) ResolveUnmatched(ctx context.Context, formID uuid.UUID, res Resolution) (ResolutionResult, error) {
	if err := res.Validate(); err != nil {
		return ResolutionResult{}, err
	}

	// The patient writes, the consent event and the form's state change are
	// one unit; a failure leaves the form open for another attempt.
	var out ResolutionResult
	err := s.inTx(ctx, func(ctx context.Context) error {
		form, err := s.forms.GetByID(ctx, formID)
		if err != nil {
			return fmt.Errorf("load consent form: %w", err)
		}
		if form.ResolvedAt != nil {
			return ErrAlreadyResolved
		}

		now := time.Now().UTC()
		form.ResolvedBy = &res.ResolvedBy
		form.ResolvedAt = &now
		if res.Notes != "" {
			form.ReviewNotes = &res.Notes
		}

		switch res.Action {
		case ActionLink:
			if !form.HasCandidate(*res.CandidateID) {
				return errors.Join(ErrValidation,
					errors.New("candidate was not surfaced for this form"))
			}
			decision, err := s.link(ctx, *res.CandidateID, form.Submission, res.ResolvedBy)
			if err != nil {
				return err
			}
			form.Status = FormLinked
			form.LinkedPatientID = res.CandidateID
			out = ResolutionResult{Outcome: "linked", PatientID: res.CandidateID, Decision: &decision}

		case ActionCreateNew:
			p := &patient.Patient{
				OrgID:       form.OrgID,
				GivenName:   form.Submission.GivenName,
				FamilyName:  form.Submission.FamilyName,
				DateOfBirth: form.Submission.DateOfBirth,
				SchoolID:    form.Submission.SchoolID,
			}
			if form.Submission.Postcode != "" {
				pc := form.Submission.Postcode
				p.Postcode = &pc
			}
			if err := s.patients.CreatePatient(ctx, p); err != nil {
				return fmt.Errorf("create patient: %w", err)
			}
			decision, err := s.link(ctx, p.ID, form.Submission, res.ResolvedBy)
			if err != nil {
				return err
			}
			form.Status = FormLinked
			form.LinkedPatientID = &p.ID
			out = ResolutionResult{Outcome: "created", PatientID: &p.ID, Decision: &decision}

		case ActionArchive:
			form.Status = FormArchived
			out = ResolutionResult{Outcome: "archived"}
		}

		if err := s.forms.Resolve(ctx, form); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAlreadyResolved
			}
			return fmt.Errorf("resolve consent form: %w", err)
		}
		return nil
	})
	if err != nil {
		return ResolutionResult{}, err
	}
	return out, nil
}

func (s *Service) GetForm(ctx context.Context, id uuid.UUID) (*UnmatchedConsentForm, error) {
	return s.forms.GetByID(ctx, id)
}

func (s *Service) ListForms(ctx context.Context, orgID uuid.UUID, status FormStatus, limit, offset int) ([]*UnmatchedConsentForm, int, error) {
	return s.forms.ListByStatus(ctx, orgID, status, limit, offset)
}
