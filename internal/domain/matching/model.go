package matching

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/schoolvax/schoolvax/internal/domain/consent"
	"github.com/schoolvax/schoolvax/internal/domain/programme"
)

var (
	// ErrValidation is returned for malformed submissions or resolutions.
	ErrValidation = errors.New("invalid consent form submission")
	// ErrAlreadyResolved is returned when a reviewer resolves a form twice.
	ErrAlreadyResolved = errors.New("consent form already resolved")
)

// Submission is an inbound consent form before it is linked to a patient.
// The identity fields are what the parent typed, kept verbatim; comparison
// happens on normalized copies that are never stored.
type Submission struct {
	GivenName   string     `json:"given_name"`
	FamilyName  string     `json:"family_name"`
	DateOfBirth time.Time  `json:"date_of_birth"`
	Postcode    string     `json:"postcode"`
	SchoolID    *uuid.UUID `json:"school_id,omitempty"`

	ParentName    string                   `json:"parent_name"`
	ParentEmail   *string                  `json:"parent_email,omitempty"`
	ParentPhone   *string                  `json:"parent_phone,omitempty"`
	Relationship  string                   `json:"relationship"`
	Programme     programme.Type           `json:"programme"`
	AcademicYear  programme.AcademicYear   `json:"academic_year"`
	Method        consent.ResponseMethod   `json:"method,omitempty"`
	Decision      consent.ResponseDecision `json:"decision"`
	Selection     consent.Selection        `json:"selection,omitempty"`
	HealthAnswers []consent.HealthAnswer   `json:"health_answers,omitempty"`
	Notes         *string                  `json:"notes,omitempty"`
}

func (s *Submission) Validate() error {
	if s.GivenName == "" || s.FamilyName == "" {
		return errors.Join(ErrValidation, errors.New("given_name and family_name are required"))
	}
	if s.DateOfBirth.IsZero() {
		return errors.Join(ErrValidation, errors.New("date_of_birth is required"))
	}
	if !s.Programme.Valid() {
		return errors.Join(ErrValidation, errors.New("unknown programme"))
	}
	if !s.AcademicYear.Valid() {
		return errors.Join(ErrValidation, errors.New("malformed academic year"))
	}
	return nil
}

// FormStatus is the review lifecycle of a parked submission.
type FormStatus string

const (
	FormUnmatched     FormStatus = "unmatched"
	FormPendingReview FormStatus = "pending_review"
	FormLinked        FormStatus = "linked"
	FormArchived      FormStatus = "archived"
)

// Candidate is one cohort patient surfaced for manual review, with per-field
// match flags and a presentation rank.
type Candidate struct {
	PatientID     uuid.UUID `json:"patient_id"`
	GivenMatch    bool      `json:"given_match"`
	FamilyMatch   bool      `json:"family_match"`
	DOBMatch      bool      `json:"dob_match"`
	PostcodeMatch bool      `json:"postcode_match"`
	Rank          int       `json:"rank"`
}

// MatchedFields counts how many of the four identity fields matched.
func (c Candidate) MatchedFields() int {
	n := 0
	for _, m := range []bool{c.GivenMatch, c.FamilyMatch, c.DOBMatch, c.PostcodeMatch} {
		if m {
			n++
		}
	}
	return n
}

// Outcome of a match attempt.
type Outcome string

const (
	OutcomeAutoLinked Outcome = "auto_linked"
	OutcomeCandidates Outcome = "candidates"
	OutcomeUnmatched  Outcome = "unmatched"
)

// Result is what Match returns: either exactly one safe link, a ranked
// candidate list for review, or nothing.
type Result struct {
	Outcome    Outcome     `json:"outcome"`
	PatientID  *uuid.UUID  `json:"patient_id,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// UnmatchedConsentForm is a parked submission awaiting manual review.
type UnmatchedConsentForm struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	OrgID      uuid.UUID   `db:"org_id" json:"org_id"`
	Submission Submission  `db:"submission" json:"submission"`
	Status     FormStatus  `db:"status" json:"status"`
	Candidates []Candidate `db:"candidates" json:"candidates,omitempty"`
	// LinkedPatientID is set once a reviewer links or creates a patient.
	LinkedPatientID *uuid.UUID `db:"linked_patient_id" json:"linked_patient_id,omitempty"`
	ReviewNotes     *string    `db:"review_notes" json:"review_notes,omitempty"`
	ResolvedBy      *string    `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// HasCandidate reports whether the patient was surfaced as a candidate for
// this form.
func (f *UnmatchedConsentForm) HasCandidate(patientID uuid.UUID) bool {
	for _, c := range f.Candidates {
		if c.PatientID == patientID {
			return true
		}
	}
	return false
}

// ResolutionAction is a reviewer's decision on a parked form.
type ResolutionAction string

const (
	// ActionLink accepts a candidate and links the form to it.
	ActionLink ResolutionAction = "link"
	// ActionCreateNew treats the submission as a genuinely new patient,
	// keeping both records.
	ActionCreateNew ResolutionAction = "create_new"
	// ActionArchive marks the submission invalid. Notes are mandatory.
	ActionArchive ResolutionAction = "archive"
)

// Resolution carries the reviewer's decision.
type Resolution struct {
	Action      ResolutionAction `json:"action"`
	CandidateID *uuid.UUID       `json:"candidate_id,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	ResolvedBy  string           `json:"resolved_by"`
}

func (r *Resolution) Validate() error {
	switch r.Action {
	case ActionLink:
		if r.CandidateID == nil {
			return errors.Join(ErrValidation, errors.New("candidate_id is required to link"))
		}
	case ActionCreateNew:
	case ActionArchive:
		if r.Notes == "" {
			return errors.Join(ErrValidation, errors.New("notes are required to archive a submission"))
		}
	default:
		return errors.Join(ErrValidation, errors.New("unknown resolution action"))
	}
	if r.ResolvedBy == "" {
		return errors.Join(ErrValidation, errors.New("resolved_by is required"))
	}
	return nil
}
