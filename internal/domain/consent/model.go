package consent

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/schoolvax/schoolvax/internal/domain/programme"
)

// ErrValidation is returned when a response is malformed or missing required
// fields. It is raised before anything is persisted.
var ErrValidation = errors.New("invalid consent response")

// ResponseMethod is how a consent response reached the service.
type ResponseMethod string

const (
	MethodOnline   ResponseMethod = "online"
	MethodPhone    ResponseMethod = "phone"
	MethodInPerson ResponseMethod = "in_person"
	MethodPaper    ResponseMethod = "paper"
)

var validResponseMethods = map[ResponseMethod]bool{
	MethodOnline: true, MethodPhone: true, MethodInPerson: true, MethodPaper: true,
}

// ResponseDecision is the decision carried by a single response.
type ResponseDecision string

const (
	ResponseGiven      ResponseDecision = "given"
	ResponseRefused    ResponseDecision = "refused"
	ResponseNoResponse ResponseDecision = "no_response"
)

// Selection restricts which delivery methods a consent covers.
type Selection string

const (
	SelectionEither        Selection = "either"
	SelectionNasalOnly     Selection = "nasal_only"
	SelectionInjectionOnly Selection = "injection_only"
)

// Methods returns the delivery methods a selection permits.
func (s Selection) Methods() []programme.Method {
	switch s {
	case SelectionNasalOnly:
		return []programme.Method{programme.MethodNasal}
	case SelectionInjectionOnly:
		return []programme.Method{programme.MethodInjection}
	default:
		return []programme.Method{programme.MethodNasal, programme.MethodInjection}
	}
}

// HealthAnswer is one answered screening question on a response.
type HealthAnswer struct {
	Question      string `db:"question" json:"question"`
	NeedsFollowUp bool   `db:"needs_follow_up" json:"needs_follow_up"`
	Notes         string `db:"notes" json:"notes,omitempty"`
}

// Response is one consent decision event for a patient, programme and
// academic year. Responses are immutable once created except for withdrawal;
// a new response supersedes rather than mutates earlier ones.
type Response struct {
	ID           uuid.UUID              `db:"id" json:"id"`
	PatientID    uuid.UUID              `db:"patient_id" json:"patient_id"`
	Programme    programme.Type         `db:"programme" json:"programme"`
	AcademicYear programme.AcademicYear `db:"academic_year" json:"academic_year"`
	// ParentID is nil for self consent and for verbal consent taken by a
	// professional without a parent on record.
	ParentID      *uuid.UUID       `db:"parent_id" json:"parent_id,omitempty"`
	SelfConsent   bool             `db:"self_consent" json:"self_consent"`
	Method        ResponseMethod   `db:"method" json:"method"`
	Decision      ResponseDecision `db:"decision" json:"decision"`
	Selection     Selection        `db:"selection" json:"selection"`
	HealthAnswers []HealthAnswer   `db:"health_answers" json:"health_answers,omitempty"`
	Notes         *string          `db:"notes" json:"notes,omitempty"`
	RecordedBy    *string          `db:"recorded_by" json:"recorded_by,omitempty"`
	WithdrawnAt   *time.Time       `db:"withdrawn_at" json:"withdrawn_at,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// Withdrawn reports whether the response has been withdrawn.
func (r *Response) Withdrawn() bool { return r.WithdrawnAt != nil }

// Verbal reports whether the response was taken verbally by a professional
// with no parent attached. A verbal response can supersede conflicting
// written responses.
func (r *Response) Verbal() bool {
	return r.ParentID == nil && !r.SelfConsent &&
		(r.Method == MethodPhone || r.Method == MethodInPerson)
}

// NeedsFollowUp reports whether any health answer was flagged for follow up.
func (r *Response) NeedsFollowUp() bool {
	for _, a := range r.HealthAnswers {
		if a.NeedsFollowUp {
			return true
		}
	}
	return false
}

// Validate checks the structural fields that must be present before a
// response may be persisted.
func (r *Response) Validate() error {
	if r.PatientID == uuid.Nil {
		return errors.Join(ErrValidation, errors.New("patient_id is required"))
	}
	if !r.Programme.Valid() {
		return errors.Join(ErrValidation, errors.New("unknown programme"))
	}
	if !r.AcademicYear.Valid() {
		return errors.Join(ErrValidation, errors.New("malformed academic year"))
	}
	if !validResponseMethods[r.Method] {
		return errors.Join(ErrValidation, errors.New("unknown response method"))
	}
	switch r.Decision {
	case ResponseGiven, ResponseRefused, ResponseNoResponse:
	default:
		return errors.Join(ErrValidation, errors.New("unknown decision"))
	}
	if r.Decision == ResponseGiven && r.Selection == "" {
		return errors.Join(ErrValidation, errors.New("selection is required when consent is given"))
	}
	if r.ParentID == nil && !r.SelfConsent && r.Method == MethodOnline {
		return errors.Join(ErrValidation, errors.New("online responses must name a parent or be self consent"))
	}
	return nil
}
