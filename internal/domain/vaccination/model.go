package vaccination

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/schoolvax/schoolvax/internal/domain/programme"
)

var (
	// ErrValidation is returned for malformed or missing required fields.
	ErrValidation = errors.New("invalid vaccination record")
	// ErrNotPermitted is returned when the nurse-facing gate blocks
	// vaccination (consent, triage or registration not in order).
	ErrNotPermitted = errors.New("vaccination not permitted")
	// ErrVariantNotPermitted is returned when the chosen product is not
	// admissible under the patient's consent selection and triage outcome.
	ErrVariantNotPermitted = errors.New("vaccine variant not permitted for this patient")
	// ErrAlreadyVaccinated is returned when an administered record already
	// exists for the programme and academic year.
	ErrAlreadyVaccinated = errors.New("patient already vaccinated for this programme")
)

// Session is a school vaccination session. The engine only needs its dates
// and which programmes it covers; scheduling beyond that is the surrounding
// application's concern.
type Session struct {
	ID                   uuid.UUID              `db:"id" json:"id"`
	SchoolID             uuid.UUID              `db:"school_id" json:"school_id"`
	Date                 time.Time              `db:"date" json:"date"`
	Programmes           []programme.Type       `db:"programmes" json:"programmes"`
	AcademicYear         programme.AcademicYear `db:"academic_year" json:"academic_year"`
	ConsentDeadline      *time.Time             `db:"consent_deadline" json:"consent_deadline,omitempty"`
	RegistrationRequired bool                   `db:"registration_required" json:"registration_required"`
	CreatedAt            time.Time              `db:"created_at" json:"created_at"`
}

// Covers reports whether the session offers the programme.
func (s *Session) Covers(t programme.Type) bool {
	for _, p := range s.Programmes {
		if p == t {
			return true
		}
	}
	return false
}

// ConsentWindowOpen reports whether consent responses are still being
// accepted for the session at the given time. This is a presentation concern
// layered on top of the consent status, not part of aggregation.
func (s *Session) ConsentWindowOpen(at time.Time) bool {
	if s.ConsentDeadline == nil {
		return at.Before(s.Date)
	}
	return at.Before(*s.ConsentDeadline)
}

// Outcome is the clinical outcome of one vaccination encounter.
type Outcome string

const (
	OutcomeAdministered    Outcome = "administered"
	OutcomeRefused         Outcome = "refused"
	OutcomeAbsent          Outcome = "absent"
	OutcomeAlreadyHad      Outcome = "already_had"
	OutcomeContraindicated Outcome = "contraindicated"
	OutcomeOther           Outcome = "other"
)

var validOutcomes = map[Outcome]bool{
	OutcomeAdministered: true, OutcomeRefused: true, OutcomeAbsent: true,
	OutcomeAlreadyHad: true, OutcomeContraindicated: true, OutcomeOther: true,
}

// Record is one vaccination outcome for a patient at a session. Records are
// append-only; corrections create new records rather than mutating old ones.
type Record struct {
	ID            uuid.UUID              `db:"id" json:"id"`
	PatientID     uuid.UUID              `db:"patient_id" json:"patient_id"`
	Programme     programme.Type         `db:"programme" json:"programme"`
	SessionID     uuid.UUID              `db:"session_id" json:"session_id"`
	AcademicYear  programme.AcademicYear `db:"academic_year" json:"academic_year"`
	Outcome       Outcome                `db:"outcome" json:"outcome"`
	VaccineName   *string                `db:"vaccine_name" json:"vaccine_name,omitempty"`
	Variant       *programme.Variant     `db:"variant" json:"variant,omitempty"`
	BatchNumber   *string                `db:"batch_number" json:"batch_number,omitempty"`
	BatchExpiry   *time.Time             `db:"batch_expiry" json:"batch_expiry,omitempty"`
	Method        *programme.Method      `db:"method" json:"method,omitempty"`
	Site          *string                `db:"site" json:"site,omitempty"`
	PerformedBy   string                 `db:"performed_by" json:"performed_by"`
	Notes         *string                `db:"notes" json:"notes,omitempty"`
	NotifyParents bool                   `db:"notify_parents" json:"notify_parents"`
	CreatedAt     time.Time              `db:"created_at" json:"created_at"`
}

// Validate checks the structural fields required before persistence. Vaccine,
// batch and delivery method are only required when a dose was administered.
func (r *Record) Validate() error {
	if r.PatientID == uuid.Nil {
		return errors.Join(ErrValidation, errors.New("patient_id is required"))
	}
	if r.SessionID == uuid.Nil {
		return errors.Join(ErrValidation, errors.New("session_id is required"))
	}
	if !r.Programme.Valid() {
		return errors.Join(ErrValidation, errors.New("unknown programme"))
	}
	if !r.AcademicYear.Valid() {
		return errors.Join(ErrValidation, errors.New("malformed academic year"))
	}
	if !validOutcomes[r.Outcome] {
		return errors.Join(ErrValidation, errors.New("unknown outcome"))
	}
	if r.PerformedBy == "" {
		return errors.Join(ErrValidation, errors.New("performed_by is required"))
	}
	if r.Outcome == OutcomeAdministered {
		if r.VaccineName == nil || *r.VaccineName == "" {
			return errors.Join(ErrValidation, errors.New("vaccine_name is required when administered"))
		}
		if r.BatchNumber == nil || *r.BatchNumber == "" {
			return errors.Join(ErrValidation, errors.New("batch_number is required when administered"))
		}
		if r.Variant == nil {
			return errors.Join(ErrValidation, errors.New("variant is required when administered"))
		}
		if r.Method == nil {
			return errors.Join(ErrValidation, errors.New("method is required when administered"))
		}
	}
	return nil
}

// DefaultBatch is a nurse's short-lived batch preselection, keyed by user,
// session and vaccine. It is a convenience preference, not clinical state.
type DefaultBatch struct {
	UserID      string     `db:"user_id" json:"user_id"`
	SessionID   uuid.UUID  `db:"session_id" json:"session_id"`
	VaccineName string     `db:"vaccine_name" json:"vaccine_name"`
	BatchNumber string     `db:"batch_number" json:"batch_number"`
	BatchExpiry *time.Time `db:"batch_expiry" json:"batch_expiry,omitempty"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
