package triage

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/schoolvax/schoolvax/internal/domain/programme"
)

var (
	// ErrValidation is returned for malformed or missing required fields.
	ErrValidation = errors.New("invalid triage decision")
	// ErrInvalidOutcomeForVariant is returned when a recorded outcome is not
	// admissible for the patient's current consent selection and programme
	// variant.
	ErrInvalidOutcomeForVariant = errors.New("triage outcome not valid for programme variant")
	// ErrNotApplicable is returned when triage is recorded against a patient
	// whose aggregate consent does not call for triage at all.
	ErrNotApplicable = errors.New("triage not applicable for current consent decision")
)

// Outcome is a professional's recorded triage outcome.
type Outcome string

const (
	OutcomeNeedsTriage         Outcome = "needs_triage"
	OutcomeSafeToVaccinate     Outcome = "safe_to_vaccinate"
	OutcomeSafeWithoutGelatine Outcome = "safe_without_gelatine"
	OutcomeDoNotVaccinate      Outcome = "do_not_vaccinate"
	OutcomeDelayVaccination    Outcome = "delay_vaccination"
)

var validOutcomes = map[Outcome]bool{
	OutcomeNeedsTriage: true, OutcomeSafeToVaccinate: true,
	OutcomeSafeWithoutGelatine: true, OutcomeDoNotVaccinate: true,
	OutcomeDelayVaccination: true,
}

// Terminal reports whether the outcome concludes triage for the current
// consent event. OutcomeNeedsTriage is the only non-terminal outcome.
func (o Outcome) Terminal() bool {
	return validOutcomes[o] && o != OutcomeNeedsTriage
}

// State is the derived triage position for a patient, programme and academic
// year.
type State string

const (
	StateNoTriageRequired    State = "no_triage_required"
	StateNeedsTriage         State = "needs_triage"
	StateSafeToVaccinate     State = "safe_to_vaccinate"
	StateSafeWithoutGelatine State = "safe_without_gelatine"
	StateDoNotVaccinate      State = "do_not_vaccinate"
	StateDelayVaccination    State = "delay_vaccination"
)

// SafeToProceed reports whether the state permits vaccination.
func (s State) SafeToProceed() bool {
	switch s {
	case StateNoTriageRequired, StateSafeToVaccinate, StateSafeWithoutGelatine:
		return true
	}
	return false
}

// Decision is one recorded triage decision. Decisions accumulate over time;
// only the latest one that postdates the newest consent response is
// authoritative.
type Decision struct {
	ID           uuid.UUID              `db:"id" json:"id"`
	PatientID    uuid.UUID              `db:"patient_id" json:"patient_id"`
	Programme    programme.Type         `db:"programme" json:"programme"`
	AcademicYear programme.AcademicYear `db:"academic_year" json:"academic_year"`
	Outcome      Outcome                `db:"outcome" json:"outcome"`
	Notes        string                 `db:"notes" json:"notes"`
	DecidedBy    string                 `db:"decided_by" json:"decided_by"`
	DecidedAt    time.Time              `db:"decided_at" json:"decided_at"`
	Variant      *programme.Variant     `db:"variant" json:"variant,omitempty"`
}

// Validate checks the structural fields required before persistence.
func (d *Decision) Validate() error {
	if d.PatientID == uuid.Nil {
		return errors.Join(ErrValidation, errors.New("patient_id is required"))
	}
	if !d.Programme.Valid() {
		return errors.Join(ErrValidation, errors.New("unknown programme"))
	}
	if !d.AcademicYear.Valid() {
		return errors.Join(ErrValidation, errors.New("malformed academic year"))
	}
	if !validOutcomes[d.Outcome] {
		return errors.Join(ErrValidation, errors.New("unknown outcome"))
	}
	if d.DecidedBy == "" {
		return errors.Join(ErrValidation, errors.New("decided_by is required"))
	}
	if d.Notes == "" && d.Outcome == OutcomeNeedsTriage {
		// Keeping a patient in triage is an explicit decision and must say
		// why.
		return errors.Join(ErrValidation, errors.New("notes are required when keeping a patient in triage"))
	}
	return nil
}

// StateResult is returned by the service after recording a decision.
type StateResult struct {
	State    State     `json:"state"`
	Decision *Decision `json:"decision,omitempty"`
}
