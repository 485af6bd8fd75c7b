package status

import (
	"github.com/schoolvax/schoolvax/internal/domain/attendance"
	"github.com/schoolvax/schoolvax/internal/domain/consent"
	"github.com/schoolvax/schoolvax/internal/domain/programme"
	"github.com/schoolvax/schoolvax/internal/domain/triage"
)

// VaccinationStatus is the programme-level vaccination dimension, derived
// from the record history rather than stored.
type VaccinationStatus string

const (
	Vaccinated        VaccinationStatus = "vaccinated"
	CouldNotVaccinate VaccinationStatus = "could_not_vaccinate"
	Delayed           VaccinationStatus = "delayed"
	AlreadyHad        VaccinationStatus = "already_had"
	Eligible          VaccinationStatus = "eligible"
	NotEligible       VaccinationStatus = "not_eligible"
	Blocked           VaccinationStatus = "blocked"
)

// Bundle is the four-dimensional status for one patient, programme and
// academic year. Every dimension is recomputed from events on read; none of
// them is ever persisted, so the bundle can never drift from its inputs.
type Bundle struct {
	Programme    programme.Type         `json:"programme"`
	AcademicYear programme.AcademicYear `json:"academic_year"`
	Consent      consent.Status         `json:"consent_status"`
	Triage       triage.State           `json:"triage_status"`
	Registration attendance.Status      `json:"registration_status"`
	Vaccination  VaccinationStatus      `json:"vaccination_status"`
}

// Gate reason strings surfaced to the nurse UI. ReasonAlreadyVaccinated is
// matched by the vaccination recorder to distinguish a terminal duplicate
// from an ordinary block.
const (
	ReasonAlreadyVaccinated = "already vaccinated"
	ReasonNoConsent         = "no consent response"
	ReasonConsentRefused    = "consent refused"
	ReasonConsentConflict   = "conflicting consent, needs resolution"
	ReasonTriageBlocked     = "triage does not permit vaccination"
	ReasonNotAttending      = "patient not registered as attending"
)

// Gate is the nurse-facing "can vaccinate now" answer. It is a pure function
// of a Bundle and its inputs, never stored.
type Gate struct {
	Allowed            bool                `json:"allowed"`
	Reason             string              `json:"reason,omitempty"`
	PermittedMethods   []programme.Method  `json:"permitted_methods,omitempty"`
	AdmissibleVariants []programme.Variant `json:"admissible_variants,omitempty"`
}
