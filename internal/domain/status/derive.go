package status

import (
	"github.com/schoolvax/schoolvax/internal/domain/attendance"
	"github.com/schoolvax/schoolvax/internal/domain/consent"
	"github.com/schoolvax/schoolvax/internal/domain/programme"
	"github.com/schoolvax/schoolvax/internal/domain/triage"
	"github.com/schoolvax/schoolvax/internal/domain/vaccination"
)

// Inputs is the event snapshot Derive works over. Records must be ordered by
// creation time ascending, the order the record repository returns them in.
type Inputs struct {
	Programme    programme.Type
	AcademicYear programme.AcademicYear
	Consent      consent.Decision
	Triage       triage.State
	Registration attendance.Status
	// RegistrationRequired mirrors the session flag; when false the gate
	// does not insist on an attending registration.
	RegistrationRequired bool
	Records              []*vaccination.Record
	// YearGroup is the patient's school year group, nil when unknown.
	YearGroup *int
}

// Derive computes the four-dimensional status bundle. It is pure: deriving
// twice over an unchanged snapshot returns an identical bundle.
func Derive(in Inputs) Bundle {
	return Bundle{
		Programme:    in.Programme,
		AcademicYear: in.AcademicYear,
		Consent:      in.Consent.Status,
		Triage:       in.Triage,
		Registration: in.Registration,
		Vaccination:  deriveVaccination(in),
	}
}

func deriveVaccination(in Inputs) VaccinationStatus {
	var latest *vaccination.Record
	for _, r := range in.Records {
		if r.Outcome == vaccination.OutcomeAdministered {
			// Terminal for the programme and year: later consent or triage
			// events never move the status away from vaccinated.
			return Vaccinated
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}

	if latest != nil {
		switch latest.Outcome {
		case vaccination.OutcomeAbsent:
			return Delayed
		case vaccination.OutcomeAlreadyHad:
			return AlreadyHad
		default:
			// refused, contraindicated, other
			return CouldNotVaccinate
		}
	}

	if in.Triage == triage.StateDelayVaccination {
		return Delayed
	}
	if in.Consent.Status == consent.StatusGiven && in.Triage.SafeToProceed() {
		if in.YearGroup != nil && !programme.EligibleForYearGroup(in.Programme, in.AcademicYear, *in.YearGroup) {
			return NotEligible
		}
		return Eligible
	}
	return Blocked
}

// CanVaccinate answers the nurse-facing gate over the same snapshot. The
// precedence is strict: a recorded administration wins over everything, then
// consent, then triage, then session registration.
func CanVaccinate(in Inputs) Gate {
	b := Derive(in)

	if b.Vaccination == Vaccinated {
		return Gate{Reason: ReasonAlreadyVaccinated}
	}

	switch b.Consent {
	case consent.StatusGiven:
	case consent.StatusRefused:
		return Gate{Reason: ReasonConsentRefused}
	case consent.StatusConflicting:
		return Gate{Reason: ReasonConsentConflict}
	default:
		return Gate{Reason: ReasonNoConsent}
	}

	if !b.Triage.SafeToProceed() {
		return Gate{Reason: ReasonTriageBlocked}
	}

	if in.RegistrationRequired && b.Registration != attendance.StatusAttending {
		return Gate{Reason: ReasonNotAttending}
	}

	return Gate{
		Allowed:            true,
		PermittedMethods:   in.Consent.Methods,
		AdmissibleVariants: admissibleVariants(in),
	}
}

// admissibleVariants narrows the programme rule table by the triage outcome:
// a safe_without_gelatine decision admits only the gelatine-free product.
func admissibleVariants(in Inputs) []programme.Variant {
	rule := triage.RuleFor(in.Programme, in.Consent)
	if in.Triage != triage.StateSafeWithoutGelatine {
		return rule.AdmissibleVariants
	}
	var out []programme.Variant
	for _, v := range rule.AdmissibleVariants {
		if v == programme.VariantGelatineFree {
			out = append(out, v)
		}
	}
	if out == nil {
		out = []programme.Variant{programme.VariantGelatineFree}
	}
	return out
}
