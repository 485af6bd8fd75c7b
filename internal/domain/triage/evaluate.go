package triage

import (
	"github.com/schoolvax/schoolvax/internal/domain/consent"
)

// Evaluate derives the triage state from the aggregate consent decision and
// the recorded triage history.
//
// Triage only applies when consent is given and a health answer was flagged
// for follow up. A recorded decision is authoritative only while it
// postdates the newest consent response: any consent event recorded after it
// silently reverts the state to needs_triage until a professional reviews
// again. Conflicting consent is not a triage concern; it is reported on the
// consent dimension and leaves triage at no_triage_required.
func Evaluate(decision consent.Decision, history []*Decision) State {
	if decision.Status != consent.StatusGiven {
		return StateNoTriageRequired
	}
	if !decision.NeedsFollowUp {
		return StateNoTriageRequired
	}

	latest := latestDecision(history)
	if latest == nil {
		return StateNeedsTriage
	}
	if latest.DecidedAt.Before(decision.LatestAt) {
		// Stale: consent changed after this decision was made.
		return StateNeedsTriage
	}

	switch latest.Outcome {
	case OutcomeSafeToVaccinate:
		return StateSafeToVaccinate
	case OutcomeSafeWithoutGelatine:
		return StateSafeWithoutGelatine
	case OutcomeDoNotVaccinate:
		return StateDoNotVaccinate
	case OutcomeDelayVaccination:
		return StateDelayVaccination
	default:
		return StateNeedsTriage
	}
}

func latestDecision(history []*Decision) *Decision {
	var latest *Decision
	for _, d := range history {
		if latest == nil || d.DecidedAt.After(latest.DecidedAt) {
			latest = d
		}
	}
	return latest
}
