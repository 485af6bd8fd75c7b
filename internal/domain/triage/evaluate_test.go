package triage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/schoolvax/schoolvax/internal/domain/consent"
	"github.com/schoolvax/schoolvax/internal/domain/programme"
)

var base = time.Date(2024, time.October, 1, 9, 0, 0, 0, time.UTC)

func given(needsFollowUp bool, at time.Time, methods ...programme.Method) consent.Decision {
	if len(methods) == 0 {
		methods = []programme.Method{programme.MethodInjection, programme.MethodNasal}
	}
	return consent.Decision{
		Status:        consent.StatusGiven,
		Methods:       methods,
		LatestAt:      at,
		NeedsFollowUp: needsFollowUp,
	}
}

func decided(outcome Outcome, at time.Time) *Decision {
	return &Decision{
		ID:           uuid.New(),
		PatientID:    uuid.New(),
		Programme:    programme.Flu,
		AcademicYear: "2024/25",
		Outcome:      outcome,
		Notes:        "reviewed",
		DecidedBy:    "nurse.jones",
		DecidedAt:    at,
	}
}

func TestEvaluate_NotGiven(t *testing.T) {
	for _, status := range []consent.Status{consent.StatusNoResponse, consent.StatusRefused, consent.StatusConflicting} {
		state := Evaluate(consent.Decision{Status: status}, nil)
		assert.Equal(t, StateNoTriageRequired, state, "status %s", status)
	}
}

func TestEvaluate_GivenWithoutFollowUps(t *testing.T) {
	state := Evaluate(given(false, base), nil)
	assert.Equal(t, StateNoTriageRequired, state)
}

func TestEvaluate_FollowUpWithoutDecision(t *testing.T) {
	state := Evaluate(given(true, base), nil)
	assert.Equal(t, StateNeedsTriage, state)
}

func TestEvaluate_TerminalDecision(t *testing.T) {
	cases := map[Outcome]State{
		OutcomeSafeToVaccinate:     StateSafeToVaccinate,
		OutcomeSafeWithoutGelatine: StateSafeWithoutGelatine,
		OutcomeDoNotVaccinate:      StateDoNotVaccinate,
		OutcomeDelayVaccination:    StateDelayVaccination,
	}
	for outcome, want := range cases {
		state := Evaluate(given(true, base), []*Decision{decided(outcome, base.Add(time.Hour))})
		assert.Equal(t, want, state, "outcome %s", outcome)
	}
}

func TestEvaluate_ExplicitKeepInTriage(t *testing.T) {
	state := Evaluate(given(true, base), []*Decision{decided(OutcomeNeedsTriage, base.Add(time.Hour))})
	assert.Equal(t, StateNeedsTriage, state)
}

func TestEvaluate_NewerConsentInvalidatesDecision(t *testing.T) {
	// Decision made at +1h, then consent changed at +2h: the terminal
	// decision loses its authority and the patient is back in triage.
	history := []*Decision{decided(OutcomeSafeToVaccinate, base.Add(time.Hour))}
	state := Evaluate(given(true, base.Add(2*time.Hour)), history)
	assert.Equal(t, StateNeedsTriage, state)
}

func TestEvaluate_LatestDecisionWins(t *testing.T) {
	history := []*Decision{
		decided(OutcomeDoNotVaccinate, base.Add(time.Hour)),
		decided(OutcomeSafeToVaccinate, base.Add(2*time.Hour)),
	}
	state := Evaluate(given(true, base), history)
	assert.Equal(t, StateSafeToVaccinate, state)
}

func TestRuleFor_NasalOnlyGelatineProgramme(t *testing.T) {
	rule := RuleFor(programme.Flu, given(true, base, programme.MethodNasal))
	assert.False(t, rule.Allows(OutcomeSafeToVaccinate), "plain safe_to_vaccinate must not be admissible")
	assert.True(t, rule.Allows(OutcomeSafeWithoutGelatine))
	assert.True(t, rule.Allows(OutcomeNeedsTriage))
	assert.True(t, rule.Allows(OutcomeDoNotVaccinate))
	assert.True(t, rule.Allows(OutcomeDelayVaccination))
	assert.True(t, rule.Admits(programme.VariantGelatineFree))
	assert.False(t, rule.Admits(programme.VariantNasal))
}

func TestRuleFor_UnrestrictedFlu(t *testing.T) {
	rule := RuleFor(programme.Flu, given(true, base))
	assert.True(t, rule.Allows(OutcomeSafeToVaccinate))
	assert.True(t, rule.Admits(programme.VariantNasal))
}

func TestRuleFor_NonGelatineProgrammeIgnoresSelection(t *testing.T) {
	rule := RuleFor(programme.HPV, given(true, base, programme.MethodInjection))
	assert.True(t, rule.Allows(OutcomeSafeToVaccinate))
	assert.False(t, rule.Allows(OutcomeSafeWithoutGelatine), "gelatine outcome is meaningless for HPV")
}

func TestOutcome_Terminal(t *testing.T) {
	assert.False(t, OutcomeNeedsTriage.Terminal())
	assert.True(t, OutcomeSafeToVaccinate.Terminal())
	assert.True(t, OutcomeDoNotVaccinate.Terminal())
	assert.False(t, Outcome("bogus").Terminal())
}
