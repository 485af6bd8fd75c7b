package triage

import (
	"github.com/schoolvax/schoolvax/internal/domain/consent"
	"github.com/schoolvax/schoolvax/internal/domain/programme"
)

// VariantRule constrains which terminal triage outcomes may be recorded and
// which vaccine formulations may be administered for a combination of
// programme and consented delivery methods. Programme-variant nuances live in
// this table rather than in per-programme conditionals.
type VariantRule struct {
	AllowedOutcomes    []Outcome
	AdmissibleVariants []programme.Variant
}

// Allows reports whether the outcome may be recorded under this rule.
func (r VariantRule) Allows(o Outcome) bool {
	for _, a := range r.AllowedOutcomes {
		if a == o {
			return true
		}
	}
	return false
}

// Admits reports whether the vaccine variant may be administered under this
// rule.
func (r VariantRule) Admits(v programme.Variant) bool {
	for _, a := range r.AdmissibleVariants {
		if a == v {
			return true
		}
	}
	return false
}

var allOutcomes = []Outcome{
	OutcomeNeedsTriage, OutcomeSafeToVaccinate, OutcomeSafeWithoutGelatine,
	OutcomeDoNotVaccinate, OutcomeDelayVaccination,
}

// gelatineRestricted forbids the plain safe_to_vaccinate outcome: the only
// safe terminal outcome must name the gelatine-free product.
var gelatineRestricted = []Outcome{
	OutcomeNeedsTriage, OutcomeSafeWithoutGelatine,
	OutcomeDoNotVaccinate, OutcomeDelayVaccination,
}

type ruleKey struct {
	programme programme.Type
	nasalOnly bool
}

var variantRules = map[ruleKey]VariantRule{
	{programme.Flu, false}: {
		AllowedOutcomes:    allOutcomes,
		AdmissibleVariants: []programme.Variant{programme.VariantNasal, programme.VariantInjection, programme.VariantGelatineFree},
	},
	// Nasal-only consent under a gelatine-relevant programme: the nasal spray
	// contains gelatine, so a plain "safe to vaccinate" is never admissible.
	{programme.Flu, true}: {
		AllowedOutcomes:    gelatineRestricted,
		AdmissibleVariants: []programme.Variant{programme.VariantGelatineFree},
	},
	{programme.MMR, false}: {
		AllowedOutcomes:    allOutcomes,
		AdmissibleVariants: []programme.Variant{programme.VariantStandard, programme.VariantMMRV, programme.VariantGelatineFree},
	},
	{programme.HPV, false}: {
		AllowedOutcomes:    []Outcome{OutcomeNeedsTriage, OutcomeSafeToVaccinate, OutcomeDoNotVaccinate, OutcomeDelayVaccination},
		AdmissibleVariants: []programme.Variant{programme.VariantStandard},
	},
	{programme.MenACWY, false}: {
		AllowedOutcomes:    []Outcome{OutcomeNeedsTriage, OutcomeSafeToVaccinate, OutcomeDoNotVaccinate, OutcomeDelayVaccination},
		AdmissibleVariants: []programme.Variant{programme.VariantStandard},
	},
	{programme.TdIPV, false}: {
		AllowedOutcomes:    []Outcome{OutcomeNeedsTriage, OutcomeSafeToVaccinate, OutcomeDoNotVaccinate, OutcomeDelayVaccination},
		AdmissibleVariants: []programme.Variant{programme.VariantStandard},
	},
}

// RuleFor looks up the variant rule for the programme given the aggregate
// consent decision. A consent restricted to the nasal product under a
// programme with a gelatine concern selects the restricted rule.
func RuleFor(t programme.Type, decision consent.Decision) VariantRule {
	nasalOnly := false
	if t.HasGelatineConcern() && decision.Status == consent.StatusGiven {
		nasalOnly = len(decision.Methods) == 1 && decision.Methods[0] == programme.MethodNasal
	}
	if rule, ok := variantRules[ruleKey{t, nasalOnly}]; ok {
		return rule
	}
	// Unknown programme combinations fall back to the unrestricted rule so
	// that validation, not the rule table, reports the bad programme.
	return VariantRule{AllowedOutcomes: allOutcomes, AdmissibleVariants: []programme.Variant{programme.VariantStandard}}
}
