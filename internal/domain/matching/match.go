package matching

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/schoolvax/schoolvax/internal/domain/patient"
)

// Field weights order a candidate list for presentation. A date-of-birth
// match outranks a family-name match, which outranks given name, which
// outranks postcode. The weighting never changes what qualifies as a
// candidate; all 3-of-4 combinations are equally eligible for review.
const (
	weightDOB      = 8
	weightFamily   = 4
	weightGiven    = 2
	weightPostcode = 1
)

// normalizeName folds case and collapses internal whitespace after NFC
// normalization, so "José  GARCÍA " compares equal to "josé garcía".
func normalizeName(s string) string {
	s = norm.NFC.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// normalizePostcode strips all spaces and folds case: "so15 2gb" equals
// "SO152GB".
func normalizePostcode(s string) string {
	s = norm.NFC.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func compare(sub Submission, p *patient.Patient) Candidate {
	c := Candidate{PatientID: p.ID}

	c.GivenMatch = normalizeName(sub.GivenName) == normalizeName(p.GivenName)
	c.FamilyMatch = normalizeName(sub.FamilyName) == normalizeName(p.FamilyName)
	c.DOBMatch = sub.DateOfBirth.Year() == p.DateOfBirth.Year() &&
		sub.DateOfBirth.YearDay() == p.DateOfBirth.YearDay()
	if sub.Postcode != "" && p.Postcode != nil {
		c.PostcodeMatch = normalizePostcode(sub.Postcode) == normalizePostcode(*p.Postcode)
	}

	if c.DOBMatch {
		c.Rank += weightDOB
	}
	if c.FamilyMatch {
		c.Rank += weightFamily
	}
	if c.GivenMatch {
		c.Rank += weightGiven
	}
	if c.PostcodeMatch {
		c.Rank += weightPostcode
	}
	return c
}

// exact reports whether the candidate satisfies the safe auto-link
// predicate: family name and date of birth plus at least one of given name
// or postcode, with no known field contradicting. A field that disagrees
// demotes the match to manual review; twins sharing family, date of birth
// and address must never auto-link onto each other.
func exact(c Candidate, postcodeKnown bool) bool {
	if !c.FamilyMatch || !c.DOBMatch {
		return false
	}
	if !c.GivenMatch {
		return false
	}
	return c.PostcodeMatch || !postcodeKnown
}

// Match compares a submission against the cohort and decides whether it can
// be linked without human review. It never mutates the cohort: linking and
// any field backfill are the caller's explicit follow-up.
//
// Exactly one exact match auto-links. Otherwise patients matching exactly
// three of the four identity fields are surfaced as ranked candidates.
// Anything else, including several equally-exact matches, is unmatched and
// left for a human; the matcher never guesses.
func Match(sub Submission, cohort []*patient.Patient) Result {
	var exacts []Candidate
	var partials []Candidate

	for _, p := range cohort {
		if p.Archived() {
			continue
		}
		c := compare(sub, p)
		postcodeKnown := sub.Postcode != "" && p.Postcode != nil
		switch {
		case exact(c, postcodeKnown):
			exacts = append(exacts, c)
		case c.MatchedFields() == 3:
			partials = append(partials, c)
		}
	}

	if len(exacts) == 1 {
		id := exacts[0].PatientID
		return Result{Outcome: OutcomeAutoLinked, PatientID: &id}
	}
	if len(exacts) > 1 {
		// Ambiguous full matches are never auto-resolved.
		return Result{Outcome: OutcomeUnmatched}
	}

	if len(partials) > 0 {
		sort.SliceStable(partials, func(i, j int) bool {
			return partials[i].Rank > partials[j].Rank
		})
		return Result{Outcome: OutcomeCandidates, Candidates: partials}
	}

	return Result{Outcome: OutcomeUnmatched}
}
