package programme

import (
	"fmt"
	"strconv"
	"time"
)

// Type identifies a vaccination programme (campaign type).
type Type string

const (
	HPV     Type = "hpv"
	Flu     Type = "flu"
	MMR     Type = "mmr"
	MenACWY Type = "menacwy"
	TdIPV   Type = "td_ipv"
)

var validTypes = map[Type]bool{
	HPV: true, Flu: true, MMR: true, MenACWY: true, TdIPV: true,
}

// Valid reports whether t names a known programme.
func (t Type) Valid() bool { return validTypes[t] }

// Method is a vaccine delivery method within a programme.
type Method string

const (
	MethodInjection Method = "injection"
	MethodNasal     Method = "nasal"
)

// Variant is a vaccine formulation distinction that consent and triage must
// be able to tell apart (e.g. the nasal flu spray contains gelatine, the
// injected alternative does not; MMRV vs plain MMR).
type Variant string

const (
	VariantStandard     Variant = "standard"
	VariantNasal        Variant = "nasal"
	VariantInjection    Variant = "injection"
	VariantGelatineFree Variant = "gelatine_free"
	VariantMMRV         Variant = "mmrv"
)

// Methods returns the delivery methods offered by the programme.
func (t Type) Methods() []Method {
	if t == Flu {
		return []Method{MethodNasal, MethodInjection}
	}
	return []Method{MethodInjection}
}

// HasGelatineConcern reports whether the programme offers a formulation
// containing gelatine, which makes gelatine-status triage relevant.
func (t Type) HasGelatineConcern() bool {
	// The nasal flu spray and MMRV both contain porcine gelatine.
	return t == Flu || t == MMR
}

// AcademicYear is a school academic year in "2024/25" form. Academic years
// start on the 1st of September.
type AcademicYear string

// AcademicYearForDate returns the academic year containing the given date.
func AcademicYearForDate(date time.Time) AcademicYear {
	year := date.Year()
	if date.Month() < time.September {
		year--
	}
	return AcademicYear(fmt.Sprintf("%d/%02d", year, (year+1)%100))
}

// Valid reports whether y is a well-formed academic year.
func (y AcademicYear) Valid() bool {
	s := string(y)
	if len(s) != 7 || s[4] != '/' {
		return false
	}
	start, err := strconv.Atoi(s[:4])
	if err != nil {
		return false
	}
	end, err := strconv.Atoi(s[5:])
	if err != nil {
		return false
	}
	return (start+1)%100 == end
}

// StartDate returns the first day of the academic year.
func (y AcademicYear) StartDate() time.Time {
	start, _ := strconv.Atoi(string(y)[:4])
	return time.Date(start, time.September, 1, 0, 0, 0, 0, time.UTC)
}

// Question is one health screening question asked on a consent form.
type Question struct {
	Key       string `json:"key"`
	Text      string `json:"text"`
	GivesNote bool   `json:"gives_note"`
}

var commonQuestions = []Question{
	{Key: "severe_allergies", Text: "Does your child have any severe allergies?", GivesNote: true},
	{Key: "medical_conditions", Text: "Does your child have any medical conditions for which they receive treatment?", GivesNote: true},
	{Key: "previous_reaction", Text: "Has your child ever had a severe reaction to any medicines, including vaccines?", GivesNote: true},
	{Key: "extra_support", Text: "Does your child need extra support during vaccination sessions?", GivesNote: true},
}

var questionsByProgramme = map[Type][]Question{
	Flu: append([]Question{
		{Key: "asthma", Text: "Has your child been diagnosed with asthma?", GivesNote: true},
		{Key: "asthma_steroids", Text: "Does your child take oral steroids for their asthma?", GivesNote: true},
		{Key: "immune_condition", Text: "Does your child have a disease or treatment that severely affects their immune system?", GivesNote: true},
		{Key: "household_immune", Text: "Is your child in regular close contact with anyone currently having treatment that severely affects their immune system?", GivesNote: true},
		{Key: "egg_allergy", Text: "Has your child ever been admitted to intensive care due to a severe egg allergy?", GivesNote: true},
		{Key: "aspirin", Text: "Does your child take regular aspirin?", GivesNote: true},
		{Key: "recent_flu_vaccine", Text: "Has your child had a flu vaccination in the last 3 months?", GivesNote: true},
	}, commonQuestions...),
	HPV: commonQuestions,
	MMR: append([]Question{
		{Key: "bleeding_disorder", Text: "Does your child have a bleeding disorder?", GivesNote: true},
		{Key: "recent_mmr", Text: "Has your child had an MMR vaccination in the last 3 months?", GivesNote: true},
	}, commonQuestions...),
	MenACWY: append([]Question{
		{Key: "bleeding_disorder", Text: "Does your child have a bleeding disorder?", GivesNote: true},
	}, commonQuestions...),
	TdIPV: append([]Question{
		{Key: "bleeding_disorder", Text: "Does your child have a bleeding disorder?", GivesNote: true},
		{Key: "recent_tetanus", Text: "Has your child had a tetanus containing vaccination in the last 5 years?", GivesNote: true},
	}, commonQuestions...),
}

// HealthQuestions returns the screening questions asked for the programme.
func HealthQuestions(t Type) []Question {
	return questionsByProgramme[t]
}
