package programme

import (
	"testing"
	"time"
)

func TestAcademicYearForDate_AutumnTerm(t *testing.T) {
	got := AcademicYearForDate(time.Date(2024, time.October, 15, 0, 0, 0, 0, time.UTC))
	if got != "2024/25" {
		t.Errorf("AcademicYearForDate(Oct 2024) = %q, want %q", got, "2024/25")
	}
}

func TestAcademicYearForDate_SummerTerm(t *testing.T) {
	got := AcademicYearForDate(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	if got != "2024/25" {
		t.Errorf("AcademicYearForDate(Jun 2025) = %q, want %q", got, "2024/25")
	}
}

func TestAcademicYearForDate_SeptemberFirstStartsNewYear(t *testing.T) {
	got := AcademicYearForDate(time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC))
	if got != "2025/26" {
		t.Errorf("AcademicYearForDate(1 Sep 2025) = %q, want %q", got, "2025/26")
	}
}

func TestAcademicYearForDate_AugustThirtyFirstIsPreviousYear(t *testing.T) {
	got := AcademicYearForDate(time.Date(2025, time.August, 31, 23, 59, 0, 0, time.UTC))
	if got != "2024/25" {
		t.Errorf("AcademicYearForDate(31 Aug 2025) = %q, want %q", got, "2024/25")
	}
}

func TestAcademicYearForDate_CenturyRollover(t *testing.T) {
	got := AcademicYearForDate(time.Date(2099, time.November, 1, 0, 0, 0, 0, time.UTC))
	if got != "2099/00" {
		t.Errorf("AcademicYearForDate(Nov 2099) = %q, want %q", got, "2099/00")
	}
}

func TestAcademicYear_Valid(t *testing.T) {
	cases := []struct {
		year AcademicYear
		want bool
	}{
		{"2024/25", true},
		{"2099/00", true},
		{"2024/26", false},
		{"2024-25", false},
		{"24/25", false},
		{"", false},
		{"2024/2x", false},
	}
	for _, tc := range cases {
		if got := tc.year.Valid(); got != tc.want {
			t.Errorf("AcademicYear(%q).Valid() = %v, want %v", tc.year, got, tc.want)
		}
	}
}

func TestAcademicYear_StartDate(t *testing.T) {
	got := AcademicYear("2024/25").StartDate()
	want := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("StartDate() = %v, want %v", got, want)
	}
}

func TestType_Valid(t *testing.T) {
	for _, p := range []Type{HPV, Flu, MMR, MenACWY, TdIPV} {
		if !p.Valid() {
			t.Errorf("%q should be a valid programme", p)
		}
	}
	if Type("polio").Valid() {
		t.Error("unknown programme should not be valid")
	}
}

func TestType_Methods(t *testing.T) {
	flu := Flu.Methods()
	if len(flu) != 2 || flu[0] != MethodNasal || flu[1] != MethodInjection {
		t.Errorf("Flu.Methods() = %v, want nasal then injection", flu)
	}
	hpv := HPV.Methods()
	if len(hpv) != 1 || hpv[0] != MethodInjection {
		t.Errorf("HPV.Methods() = %v, want injection only", hpv)
	}
}

func TestType_HasGelatineConcern(t *testing.T) {
	if !Flu.HasGelatineConcern() {
		t.Error("nasal flu spray contains gelatine")
	}
	if !MMR.HasGelatineConcern() {
		t.Error("MMRV contains gelatine")
	}
	if HPV.HasGelatineConcern() {
		t.Error("HPV has no gelatine-containing formulation")
	}
}

func TestHealthQuestions_IncludeCommonSet(t *testing.T) {
	for _, p := range []Type{HPV, Flu, MMR, MenACWY, TdIPV} {
		qs := HealthQuestions(p)
		if len(qs) < len(commonQuestions) {
			t.Errorf("%s: expected at least the common question set, got %d", p, len(qs))
			continue
		}
		keys := make(map[string]bool, len(qs))
		for _, q := range qs {
			keys[q.Key] = true
		}
		for _, c := range commonQuestions {
			if !keys[c.Key] {
				t.Errorf("%s: missing common question %q", p, c.Key)
			}
		}
	}
}

func TestHealthQuestions_FluAsksAboutAsthma(t *testing.T) {
	found := false
	for _, q := range HealthQuestions(Flu) {
		if q.Key == "asthma" {
			found = true
		}
	}
	if !found {
		t.Error("flu questionnaire should ask about asthma")
	}
}
