package programme

// yearGroupRange is an inclusive school year-group range.
type yearGroupRange struct {
	min, max int
}

// The national schedule is stable enough to keep as a static table. Reception
// is year group 0.
var eligibilityByProgramme = map[Type]yearGroupRange{
	Flu:     {0, 11},
	HPV:     {8, 11},
	MenACWY: {9, 11},
	TdIPV:   {9, 11},
	MMR:     {0, 11},
}

// EligibleYearGroups returns the year groups the programme covers in the
// given academic year.
func EligibleYearGroups(t Type, _ AcademicYear) []int {
	r, ok := eligibilityByProgramme[t]
	if !ok {
		return nil
	}
	groups := make([]int, 0, r.max-r.min+1)
	for yg := r.min; yg <= r.max; yg++ {
		groups = append(groups, yg)
	}
	return groups
}

// EligibleForYearGroup reports whether a patient in the given year group is
// in the programme's cohort for the academic year.
func EligibleForYearGroup(t Type, year AcademicYear, yearGroup int) bool {
	r, ok := eligibilityByProgramme[t]
	if !ok {
		return false
	}
	return yearGroup >= r.min && yearGroup <= r.max
}
