package consent

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/schoolvax/schoolvax/internal/domain/programme"
)

// Status is the aggregated consent position for one patient, programme and
// academic year.
type Status string

const (
	StatusNoResponse  Status = "no_response"
	StatusGiven       Status = "given"
	StatusRefused     Status = "refused"
	StatusConflicting Status = "conflicting"
)

// Decision is the authoritative output of Aggregate. Methods is only set when
// Status is StatusGiven and lists the delivery methods every consenting party
// agreed to.
type Decision struct {
	Status  Status             `json:"status"`
	Methods []programme.Method `json:"methods,omitempty"`
	// LatestAt is the creation time of the newest response considered, zero
	// when Status is StatusNoResponse. Triage uses it to detect stale
	// decisions.
	LatestAt time.Time `json:"latest_at,omitempty"`
	// NeedsFollowUp is true when any authoritative given response carries a
	// health answer flagged for follow up.
	NeedsFollowUp bool `json:"needs_follow_up"`
}

// Aggregate reduces a patient's consent responses for one programme and
// academic year into a single decision.
//
// Withdrawn responses are discarded. The remaining responses are grouped by
// responder (parent, the patient themself, or a professional-recorded verbal
// response) and only the newest response per group counts. All groups
// refusing yields refused, all giving yields given with the intersection of
// their method selections, and disagreement yields conflicting. A verbal
// response taken by a professional that postdates every other group's
// position resolves the aggregate outright, which is how conflicting consent
// gets settled.
func Aggregate(responses []*Response) (Decision, error) {
	current, err := currentPositions(responses)
	if err != nil {
		return Decision{}, err
	}
	if len(current) == 0 {
		return Decision{Status: StatusNoResponse}, nil
	}

	latest := current[0]
	for _, r := range current[1:] {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}

	// A professional verbal response newer than every other position
	// supersedes them all.
	if latest.Verbal() && len(current) > 1 {
		return decisionFrom([]*Response{latest}), nil
	}

	return decisionFrom(current), nil
}

// currentPositions returns the newest non-withdrawn response per responder
// group, ordered deterministically by creation time.
func currentPositions(responses []*Response) ([]*Response, error) {
	byGroup := make(map[string]*Response)
	for _, r := range responses {
		if r.Withdrawn() {
			continue
		}
		if !r.Programme.Valid() || !r.AcademicYear.Valid() {
			return nil, errors.Join(ErrValidation,
				fmt.Errorf("response %s has malformed programme or academic year", r.ID))
		}
		if r.Decision == ResponseNoResponse {
			// Recorded "no response" events mark contact attempts; they do
			// not establish a position for the group.
			continue
		}
		key := groupKey(r)
		if cur, ok := byGroup[key]; !ok || r.CreatedAt.After(cur.CreatedAt) {
			byGroup[key] = r
		}
	}

	current := make([]*Response, 0, len(byGroup))
	for _, r := range byGroup {
		current = append(current, r)
	}
	sort.Slice(current, func(i, j int) bool {
		if current[i].CreatedAt.Equal(current[j].CreatedAt) {
			return current[i].ID.String() < current[j].ID.String()
		}
		return current[i].CreatedAt.Before(current[j].CreatedAt)
	})
	return current, nil
}

func groupKey(r *Response) string {
	switch {
	case r.ParentID != nil:
		return "parent:" + r.ParentID.String()
	case r.SelfConsent:
		return "self"
	default:
		return "verbal"
	}
}

func decisionFrom(current []*Response) Decision {
	var given, refused int
	for _, r := range current {
		switch r.Decision {
		case ResponseGiven:
			given++
		case ResponseRefused:
			refused++
		}
	}

	d := Decision{LatestAt: current[len(current)-1].CreatedAt}
	switch {
	case given == 0:
		d.Status = StatusRefused
	case refused > 0:
		d.Status = StatusConflicting
	default:
		methods := intersectSelections(current)
		if len(methods) == 0 {
			// Mutually exclusive selections (nasal only vs injection only)
			// leave nothing both parties agreed to.
			d.Status = StatusConflicting
			return d
		}
		d.Status = StatusGiven
		d.Methods = methods
		for _, r := range current {
			if r.NeedsFollowUp() {
				d.NeedsFollowUp = true
			}
		}
	}
	return d
}

func intersectSelections(current []*Response) []programme.Method {
	allowed := map[programme.Method]bool{
		programme.MethodNasal:     true,
		programme.MethodInjection: true,
	}
	for _, r := range current {
		if r.Decision != ResponseGiven {
			continue
		}
		permitted := make(map[programme.Method]bool)
		for _, m := range r.Selection.Methods() {
			permitted[m] = true
		}
		for m := range allowed {
			if !permitted[m] {
				delete(allowed, m)
			}
		}
	}

	var methods []programme.Method
	for _, m := range []programme.Method{programme.MethodInjection, programme.MethodNasal} {
		if allowed[m] {
			methods = append(methods, m)
		}
	}
	return methods
}

// Permits reports whether the decision allows vaccination by the given
// delivery method.
func (d Decision) Permits(m programme.Method) bool {
	if d.Status != StatusGiven {
		return false
	}
	for _, pm := range d.Methods {
		if pm == m {
			return true
		}
	}
	return false
}
