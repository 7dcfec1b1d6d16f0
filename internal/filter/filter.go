package filter

import (
	"strings"

	"github.com/amishk599/jobenricher/internal/model"
)

var _ model.JobFilter = (*EnrichedJobFilter)(nil)

// Criteria selects enriched jobs worth highlighting.
type Criteria struct {
	HideCitizenship   bool     // drop jobs that require citizenship or clearance
	HideNoSponsorship bool     // drop jobs that will not sponsor a visa
	Locations         []string // keep jobs whose location contains any of these
	ExcludeLocations  []string // drop jobs whose location contains any of these
	WorkTypes         []string // keep jobs with one of these work types (extended schema)
}

// EnrichedJobFilter applies Criteria to enriched jobs. Matching of location
// keywords is case-insensitive. Empty lists are treated as "match all".
type EnrichedJobFilter struct {
	c Criteria
}

// NewEnrichedJobFilter returns a filter for the given criteria.
func NewEnrichedJobFilter(c Criteria) *EnrichedJobFilter {
	return &EnrichedJobFilter{c: c}
}

// Match returns true if the job passes every configured criterion.
func (f *EnrichedJobFilter) Match(job model.Job) bool {
	if f.c.HideCitizenship && job.RequiresCitizenship {
		return false
	}
	if f.c.HideNoSponsorship && job.NoVisaSponsorship {
		return false
	}

	locationLower := strings.ToLower(job.Location)
	if containsAny(locationLower, f.c.ExcludeLocations) {
		return false
	}
	if len(f.c.Locations) > 0 && !containsAny(locationLower, f.c.Locations) {
		return false
	}

	if len(f.c.WorkTypes) > 0 {
		wt := model.WorkTypeUnknown
		if job.Details != nil && job.Details.WorkType != "" {
			wt = job.Details.WorkType
		}
		matched := false
		for _, want := range f.c.WorkTypes {
			if strings.EqualFold(want, string(wt)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// Apply returns the jobs that match, preserving order.
func Apply(f model.JobFilter, jobs []model.Job) []model.Job {
	var out []model.Job
	for _, j := range jobs {
		if f.Match(j) {
			out = append(out, j)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(s, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
