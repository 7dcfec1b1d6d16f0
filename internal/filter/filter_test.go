package filter

import (
	"testing"

	"github.com/amishk599/jobenricher/internal/model"
)

func job(location string, citizenship, noSponsor bool) model.Job {
	return model.Job{Title: "Engineer", Location: location, RequiresCitizenship: citizenship, NoVisaSponsorship: noSponsor}
}

func withWorkType(j model.Job, wt model.WorkType) model.Job {
	j.Details = &model.JobDetails{WorkType: wt}
	return j
}

func TestEnrichedJobFilter_Match(t *testing.T) {
	tests := []struct {
		name      string
		criteria  Criteria
		job       model.Job
		wantMatch bool
	}{
		{
			name:      "empty criteria pass all",
			job:       job("Anywhere", true, true),
			wantMatch: true,
		},
		{
			name:      "hide citizenship drops flagged job",
			criteria:  Criteria{HideCitizenship: true},
			job:       job("Austin, TX", true, false),
			wantMatch: false,
		},
		{
			name:      "hide citizenship keeps unflagged job",
			criteria:  Criteria{HideCitizenship: true},
			job:       job("Austin, TX", false, true),
			wantMatch: true,
		},
		{
			name:      "hide no sponsorship",
			criteria:  Criteria{HideNoSponsorship: true},
			job:       job("Remote", false, true),
			wantMatch: false,
		},
		{
			name:      "location keyword case insensitive",
			criteria:  Criteria{Locations: []string{"remote", "Berlin"}},
			job:       job("REMOTE - US", false, false),
			wantMatch: true,
		},
		{
			name:      "location keyword miss",
			criteria:  Criteria{Locations: []string{"Berlin"}},
			job:       job("London, UK", false, false),
			wantMatch: false,
		},
		{
			name:      "exclude location wins over include",
			criteria:  Criteria{Locations: []string{"US"}, ExcludeLocations: []string{"Texas"}},
			job:       job("Austin, Texas, US", false, false),
			wantMatch: false,
		},
		{
			name:      "work type match",
			criteria:  Criteria{WorkTypes: []string{"remote", "hybrid"}},
			job:       withWorkType(job("NYC", false, false), model.WorkTypeHybrid),
			wantMatch: true,
		},
		{
			name:      "work type missing counts as unknown",
			criteria:  Criteria{WorkTypes: []string{"remote"}},
			job:       job("NYC", false, false),
			wantMatch: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewEnrichedJobFilter(tt.criteria)
			if got := f.Match(tt.job); got != tt.wantMatch {
				t.Errorf("Match() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestApply_PreservesOrder(t *testing.T) {
	jobs := []model.Job{
		{ID: "1", Location: "Remote"},
		{ID: "2", Location: "Paris", RequiresCitizenship: true},
		{ID: "3", Location: "Remote"},
	}
	got := Apply(NewEnrichedJobFilter(Criteria{HideCitizenship: true}), jobs)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("Apply = %+v, want [1 3]", got)
	}
}
