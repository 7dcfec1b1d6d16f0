package notifier

import "github.com/amishk599/jobenricher/internal/model"

// Summary condenses one batch of results.
type Summary struct {
	Processed int
	Full      int // persisted with extracted data
	Minimal   int // marked enriched after a fetch or model failure
	Pending   int // not written; will be picked up again
	// Highlights are fully enriched jobs that pass the filter, with the
	// extracted fields applied.
	Highlights []model.Job
}

func summarize(results []model.Result, filter model.JobFilter) Summary {
	s := Summary{Processed: len(results)}
	for _, r := range results {
		switch {
		case r.Full():
			s.Full++
			j := withExtraction(r.Job, r.Extraction)
			if filter == nil || filter.Match(j) {
				s.Highlights = append(s.Highlights, j)
			}
		case r.Persisted:
			s.Minimal++
		default:
			s.Pending++
		}
	}
	return s
}

func withExtraction(j model.Job, ext *model.Extraction) model.Job {
	j.Status = model.StatusEnriched
	j.Location = ext.Location
	j.Summary = ext.Summary
	j.RequiresCitizenship = ext.RequiresCitizenship
	j.NoVisaSponsorship = ext.NoVisaSponsorship
	j.Details = ext.Details
	return j
}
