package model

import (
	"context"
	"time"
)

// Status is the enrichment state of a job row.
type Status string

const (
	StatusNew      Status = "new"
	StatusEnriched Status = "enriched"
)

// WorkType is the work arrangement reported by the model.
type WorkType string

const (
	WorkTypeOnsite  WorkType = "onsite"
	WorkTypeRemote  WorkType = "remote"
	WorkTypeHybrid  WorkType = "hybrid"
	WorkTypeUnknown WorkType = "unknown"
)

// Schema selects which field set is requested from the model and persisted.
type Schema string

const (
	SchemaBasic    Schema = "basic"
	SchemaExtended Schema = "extended"
)

// Job is a scraped posting as stored in the jobs table.
type Job struct {
	ID      string // stable unique id (set by the scraper)
	Title   string
	Company string
	URL     string
	Source  string // where the scraper found it
	Status  Status

	Location            string
	Description         string // reduced page text
	Summary             string // model-written summary
	Country             string // filled by a geocoding collaborator, may be empty
	RequiresCitizenship bool
	NoVisaSponsorship   bool
	EnrichedAt          *time.Time // nil until processed

	Details *JobDetails // extended schema only
}

// JobDetails holds the extended-schema fields.
type JobDetails struct {
	SalaryMin       *int64
	SalaryMax       *int64
	Currency        string
	WorkType        WorkType
	JobType         string     // full-time, contract, ...
	ExperienceLevel string     // junior, senior, ...
	PostedDate      *time.Time // date only
	MandatorySkills []string
	PreferredSkills []string
}

// Extraction is the structured record parsed from the model's reply.
type Extraction struct {
	IsRealJob           bool
	RequiresCitizenship bool
	NoVisaSponsorship   bool
	Location            string
	Summary             string
	Details             *JobDetails // nil unless the extended schema is in use
}

// Result describes how far one job got through the enrichment chain.
type Result struct {
	Job         Job
	Stage       Stage       // StageDone when everything succeeded
	Err         error       // nil when Stage is StageDone
	Extraction  *Extraction // nil unless parsing succeeded
	Chars       int         // length of the reduced description
	Persisted   bool
	Interrupted bool // context cancelled mid-job; nothing written
}

// Full reports whether the job was persisted with a complete extraction.
func (r Result) Full() bool {
	return r.Persisted && r.Extraction != nil
}

// PageFetcher retrieves the reduced text of a posting's page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// JobStore reads pending jobs and records enrichment results.
type JobStore interface {
	FetchPending(ctx context.Context, limit int) ([]Job, error)
	PersistResult(ctx context.Context, jobID string, ext *Extraction, description string) error
}

// Notifier reports the outcome of a processed batch.
type Notifier interface {
	Notify(results []Result) error
}

// JobFilter decides whether an enriched job matches the user's criteria.
type JobFilter interface {
	Match(job Job) bool
}
