package enricher

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/amishk599/jobenricher/internal/model"
)

// Analyzer turns a job's reduced description into structured data.
type Analyzer interface {
	Analyze(ctx context.Context, job model.Job, description string) (*model.Extraction, error)
}

// Enricher owns the per-job chain: fetch → analyze → persist.
type Enricher struct {
	fetcher  model.PageFetcher
	analyzer Analyzer
	store    model.JobStore
	logger   *slog.Logger
}

// NewEnricher creates an enricher wired with all its dependencies.
func NewEnricher(fetcher model.PageFetcher, analyzer Analyzer, store model.JobStore, logger *slog.Logger) *Enricher {
	return &Enricher{
		fetcher:  fetcher,
		analyzer: analyzer,
		store:    store,
		logger:   logger,
	}
}

// Process runs the chain for one job and never returns an error: every
// failure is folded into the Result. A fetch or model failure still moves the
// job to 'enriched' with a minimal update so it is not retried forever. If
// ctx is cancelled mid-job nothing is written and the job stays 'new'.
func (e *Enricher) Process(ctx context.Context, job model.Job) model.Result {
	res := model.Result{Job: job}
	log := e.logger.With("job", job.ID, "title", job.Title, "company", job.Company)
	if job.Source != "" {
		log = log.With("source", job.Source)
	}
	log.Info("processing job", "url", job.URL)

	description, ext, err := e.run(ctx, log, &res)
	if err != nil {
		if ctx.Err() != nil {
			res.Interrupted = true
			res.Err = err
			log.Info("job interrupted, leaving it pending")
			return res
		}
		res.Err = err
		log.Warn("enrichment step failed", "stage", res.Stage, "error", err)
	}
	res.Extraction = ext

	if ctx.Err() != nil {
		res.Interrupted = true
		log.Info("job interrupted, leaving it pending")
		return res
	}

	if err := e.store.PersistResult(ctx, job.ID, ext, description); err != nil {
		if ctx.Err() != nil {
			res.Interrupted = true
			return res
		}
		if res.Err == nil {
			res.Stage = model.StagePersist
			res.Err = err
		}
		log.Error("persisting result failed, job stays pending", "error", err)
		return res
	}
	res.Persisted = true

	if ext == nil {
		log.Info("marked job enriched without extracted data", "stage", res.Stage)
		return res
	}
	res.Stage = model.StageDone
	log.Info("enriched job",
		"location", ext.Location,
		"requires_citizenship", ext.RequiresCitizenship,
		"no_visa_sponsorship", ext.NoVisaSponsorship,
	)
	return res
}

// run fetches and analyzes. The returned description is whatever text was
// fetched, even when analysis failed. A panic is reported as a failure of the
// stage it happened in.
func (e *Enricher) run(ctx context.Context, log *slog.Logger, res *model.Result) (description string, ext *model.Extraction, err error) {
	res.Stage = model.StageFetch
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while enriching job", "stage", res.Stage, "panic", r)
			ext = nil
			err = fmt.Errorf("%s stage panicked: %v", res.Stage, r)
		}
	}()

	description, err = e.fetcher.Fetch(ctx, res.Job.URL)
	if err != nil {
		res.Stage = model.StageOf(err, model.StageFetch)
		return "", nil, err
	}
	res.Chars = utf8.RuneCountInString(description)
	log.Debug("fetched description", "chars", res.Chars)

	res.Stage = model.StageInference
	ext, err = e.analyzer.Analyze(ctx, res.Job, description)
	if err != nil {
		res.Stage = model.StageOf(err, model.StageInference)
		return description, nil, err
	}
	if !ext.IsRealJob {
		log.Info("posting does not look like a real job")
	}
	return description, ext, nil
}
