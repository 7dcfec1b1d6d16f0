package notifier

import (
	"log/slog"

	"github.com/amishk599/jobenricher/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes a batch summary and each highlighted job to the given logger.
type LogNotifier struct {
	filter model.JobFilter
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs via slog. filter selects which
// fully enriched jobs are highlighted; nil highlights all of them.
func NewLogNotifier(filter model.JobFilter, logger *slog.Logger) *LogNotifier {
	return &LogNotifier{filter: filter, logger: logger}
}

// Notify logs the batch summary and one line per highlighted job.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(results []model.Result) error {
	if len(results) == 0 {
		return nil
	}

	s := summarize(results, n.filter)
	n.logger.Info("enrichment summary",
		"processed", s.Processed,
		"full", s.Full,
		"minimal", s.Minimal,
		"pending", s.Pending,
		"highlighted", len(s.Highlights),
	)

	for _, j := range s.Highlights {
		args := []any{"company", j.Company, "title", j.Title, "location", j.Location, "url", j.URL}
		if j.Details != nil && j.Details.WorkType != "" {
			args = append(args, "work_type", j.Details.WorkType)
		}
		n.logger.Info("matching job", args...)
	}
	return nil
}
