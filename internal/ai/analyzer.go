package ai

import (
	"context"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/amishk599/jobenricher/internal/model"
)

// LLMJobAnalyzer turns a posting's reduced text into an Extraction using an
// LLM. It implements enricher.Analyzer.
type LLMJobAnalyzer struct {
	provider LLMProvider
	tmpl     *template.Template
	schema   model.Schema
	logger   *slog.Logger
}

// NewLLMJobAnalyzer creates an analyzer for the given field set.
func NewLLMJobAnalyzer(provider LLMProvider, schema model.Schema, logger *slog.Logger) *LLMJobAnalyzer {
	return &LLMJobAnalyzer{
		provider: provider,
		tmpl:     TemplateFor(schema),
		schema:   schema,
		logger:   logger,
	}
}

// Analyze renders the prompt, calls the provider and parses the reply.
// Provider failures wrap model.ErrInference; unusable replies wrap
// model.ErrParse.
func (a *LLMJobAnalyzer) Analyze(ctx context.Context, job model.Job, description string) (*model.Extraction, error) {
	prompt, err := BuildPrompt(a.tmpl, job.Title, job.Company, description)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInference, err)
	}

	raw, err := a.provider.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInference, err)
	}
	a.logger.Debug("model reply", "job", job.ID, "chars", len(raw))

	ext, err := ParseExtraction(raw, a.schema)
	if err != nil {
		a.logger.Debug("unparseable model reply", "job", job.ID, "reply", truncate(raw, 300))
		return nil, err
	}
	return ext, nil
}
