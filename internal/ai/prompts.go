package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/amishk599/jobenricher/internal/model"
)

//go:embed prompts/basic.md
var basicPromptRaw string

//go:embed prompts/extended.md
var extendedPromptRaw string

// Parsed once at package init; reused on every Analyze call.
var (
	BasicTemplate    = template.Must(template.New("basic").Parse(basicPromptRaw))
	ExtendedTemplate = template.Must(template.New("extended").Parse(extendedPromptRaw))
)

// TemplateFor returns the prompt template for schema.
func TemplateFor(schema model.Schema) *template.Template {
	if schema == model.SchemaExtended {
		return ExtendedTemplate
	}
	return BasicTemplate
}

type promptData struct {
	Title       string
	Company     string
	Description string
}

// BuildPrompt renders tmpl for one posting. The output depends only on its
// inputs.
func BuildPrompt(tmpl *template.Template, title, company, description string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData{
		Title:       title,
		Company:     company,
		Description: description,
	}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
