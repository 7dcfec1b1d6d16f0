package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/amishk599/jobenricher/internal/model"
)

const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

var _ LLMProvider = (*OpenAIProvider)(nil)

// extractionSchema returns the JSON Schema enforced server-side via OpenAI
// structured outputs. Strict mode requires every property to be listed in
// required, so optional values are expressed as nullable types.
func extractionSchema(schema model.Schema) map[string]any {
	props := map[string]any{
		"is_real_job":          map[string]any{"type": "boolean"},
		"requires_citizenship": map[string]any{"type": "boolean"},
		"no_visa_sponsorship":  map[string]any{"type": "boolean"},
		"location":             map[string]any{"type": "string"},
		"summary":              map[string]any{"type": "string"},
	}
	required := []string{"is_real_job", "requires_citizenship", "no_visa_sponsorship", "location", "summary"}

	if schema == model.SchemaExtended {
		skills := map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}
		props["salary_min"] = map[string]any{"type": []string{"number", "null"}}
		props["salary_max"] = map[string]any{"type": []string{"number", "null"}}
		props["currency"] = map[string]any{"type": []string{"string", "null"}}
		props["work_type"] = map[string]any{
			"type": "string",
			"enum": []string{"onsite", "remote", "hybrid", "unknown"},
		}
		props["job_type"] = map[string]any{"type": "string"}
		props["experience_level"] = map[string]any{"type": "string"}
		props["posted_date"] = map[string]any{"type": []string{"string", "null"}}
		props["mandatory_skills"] = skills
		props["preferred_skills"] = skills
		required = append(required,
			"salary_min", "salary_max", "currency", "work_type", "job_type",
			"experience_level", "posted_date", "mandatory_skills", "preferred_skills",
		)
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// OpenAIProvider calls an OpenAI-compatible /chat/completions endpoint with
// structured outputs.
type OpenAIProvider struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	schema      model.Schema
	httpClient  *http.Client
}

// NewOpenAIProvider creates a provider targeting the OpenAI API.
func NewOpenAIProvider(baseURL, apiKey, model string, temperature float64, schema model.Schema, httpClient *http.Client) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAIProvider{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		schema:      schema,
		httpClient:  httpClient,
	}
}

// chatRequest mirrors the OpenAI /v1/chat/completions request body.
type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string         `json:"type"`
	JSONSchema jsonSchemaSpec `json:"json_schema"`
}

type jsonSchemaSpec struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

// chatResponse mirrors the relevant fields of the OpenAI response.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends prompt and returns the assistant message content.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a precise structured data extractor for job postings."},
			{Role: "user", Content: prompt},
		},
		Temperature: p.temperature,
		MaxTokens:   1024,
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchemaSpec{
				Name:   "job_enrichment",
				Strict: true,
				Schema: extractionSchema(p.schema),
			},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read llm response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm returned HTTP %d: %s", resp.StatusCode, truncate(string(respBytes), 200))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return "", fmt.Errorf("parse llm response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("llm error (%s): %s", chatResp.Error.Type, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}
