package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobenricher/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// maxHighlights caps the job sections in one message; Slack rejects more than
// 50 blocks.
const maxHighlights = 10

// SlackNotifier posts a batch report to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	filter     model.JobFilter
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts one message per batch.
// filter selects which enriched jobs are listed; nil lists all of them.
func NewSlackNotifier(webhookURL string, filter model.JobFilter, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		filter:     filter,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends the batch as a single Block Kit message.
func (s *SlackNotifier) Notify(results []model.Result) error {
	if len(results) == 0 {
		return nil
	}
	return s.send(buildPayload(summarize(results, s.filter)))
}

func (s *SlackNotifier) send(payload slackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		secs, _ := strconv.Atoi(retryAfter)
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		s.logger.Info("slack message sent", "retried", true)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	s.logger.Info("slack message sent")
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type      string         `json:"type"`
	Text      *slackText     `json:"text,omitempty"`
	Fields    []slackText    `json:"fields,omitempty"`
	Accessory *slackElement  `json:"accessory,omitempty"`
	Elements  []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style,omitempty"`
}

// SendTestMessage sends a dummy batch report to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	ext := &model.Extraction{
		IsRealJob: true,
		Location:  "Everywhere",
		Summary:   "Test notification. If you can read this, the integration works.",
	}
	res := model.Result{
		Job: model.Job{
			ID:      "test-001",
			Company: "jobenricher",
			Title:   "Test Notification",
			URL:     "https://example.com/jobs/test",
			Source:  "test",
		},
		Stage:      model.StageDone,
		Extraction: ext,
		Persisted:  true,
	}
	return n.Notify([]model.Result{res})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func buildPayload(s Summary) slackPayload {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("🧠 Enriched %d jobs", s.Processed)},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Full:*\n%d", s.Full)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Minimal:*\n%d", s.Minimal)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Pending:*\n%d", s.Pending)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Matching:*\n%d", len(s.Highlights))},
			},
		},
	}

	highlights := s.Highlights
	if len(highlights) > maxHighlights {
		highlights = highlights[:maxHighlights]
	}
	if len(highlights) > 0 {
		blocks = append(blocks, slackBlock{Type: "divider"})
	}
	for _, j := range highlights {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: jobText(j)},
			Accessory: &slackElement{
				Type: "button",
				Text: slackText{Type: "plain_text", Text: "Apply"},
				URL:  j.URL,
			},
		})
	}
	if more := len(s.Highlights) - len(highlights); more > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("_…and %d more_", more)},
		})
	}

	return slackPayload{Blocks: blocks}
}

func jobText(j model.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* at %s\n%s", j.Title, capitalize(j.Company), j.Location)
	if j.Details != nil && j.Details.WorkType != "" && j.Details.WorkType != model.WorkTypeUnknown {
		fmt.Fprintf(&b, " · %s", j.Details.WorkType)
	}
	var flags []string
	if j.RequiresCitizenship {
		flags = append(flags, "citizenship required")
	}
	if j.NoVisaSponsorship {
		flags = append(flags, "no sponsorship")
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, " · ⚠️ %s", strings.Join(flags, ", "))
	}
	if j.Summary != "" {
		fmt.Fprintf(&b, "\n%s", j.Summary)
	}
	return b.String()
}
