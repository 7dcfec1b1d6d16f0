package enricher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/amishk599/jobenricher/internal/ai"
	"github.com/amishk599/jobenricher/internal/fetch"
	"github.com/amishk599/jobenricher/internal/model"
	"github.com/amishk599/jobenricher/internal/store"
)

type cannedProvider struct {
	reply string
	calls int
}

func (p *cannedProvider) Complete(context.Context, string) (string, error) {
	p.calls++
	return p.reply, nil
}

// newChain wires the real fetcher, analyzer and SQLite store around a canned
// model reply, and queues one job pointing at url.
func newChain(t *testing.T, url, reply string) (*Enricher, *store.SQLiteStore, *cannedProvider, model.Job) {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"), store.Options{Schema: model.SchemaBasic})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	job := model.Job{ID: "job-1", Title: "Backend Engineer", Company: "Acme", URL: url, Source: "test"}
	if _, _, err := s.AddJob(ctx, job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	provider := &cannedProvider{reply: reply}
	fetcher := fetch.NewHTTPFetcher(&http.Client{}, fetch.DefaultUserAgent, 3000, 1<<20)
	analyzer := ai.NewLLMJobAnalyzer(provider, model.SchemaBasic, discardLogger())
	return NewEnricher(fetcher, analyzer, s, discardLogger()), s, provider, job
}

func TestChain_NotFoundPageIsMinimallyEnriched(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	e, s, provider, job := newChain(t, srv.URL+"/gone", `{"location": "Nowhere"}`)
	res := e.Process(context.Background(), job)

	if res.Stage != model.StageFetch || !res.Persisted || res.Full() {
		t.Fatalf("result = stage %q persisted %v full %v, want minimal fetch failure", res.Stage, res.Persisted, res.Full())
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times after a failed fetch", provider.calls)
	}

	got, err := s.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.StatusEnriched || got.EnrichedAt == nil {
		t.Errorf("status = %q enriched_at = %v, want enriched with timestamp", got.Status, got.EnrichedAt)
	}
	if got.Summary != "" || got.Description != "" || got.RequiresCitizenship {
		t.Errorf("minimal row carries enrichment fields: %+v", got)
	}
}

func TestChain_PageIsFullyEnriched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><script>var x = 1;</script></head>
			<body><h1>Backend Engineer</h1><p>Must be a US Citizen.</p></body></html>`)
	}))
	defer srv.Close()

	reply := `Sure: {"is_real_job": true, "requires_citizenship": true, "no_visa_sponsorship": false, "location": "Austin, TX", "summary": "Go services"}`
	e, s, _, job := newChain(t, srv.URL, reply)
	res := e.Process(context.Background(), job)

	if res.Stage != model.StageDone || !res.Full() {
		t.Fatalf("result = stage %q err %v, want full enrichment", res.Stage, res.Err)
	}

	got, err := s.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.StatusEnriched || got.EnrichedAt == nil {
		t.Errorf("status = %q enriched_at = %v", got.Status, got.EnrichedAt)
	}
	if !got.RequiresCitizenship || got.NoVisaSponsorship {
		t.Errorf("flags = %v/%v, want true/false", got.RequiresCitizenship, got.NoVisaSponsorship)
	}
	if got.Location != "Austin, TX" || got.Summary != "Go services" {
		t.Errorf("location/summary = %q/%q", got.Location, got.Summary)
	}
	if got.Description != "Backend Engineer Must be a US Citizen." {
		t.Errorf("description = %q", got.Description)
	}
}

func TestChain_MalformedReplyIsMinimallyEnriched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>Security clearance required.</p>`)
	}))
	defer srv.Close()

	reply := `{"requires_citizenship": true, "location": "Austin, TX", "salary": {"min": 1, "max": 2}, "summary": "x",}`
	e, s, _, job := newChain(t, srv.URL, reply)
	res := e.Process(context.Background(), job)

	if res.Stage != model.StageParse || res.Full() {
		t.Fatalf("result = stage %q full %v, want parse failure", res.Stage, res.Full())
	}
	got, err := s.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.StatusEnriched || got.Summary != "" || got.RequiresCitizenship {
		t.Errorf("row = %+v, want minimal enrichment", got)
	}
}
