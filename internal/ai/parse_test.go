package ai

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/amishk599/jobenricher/internal/model"
)

func TestFindJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "leading and trailing prose",
			in:   "Here is the result: {\"a\": true}\nLet me know if you need more.",
			want: `{"a": true}`,
		},
		{
			name: "nested object and arrays",
			in:   `Sure! {"skills": ["Go", "SQL"], "salary": {"min": 1, "max": 2}} done`,
			want: `{"skills": ["Go", "SQL"], "salary": {"min": 1, "max": 2}}`,
		},
		{
			name: "braces inside strings",
			in:   `{"summary": "uses {templating} and \"quotes\" }"} trailing }`,
			want: `{"summary": "uses {templating} and \"quotes\" }"}`,
		},
		{
			name: "skips a non-JSON brace group before the payload",
			in:   `I {think} this is it: {"ok": true}`,
			want: `{"ok": true}`,
		},
		{
			name: "resumes after a malformed span",
			in:   `draft: {"a": {"b": 1},} final: {"ok": true}`,
			want: `{"ok": true}`,
		},
		{
			name: "code fence",
			in:   "```json\n{\"ok\": false}\n```",
			want: `{"ok": false}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindJSONObject(tt.in)
			if err != nil {
				t.Fatalf("FindJSONObject: %v", err)
			}
			if got != tt.want {
				t.Errorf("FindJSONObject = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindJSONObject_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", errNoObject},
		{"prose only", "I could not determine the answer.", errNoObject},
		{"unclosed", `{"is_real_job": true`, errNoObject},
		{"malformed", `{is_real_job: yes}`, errMalformed},
		{"malformed with valid nested object", `{"location": "Austin", "salary": {"min": 1, "max": 2}, "summary": "x",}`, errMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindJSONObject(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

// The extracted object must decode exactly like the substring on its own.
func TestFindJSONObject_EquivalentToDirectDecode(t *testing.T) {
	payload := `{"is_real_job": true, "mandatory_skills": ["Go", "Kubernetes", "gRPC"], "meta": {"nested": {"deep": [1, {"x": "}"}]}}}`
	wrapped := "Analysis follows.\n" + payload + "\nThanks!"

	got, err := FindJSONObject(wrapped)
	if err != nil {
		t.Fatalf("FindJSONObject: %v", err)
	}

	var direct, extracted map[string]any
	if err := json.Unmarshal([]byte(payload), &direct); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(got), &extracted); err != nil {
		t.Fatalf("extracted substring does not decode: %v", err)
	}
	if !reflect.DeepEqual(direct, extracted) {
		t.Errorf("extracted = %v, want %v", extracted, direct)
	}
}

func TestParseExtraction_ProseWrappedBasic(t *testing.T) {
	raw := `Here is the result: {"is_real_job": true, "requires_citizenship": false, "no_visa_sponsorship": true, "location": "Remote, USA", "summary": "Backend engineer role"}`

	ext, err := ParseExtraction(raw, model.SchemaBasic)
	if err != nil {
		t.Fatalf("ParseExtraction: %v", err)
	}
	want := &model.Extraction{
		IsRealJob:           true,
		RequiresCitizenship: false,
		NoVisaSponsorship:   true,
		Location:            "Remote, USA",
		Summary:             "Backend engineer role",
	}
	if !reflect.DeepEqual(ext, want) {
		t.Errorf("ParseExtraction = %+v, want %+v", ext, want)
	}
}

func TestParseExtraction_Extended(t *testing.T) {
	raw := "```json\n" + `{
  "is_real_job": true,
  "requires_citizenship": "yes",
  "no_visa_sponsorship": false,
  "location": "Austin, TX, USA",
  "summary": "Senior platform engineer",
  "salary_min": "$120,000",
  "salary_max": 165000.4,
  "currency": "usd",
  "work_type": "On-site",
  "job_type": "full-time",
  "experience_level": "senior",
  "posted_date": "2024-03-05",
  "mandatory_skills": ["Go", " Kubernetes ", "", "go", "Terraform"],
  "preferred_skills": "Rust, gRPC"
}` + "\n```"

	ext, err := ParseExtraction(raw, model.SchemaExtended)
	if err != nil {
		t.Fatalf("ParseExtraction: %v", err)
	}
	if !ext.RequiresCitizenship {
		t.Error("RequiresCitizenship = false, want true from \"yes\"")
	}
	d := ext.Details
	if d == nil {
		t.Fatal("expected Details for extended schema")
	}
	if d.SalaryMin == nil || *d.SalaryMin != 120000 {
		t.Errorf("SalaryMin = %v, want 120000", d.SalaryMin)
	}
	if d.SalaryMax == nil || *d.SalaryMax != 165000 {
		t.Errorf("SalaryMax = %v, want 165000", d.SalaryMax)
	}
	if d.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", d.Currency)
	}
	if d.WorkType != model.WorkTypeOnsite {
		t.Errorf("WorkType = %q, want onsite", d.WorkType)
	}
	if d.PostedDate == nil || d.PostedDate.Format("2006-01-02") != "2024-03-05" {
		t.Errorf("PostedDate = %v", d.PostedDate)
	}
	if want := []string{"Go", "Kubernetes", "Terraform"}; !reflect.DeepEqual(d.MandatorySkills, want) {
		t.Errorf("MandatorySkills = %q, want %q", d.MandatorySkills, want)
	}
	if want := []string{"Rust", "gRPC"}; !reflect.DeepEqual(d.PreferredSkills, want) {
		t.Errorf("PreferredSkills = %q, want %q", d.PreferredSkills, want)
	}
}

func TestParseExtraction_ExtendedNullsAndJunk(t *testing.T) {
	raw := `{"is_real_job": false, "requires_citizenship": null, "no_visa_sponsorship": null, "location": null, "summary": "Not a posting",
		"salary_min": null, "salary_max": "N/A", "currency": null, "work_type": "flexible", "posted_date": "last week",
		"mandatory_skills": null, "preferred_skills": []}`

	ext, err := ParseExtraction(raw, model.SchemaExtended)
	if err != nil {
		t.Fatalf("ParseExtraction: %v", err)
	}
	if ext.Location != "Unknown" {
		t.Errorf("Location = %q, want Unknown", ext.Location)
	}
	d := ext.Details
	if d.SalaryMin != nil || d.SalaryMax != nil {
		t.Errorf("expected nil salaries, got %v / %v", d.SalaryMin, d.SalaryMax)
	}
	if d.WorkType != model.WorkTypeUnknown {
		t.Errorf("WorkType = %q, want unknown", d.WorkType)
	}
	if d.PostedDate != nil {
		t.Errorf("PostedDate = %v, want nil", d.PostedDate)
	}
	if len(d.MandatorySkills) != 0 || len(d.PreferredSkills) != 0 {
		t.Errorf("expected empty skill lists, got %v / %v", d.MandatorySkills, d.PreferredSkills)
	}
}

func TestParseExtraction_CapsSkillsAtTen(t *testing.T) {
	skills := make([]string, 15)
	for i := range skills {
		skills[i] = strings.Repeat("s", i+1)
	}
	body, _ := json.Marshal(map[string]any{"mandatory_skills": skills})

	ext, err := ParseExtraction(string(body), model.SchemaExtended)
	if err != nil {
		t.Fatalf("ParseExtraction: %v", err)
	}
	if got := len(ext.Details.MandatorySkills); got != 10 {
		t.Errorf("MandatorySkills len = %d, want 10", got)
	}
	if ext.Details.MandatorySkills[0] != "s" {
		t.Errorf("order not preserved: %v", ext.Details.MandatorySkills)
	}
}

func TestParseExtraction_BasicIgnoresExtendedFields(t *testing.T) {
	ext, err := ParseExtraction(`{"location": "Paris", "salary_min": 50000}`, model.SchemaBasic)
	if err != nil {
		t.Fatalf("ParseExtraction: %v", err)
	}
	if ext.Details != nil {
		t.Errorf("Details = %+v, want nil for basic schema", ext.Details)
	}
}

func TestParseExtraction_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no object", "The posting requires citizenship."},
		{"malformed object", `{"is_real_job": true,}`},
		{"wrong shape", `{"requires_citizenship": {"answer": true}}`},
		{"trailing comma hides nested object", `{"is_real_job": true, "requires_citizenship": true, "location": "Austin, TX", "salary": {"min": 1, "max": 2}, "summary": "x",}`},
		{"unrelated object", `{"answer": "yes"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := ParseExtraction(tt.raw, model.SchemaBasic)
			if !errors.Is(err, model.ErrParse) {
				t.Fatalf("err = %v, want ErrParse", err)
			}
			if ext != nil {
				t.Errorf("expected nil extraction, got %+v", ext)
			}
		})
	}
}
