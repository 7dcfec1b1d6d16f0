package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobenricher/internal/model"
)

const (
	maxSkills       = 10
	unknownLocation = "Unknown"
)

var (
	errNoObject  = errors.New("no JSON object in response")
	errMalformed = errors.New("JSON object in response is malformed")
	errNoFields  = errors.New("JSON object in response has no extraction fields")
)

var extractionKeys = []string{
	"is_real_job", "requires_citizenship", "no_visa_sponsorship", "location", "summary",
	"salary_min", "salary_max", "currency", "work_type", "job_type", "experience_level",
	"posted_date", "mandatory_skills", "preferred_skills",
}

// FindJSONObject returns the first top-level balanced {...} span of s that is
// valid JSON. Braces inside string literals are ignored, so nested objects and
// arrays are matched correctly and leading or trailing prose is skipped. An
// object nested in a malformed span is never returned on its own.
func FindJSONObject(s string) (string, error) {
	sawCandidate := false
	for start := strings.IndexByte(s, '{'); start >= 0; {
		resume := start + 1
		if end := matchBrace(s, start); end > 0 {
			sawCandidate = true
			if candidate := s[start : end+1]; json.Valid([]byte(candidate)) {
				return candidate, nil
			}
			resume = end + 1
		}
		next := strings.IndexByte(s[resume:], '{')
		if next < 0 {
			break
		}
		start = resume + next
	}
	if sawCandidate {
		return "", errMalformed
	}
	return "", errNoObject
}

// hasExtractionKey reports whether the object carries at least one requested
// field. An unrelated object would otherwise decode to all zero values.
func hasExtractionKey(obj string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return false
	}
	for _, k := range extractionKeys {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

// matchBrace returns the index of the brace closing the one at s[open], or
// -1 if it is never closed.
func matchBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// rawExtraction is the JSON shape requested by the prompts. Field types are
// lenient because local models drift from the requested types.
type rawExtraction struct {
	IsRealJob           flexBool    `json:"is_real_job"`
	RequiresCitizenship flexBool    `json:"requires_citizenship"`
	NoVisaSponsorship   flexBool    `json:"no_visa_sponsorship"`
	Location            flexString  `json:"location"`
	Summary             flexString  `json:"summary"`
	SalaryMin           flexNumber  `json:"salary_min"`
	SalaryMax           flexNumber  `json:"salary_max"`
	Currency            flexString  `json:"currency"`
	WorkType            flexString  `json:"work_type"`
	JobType             flexString  `json:"job_type"`
	ExperienceLevel     flexString  `json:"experience_level"`
	PostedDate          flexString  `json:"posted_date"`
	MandatorySkills     flexStrings `json:"mandatory_skills"`
	PreferredSkills     flexStrings `json:"preferred_skills"`
}

// ParseExtraction pulls the structured record out of a model reply. All
// failures wrap model.ErrParse.
func ParseExtraction(raw string, schema model.Schema) (*model.Extraction, error) {
	obj, err := FindJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrParse, err)
	}

	if !hasExtractionKey(obj) {
		return nil, fmt.Errorf("%w: %w", model.ErrParse, errNoFields)
	}

	var re rawExtraction
	if err := json.Unmarshal([]byte(obj), &re); err != nil {
		return nil, fmt.Errorf("%w: decode extraction: %w", model.ErrParse, err)
	}

	ext := &model.Extraction{
		IsRealJob:           bool(re.IsRealJob),
		RequiresCitizenship: bool(re.RequiresCitizenship),
		NoVisaSponsorship:   bool(re.NoVisaSponsorship),
		Location:            strings.TrimSpace(string(re.Location)),
		Summary:             strings.TrimSpace(string(re.Summary)),
	}
	if ext.Location == "" {
		ext.Location = unknownLocation
	}

	if schema == model.SchemaExtended {
		ext.Details = &model.JobDetails{
			SalaryMin:       re.SalaryMin.int64(),
			SalaryMax:       re.SalaryMax.int64(),
			Currency:        strings.ToUpper(strings.TrimSpace(string(re.Currency))),
			WorkType:        normalizeWorkType(string(re.WorkType)),
			JobType:         strings.TrimSpace(string(re.JobType)),
			ExperienceLevel: strings.TrimSpace(string(re.ExperienceLevel)),
			PostedDate:      parseDate(string(re.PostedDate)),
			MandatorySkills: cleanSkills(re.MandatorySkills),
			PreferredSkills: cleanSkills(re.PreferredSkills),
		}
	}
	return ext, nil
}

func normalizeWorkType(s string) model.WorkType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "onsite", "on-site", "on site", "in-office", "in office", "office":
		return model.WorkTypeOnsite
	case "remote", "fully remote", "remote-first":
		return model.WorkTypeRemote
	case "hybrid":
		return model.WorkTypeHybrid
	default:
		return model.WorkTypeUnknown
	}
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}

// cleanSkills trims entries, drops blanks and case-insensitive duplicates and
// keeps at most maxSkills in their original order.
func cleanSkills(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == maxSkills {
			break
		}
	}
	return out
}

// flexBool accepts true/false, "true"/"yes"/"1", numbers and null.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*b = false
	case bool:
		*b = flexBool(t)
	case float64:
		*b = t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			*b = true
		default:
			*b = false
		}
	default:
		return fmt.Errorf("cannot use %s as boolean", data)
	}
	return nil
}

// flexString accepts strings, null, scalars and arrays of scalars (joined).
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = flexString(t)
	case bool, float64:
		*s = flexString(bytes.TrimSpace(data))
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if str, ok := scalarString(item); ok {
				parts = append(parts, str)
			}
		}
		*s = flexString(strings.Join(parts, ", "))
	default:
		return fmt.Errorf("cannot use %s as string", data)
	}
	return nil
}

// flexNumber accepts numbers, null and numeric strings such as "120,000",
// "$95k" or "N/A" (treated as absent).
type flexNumber struct {
	value float64
	valid bool
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*n = flexNumber{}
	case float64:
		*n = flexNumber{value: t, valid: true}
	case string:
		*n = parseNumberString(t)
	default:
		return fmt.Errorf("cannot use %s as number", data)
	}
	return nil
}

func (n flexNumber) int64() *int64 {
	if !n.valid {
		return nil
	}
	v := int64(math.Round(n.value))
	return &v
}

func parseNumberString(s string) flexNumber {
	s = strings.ToLower(strings.TrimSpace(s))
	multiplier := 1.0
	if strings.HasSuffix(s, "k") {
		multiplier = 1000
		s = strings.TrimSuffix(s, "k")
	}
	var digits strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			digits.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return flexNumber{}
	}
	return flexNumber{value: v * multiplier, valid: true}
}

// flexStrings accepts arrays of scalars, a comma-separated string, or null.
type flexStrings []string

func (l *flexStrings) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*l = nil
	case string:
		*l = strings.Split(t, ",")
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if str, ok := scalarString(item); ok {
				out = append(out, str)
			}
		}
		*l = out
	default:
		return fmt.Errorf("cannot use %s as string list", data)
	}
	return nil
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
