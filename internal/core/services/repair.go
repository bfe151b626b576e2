package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

const defaultStep = "Execute the test scenario and verify the expected result"

var jsonFencePattern = regexp.MustCompile("```[A-Za-z0-9_-]*\\s*")

// RepairSeed seeds the fallback cases used to pad a short batch.
type RepairSeed struct {
	// Query is the user request the batch answers.
	Query string

	// Sources are the filenames of the retrieved context, most relevant first.
	Sources []string
}

// RepairReport describes what Repair had to do to produce its batch.
type RepairReport struct {
	// Parsed is true when a test_cases array was found in the input.
	Parsed bool

	// Received is the number of entries in the test_cases array.
	Received int

	// Kept is the number of entries that decoded into test cases.
	Kept int

	// Padded is the number of synthetic cases appended.
	Padded int

	// Truncated is the number of cases dropped from the tail.
	Truncated int

	// Fallback is true when the whole batch is synthetic.
	Fallback bool

	// Reason explains why the input could not be used, if it could not.
	Reason string
}

// Changed reports whether the batch differs from what the generator returned.
func (r RepairReport) Changed() bool {
	return r.Fallback || r.Padded > 0 || r.Truncated > 0 || r.Kept != r.Received
}

// Repairer turns free-form generation output into a batch of exactly N cases.
// The zero value is ready to use.
type Repairer struct{}

// NewRepairer creates a response repairer.
func NewRepairer() *Repairer {
	return &Repairer{}
}

// Repair returns exactly n test cases decoded from raw, padding with fallback
// cases or truncating as needed. n is clamped to [1, MaxCaseCount] so IDs
// stay TC-NNN. It never panics.
func (r *Repairer) Repair(raw string, n int, seed RepairSeed) domain.TestCaseBatch {
	batch, _ := r.RepairWithReport(raw, n, seed)
	return batch
}

// RepairWithReport is Repair that also reports which repairs were applied.
func (r *Repairer) RepairWithReport(raw string, n int, seed RepairSeed) (batch domain.TestCaseBatch, report RepairReport) {
	n = max(1, min(n, MaxCaseCount))

	defer func() {
		if rec := recover(); rec != nil {
			batch, report = fallbackBatch(n, seed, fmt.Sprintf("repair panicked: %v", rec))
		}
	}()

	body, ok := extractObject(stripJSONFences(raw))
	if !ok {
		return fallbackBatch(n, seed, "no JSON object found")
	}
	if !gjson.Valid(body) {
		return fallbackBatch(n, seed, "invalid JSON")
	}

	list := gjson.Get(body, "test_cases")
	if !list.Exists() {
		return fallbackBatch(n, seed, "missing test_cases field")
	}
	if !list.IsArray() {
		return fallbackBatch(n, seed, "test_cases is not an array")
	}

	report.Parsed = true
	entries := list.Array()
	report.Received = len(entries)

	for _, entry := range entries {
		if tc, ok := decodeCase(entry, seed); ok {
			batch = append(batch, tc)
		}
	}
	report.Kept = len(batch)

	// Renumber by position so IDs are well-formed and unique, and so
	// padding continues the sequence.
	for i := range batch {
		batch[i].ID = domain.FormatCaseID(i + 1)
	}

	if len(batch) < n {
		full := FallbackCases(seed.Query, n, seed.Sources)
		report.Padded = n - len(batch)
		batch = append(batch, full[len(batch):]...)
	}
	if len(batch) > n {
		report.Truncated = len(batch) - n
		batch = batch[:n]
	}

	if report.Kept == 0 {
		report.Reason = "no usable test cases in response"
	}
	return batch, report
}

func fallbackBatch(n int, seed RepairSeed, reason string) (domain.TestCaseBatch, RepairReport) {
	return FallbackCases(seed.Query, n, seed.Sources), RepairReport{
		Padded:   n,
		Fallback: true,
		Reason:   reason,
	}
}

func stripJSONFences(raw string) string {
	return jsonFencePattern.ReplaceAllString(raw, "")
}

// extractObject returns the span from the first '{' to the last '}'.
func extractObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeCase reads one test_cases entry, filling gaps instead of rejecting it.
// Entries that are not JSON objects are dropped.
func decodeCase(v gjson.Result, seed RepairSeed) (domain.TestCase, bool) {
	if !v.IsObject() {
		return domain.TestCase{}, false
	}

	tc := domain.TestCase{
		Feature:        text(v, "feature"),
		Scenario:       text(v, "test_scenario", "scenario"),
		Kind:           domain.CasePositive,
		Preconditions:  text(v, "preconditions"),
		Steps:          steps(v.Get("test_steps")),
		ExpectedResult: text(v, "expected_result"),
		GroundedIn:     text(v, "grounded_in"),
	}

	if strings.EqualFold(text(v, "test_type", "type"), string(domain.CaseNegative)) {
		tc.Kind = domain.CaseNegative
	}
	if tc.Feature == "" {
		tc.Feature = featureFromQuery(seed.Query)
	}
	if len(tc.Steps) == 0 {
		tc.Steps = []string{defaultStep}
	}
	if tc.GroundedIn == "" {
		tc.GroundedIn = defaultGroundedIn
		if len(seed.Sources) > 0 {
			tc.GroundedIn = seed.Sources[0]
		}
	}
	return tc, true
}

// text returns the first non-empty value among keys, flattening arrays.
func text(v gjson.Result, keys ...string) string {
	for _, key := range keys {
		field := v.Get(key)
		if !field.Exists() {
			continue
		}
		var s string
		if field.IsArray() {
			var parts []string
			for _, item := range field.Array() {
				if p := strings.TrimSpace(item.String()); p != "" {
					parts = append(parts, p)
				}
			}
			s = strings.Join(parts, "; ")
		} else {
			s = strings.TrimSpace(field.String())
		}
		if s != "" {
			return s
		}
	}
	return ""
}

func steps(field gjson.Result) []string {
	if !field.Exists() {
		return nil
	}
	if !field.IsArray() {
		if s := strings.TrimSpace(field.String()); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range field.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
