package domain

import (
	"fmt"
	"regexp"
)

// CaseKind classifies a test case as exercising a valid or an invalid path.
type CaseKind string

// Available case kinds.
const (
	// CasePositive verifies expected behaviour on valid input.
	CasePositive CaseKind = "positive"

	// CaseNegative verifies error handling on invalid input.
	CaseNegative CaseKind = "negative"
)

// IsValid returns true if the kind is recognised.
func (k CaseKind) IsValid() bool {
	return k == CasePositive || k == CaseNegative
}

// String returns the string representation.
func (k CaseKind) String() string {
	return string(k)
}

var caseIDPattern = regexp.MustCompile(`^TC-\d{3}$`)

// FormatCaseID returns the canonical identifier for the n-th case (1-based).
func FormatCaseID(n int) string {
	return fmt.Sprintf("TC-%03d", n)
}

// IsCaseID reports whether id matches the TC-<3 digits> pattern.
func IsCaseID(id string) bool {
	return caseIDPattern.MatchString(id)
}

// TestCase is a single structured QA test case.
// JSON tags follow the wire format used in generation prompts.
type TestCase struct {
	ID             string   `json:"test_id"`
	Feature        string   `json:"feature"`
	Scenario       string   `json:"test_scenario"`
	Kind           CaseKind `json:"test_type"`
	Preconditions  string   `json:"preconditions"`
	Steps          []string `json:"test_steps"`
	ExpectedResult string   `json:"expected_result"`
	GroundedIn     string   `json:"grounded_in"`
}

// Validate checks the structural invariants of a single case.
func (tc TestCase) Validate() error {
	if !IsCaseID(tc.ID) {
		return fmt.Errorf("%w: test id %q does not match TC-NNN", ErrInvalidInput, tc.ID)
	}
	if len(tc.Steps) == 0 {
		return fmt.Errorf("%w: test %s has no steps", ErrInvalidInput, tc.ID)
	}
	if !tc.Kind.IsValid() {
		return fmt.Errorf("%w: test %s has unknown type %q", ErrInvalidInput, tc.ID, tc.Kind)
	}
	return nil
}

// TestCaseBatch is an ordered sequence of test cases.
type TestCaseBatch []TestCase

// Negatives returns the number of negative cases.
func (b TestCaseBatch) Negatives() int {
	n := 0
	for _, tc := range b {
		if tc.Kind == CaseNegative {
			n++
		}
	}
	return n
}

// NegativeRatio returns the share of negative cases, or 0 for an empty batch.
func (b TestCaseBatch) NegativeRatio() float64 {
	if len(b) == 0 {
		return 0
	}
	return float64(b.Negatives()) / float64(len(b))
}

// Validate checks that the batch holds exactly n valid cases with unique IDs.
func (b TestCaseBatch) Validate(n int) error {
	if len(b) != n {
		return fmt.Errorf("%w: batch has %d cases, want %d", ErrInvalidInput, len(b), n)
	}
	seen := make(map[string]bool, len(b))
	for _, tc := range b {
		if err := tc.Validate(); err != nil {
			return err
		}
		if seen[tc.ID] {
			return fmt.Errorf("%w: duplicate test id %s", ErrInvalidInput, tc.ID)
		}
		seen[tc.ID] = true
	}
	return nil
}
