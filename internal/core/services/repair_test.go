package services

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

var checkoutSeed = RepairSeed{Query: "discount codes", Sources: []string{"checkout.md"}}

const twoCases = `{"test_cases": [
  {"test_id": "TC-001", "feature": "Discounts", "test_scenario": "Apply SAVE15", "test_type": "positive",
   "preconditions": "Cart has items", "test_steps": ["Enter SAVE15", "Click apply"],
   "expected_result": "15% off", "grounded_in": "checkout.md"},
  {"test_id": "TC-009", "feature": "Discounts", "test_scenario": "Apply BOGUS", "test_type": "negative",
   "test_steps": ["Enter BOGUS", "Click apply"], "expected_result": "Error shown", "grounded_in": "checkout.md"}
]}`

func TestRepair_ExactCount(t *testing.T) {
	batch, report := NewRepairer().RepairWithReport(twoCases, 2, checkoutSeed)

	require.NoError(t, batch.Validate(2))
	assert.False(t, report.Changed())
	assert.Equal(t, "Apply SAVE15", batch[0].Scenario)
	assert.Equal(t, domain.CaseNegative, batch[1].Kind)
	assert.Equal(t, "TC-002", batch[1].ID, "ids are renumbered by position")
}

func TestRepair_Fenced(t *testing.T) {
	raw := "Here you go:\n```json\n" + twoCases + "\n```\nLet me know!"

	batch, report := NewRepairer().RepairWithReport(raw, 2, checkoutSeed)

	require.Len(t, batch, 2)
	assert.True(t, report.Parsed)
	assert.False(t, report.Fallback)
}

func TestRepair_PadsShortBatch(t *testing.T) {
	batch, report := NewRepairer().RepairWithReport(twoCases, 5, checkoutSeed)

	require.NoError(t, batch.Validate(5))
	assert.Equal(t, 3, report.Padded)
	assert.True(t, report.Changed())
	assert.Equal(t, "Apply SAVE15", batch[0].Scenario)
	assert.Equal(t, "TC-003", batch[2].ID)
	assert.Equal(t, "checkout.md", batch[4].GroundedIn)

	// Padding is the tail of the fallback batch of the requested size.
	full := FallbackCases(checkoutSeed.Query, 5, checkoutSeed.Sources)
	if diff := cmp.Diff(full[2:], batch[2:]); diff != "" {
		t.Errorf("padding mismatch (-want +got):\n%s", diff)
	}
}

func TestRepair_TruncatesLongBatch(t *testing.T) {
	batch, report := NewRepairer().RepairWithReport(twoCases, 1, checkoutSeed)

	require.Len(t, batch, 1)
	assert.Equal(t, 1, report.Truncated)
	assert.Equal(t, "Apply SAVE15", batch[0].Scenario)
}

func TestRepair_NotJSON(t *testing.T) {
	batch, report := NewRepairer().RepairWithReport("not json at all", 3, checkoutSeed)

	require.NoError(t, batch.Validate(3))
	assert.True(t, report.Fallback)
	assert.Equal(t, "no JSON object found", report.Reason)
	assert.Equal(t, FallbackCases(checkoutSeed.Query, 3, checkoutSeed.Sources), batch)
}

func TestRepair_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{"invalid json", `{"test_cases": [}`, "invalid JSON"},
		{"missing field", `{"cases": []}`, "missing test_cases field"},
		{"not an array", `{"test_cases": "none"}`, "test_cases is not an array"},
		{"empty", "", "no JSON object found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, report := NewRepairer().RepairWithReport(tt.raw, 4, checkoutSeed)
			assert.Len(t, batch, 4)
			assert.True(t, report.Fallback)
			assert.Equal(t, tt.reason, report.Reason)
		})
	}
}

func TestRepair_LenientEntries(t *testing.T) {
	raw := `{"test_cases": [
		"just a string",
		42,
		{"scenario": "Aliased scenario", "type": "NEGATIVE", "test_steps": "single step"},
		{"test_scenario": "Bare"}
	]}`

	batch, report := NewRepairer().RepairWithReport(raw, 2, checkoutSeed)

	require.NoError(t, batch.Validate(2))
	assert.Equal(t, 4, report.Received)
	assert.Equal(t, 2, report.Kept)

	assert.Equal(t, "Aliased scenario", batch[0].Scenario)
	assert.Equal(t, domain.CaseNegative, batch[0].Kind)
	assert.Equal(t, []string{"single step"}, batch[0].Steps)
	assert.Equal(t, "Discount codes", batch[0].Feature)
	assert.Equal(t, "checkout.md", batch[0].GroundedIn)

	assert.Equal(t, domain.CasePositive, batch[1].Kind)
	assert.Equal(t, []string{defaultStep}, batch[1].Steps)
}

func TestRepair_EmptyArray(t *testing.T) {
	batch, report := NewRepairer().RepairWithReport(`{"test_cases": []}`, 3, RepairSeed{})

	require.Len(t, batch, 3)
	assert.True(t, report.Parsed)
	assert.Equal(t, 3, report.Padded)
	assert.Equal(t, "no usable test cases in response", report.Reason)
	assert.Equal(t, "documentation", batch[0].GroundedIn)
}

func TestRepair_NonPositiveCount(t *testing.T) {
	assert.Len(t, NewRepairer().Repair(twoCases, 0, checkoutSeed), 1)
	assert.Len(t, NewRepairer().Repair("garbage", -5, checkoutSeed), 1)
}

func TestRepair_CountAboveMaxIsClamped(t *testing.T) {
	batch := NewRepairer().Repair("not json at all", 1000, checkoutSeed)

	require.NoError(t, batch.Validate(MaxCaseCount))
	assert.Equal(t, "TC-100", batch[MaxCaseCount-1].ID)
}

func TestRepair_AlwaysExactlyN(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(t, "n")
		raw := rapid.OneOf(
			rapid.String(),
			rapid.Just(twoCases),
			rapid.Custom(func(t *rapid.T) string {
				// Truncated valid JSON.
				cut := rapid.IntRange(0, len(twoCases)).Draw(t, "cut")
				return twoCases[:cut]
			}),
			rapid.Custom(func(t *rapid.T) string {
				return "```json\n" + twoCases + strings.Repeat("}", rapid.IntRange(0, 3).Draw(t, "extra"))
			}),
		).Draw(t, "raw")

		batch := NewRepairer().Repair(raw, n, checkoutSeed)

		if err := batch.Validate(n); err != nil {
			t.Fatalf("Repair(%q, %d) produced an invalid batch: %v", raw, n, err)
		}
	})
}
