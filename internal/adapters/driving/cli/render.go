package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

// renderCases prints a batch in a readable listing.
func renderCases(w io.Writer, result *domain.CaseResult, st *Styles) {
	fmt.Fprintf(w, "%s %s\n", st.Title.Render("Test cases for:"), result.Query)
	if len(result.Sources) > 0 {
		fmt.Fprintf(w, "%s\n", st.Muted.Render("Sources: "+strings.Join(result.Sources, ", ")))
	}
	if result.Fallback {
		fmt.Fprintf(w, "%s\n", st.Warning.Render("Note: generated offline ("+result.Reason+")"))
	}
	fmt.Fprintln(w)

	for _, tc := range result.TestCases {
		kind := st.Positive.Render(string(tc.Kind))
		if tc.Kind == domain.CaseNegative {
			kind = st.Negative.Render(string(tc.Kind))
		}
		header := fmt.Sprintf("%s  [%s]  %s", st.Title.Render(tc.ID), kind, tc.Feature)
		fmt.Fprintln(w, st.Box.Render(header))

		fmt.Fprintf(w, "  %s %s\n", st.Subtitle.Render("Scenario:"), tc.Scenario)
		if tc.Preconditions != "" {
			fmt.Fprintf(w, "  %s %s\n", st.Subtitle.Render("Preconditions:"), tc.Preconditions)
		}
		fmt.Fprintf(w, "  %s\n", st.Subtitle.Render("Steps:"))
		for i, step := range tc.Steps {
			fmt.Fprintf(w, "    %d. %s\n", i+1, step)
		}
		fmt.Fprintf(w, "  %s %s\n", st.Subtitle.Render("Expected:"), tc.ExpectedResult)
		if tc.GroundedIn != "" {
			fmt.Fprintf(w, "  %s\n", st.Muted.Render("Grounded in: "+tc.GroundedIn))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%d test cases (%d negative)\n", len(result.TestCases), result.TestCases.Negatives())
}

// renderHealth prints a session status block.
func renderHealth(w io.Writer, h domain.Health, st *Styles) {
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	fmt.Fprintln(w, st.Title.Render("Knowledge base "+h.SessionID))
	fmt.Fprintf(w, "  Built:         %s\n", yesNo(h.KnowledgeBaseBuilt))
	fmt.Fprintf(w, "  HTML uploaded: %s\n", yesNo(h.HTMLUploaded))
	fmt.Fprintf(w, "  Documents:     %d\n", h.Documents)
	fmt.Fprintf(w, "  Chunks:        %d\n", h.Chunks)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// readCases decodes a saved batch. Both the `cases --json` output and a
// bare array of test cases are accepted.
func readCases(data []byte) (domain.TestCaseBatch, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var batch domain.TestCaseBatch
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("%w: test cases: %v", domain.ErrInvalidInput, err)
		}
		return batch, nil
	}

	var result domain.CaseResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: test cases: %v", domain.ErrInvalidInput, err)
	}
	return result.TestCases, nil
}

// pickCase returns the case with the given ID, or the first case if id is empty.
func pickCase(batch domain.TestCaseBatch, id string) (domain.TestCase, error) {
	if len(batch) == 0 {
		return domain.TestCase{}, fmt.Errorf("%w: no test cases to choose from", domain.ErrInvalidInput)
	}
	if id == "" {
		return batch[0], nil
	}
	for _, tc := range batch {
		if strings.EqualFold(tc.ID, id) {
			return tc, nil
		}
	}
	return domain.TestCase{}, fmt.Errorf("%w: test case %s not found", domain.ErrNotFound, id)
}
