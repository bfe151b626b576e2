package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

// Deterministic fallback output used when generation is unavailable.
const (
	defaultFallbackCount = 5
	defaultGroundedIn    = "documentation"
	defaultFeature       = "General Functionality"
)

var (
	exactCountPattern = regexp.MustCompile(`EXACTLY (\d+)`)
	sourcePattern     = regexp.MustCompile(`\[Source: ([^\]\n]+)\]`)
	requestPattern    = regexp.MustCompile(`(?m)^USER REQUEST: (.*)$`)
)

// fallbackScript is the fallback output for TaskScript.
const fallbackScript = `from selenium import webdriver
from selenium.webdriver.common.by import By
from selenium.webdriver.support.ui import WebDriverWait
from selenium.webdriver.support import expected_conditions as EC
import time


def run_test():
    driver = webdriver.Chrome()
    try:
        # Navigate to page
        driver.get("file:///path/to/page.html")
        WebDriverWait(driver, 10).until(
            EC.presence_of_element_located((By.TAG_NAME, "body"))
        )

        # Test implementation
        element = driver.find_element(By.ID, "test-element")
        element.click()
        time.sleep(1)

        # Assertion
        assert "expected" in driver.page_source

        print("Test passed")
    except Exception as exc:
        print(f"Test failed: {exc}")
        raise
    finally:
        driver.quit()


if __name__ == "__main__":
    run_test()
`

// FallbackCases returns n deterministic test cases for query.
//
// Every third case by position is negative. When that leaves fewer than
// 40% negatives, trailing positive cases are flipped until the share is met.
// GroundedIn names the first source, or "documentation" when there is none.
// n is capped at MaxCaseCount so every ID stays TC-NNN.
func FallbackCases(query string, n int, sources []string) domain.TestCaseBatch {
	if n < 1 {
		return nil
	}
	n = min(n, MaxCaseCount)

	negative := fallbackKinds(n)
	subject := strings.TrimSpace(query)
	if subject == "" {
		subject = "requested"
	}
	feature := featureFromQuery(query)
	grounded := defaultGroundedIn
	if len(sources) > 0 && sources[0] != "" {
		grounded = sources[0]
	}

	batch := make(domain.TestCaseBatch, n)
	for i := range batch {
		tc := domain.TestCase{
			ID:            domain.FormatCaseID(i + 1),
			Feature:       feature,
			Kind:          domain.CasePositive,
			Preconditions: "Application is loaded and the user is on the page under test",
			GroundedIn:    grounded,
		}
		if negative[i] {
			tc.Kind = domain.CaseNegative
			tc.Scenario = fmt.Sprintf("Test invalid %s scenario %d", strings.ToLower(subject), i+1)
			tc.Steps = []string{
				"Navigate to the page under test",
				fmt.Sprintf("Perform %s action with invalid input", subject),
				"Verify an error message is displayed",
			}
			tc.ExpectedResult = "Error message displayed"
		} else {
			tc.Scenario = fmt.Sprintf("Test valid %s scenario %d", strings.ToLower(subject), i+1)
			tc.Steps = []string{
				"Navigate to the page under test",
				fmt.Sprintf("Perform %s action", subject),
				"Verify result matches expectations",
			}
			tc.ExpectedResult = "Action completes successfully"
		}
		batch[i] = tc
	}
	return batch
}

// fallbackKinds marks which positions are negative.
func fallbackKinds(n int) []bool {
	negative := make([]bool, n)
	count := 0
	for i := range negative {
		if i%3 == 2 {
			negative[i] = true
			count++
		}
	}
	if n < 3 {
		return negative
	}

	// ceil(0.4 * n)
	need := (2*n + 4) / 5
	for i := n - 1; i >= 0 && count < need; i-- {
		if !negative[i] {
			negative[i] = true
			count++
		}
	}
	return negative
}

func featureFromQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return defaultFeature
	}
	runes := []rune(query)
	if len(runes) > 60 {
		runes = runes[:60]
	}
	return strings.ToUpper(string(runes[:1])) + string(runes[1:])
}

// FallbackResponse returns the synthetic generation output for task.
// TaskTestCases gets a JSON batch sized by the prompt's EXACTLY marker and
// grounded in its [Source: ...] blocks; TaskScript gets a browser-automation
// script template. The prompt text never changes which one is produced.
func FallbackResponse(task Task, prompt string) string {
	if task != TaskTestCases {
		return fallbackScript
	}

	n := defaultFallbackCount
	if m := exactCountPattern.FindStringSubmatch(prompt); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			n = v
		}
	}

	// Documentation context precedes the request line, so the last match wins.
	query := ""
	if ms := requestPattern.FindAllStringSubmatch(prompt, -1); len(ms) > 0 {
		query = strings.TrimSpace(ms[len(ms)-1][1])
	}

	var sources []string
	seen := make(map[string]bool)
	for _, m := range sourcePattern.FindAllStringSubmatch(prompt, -1) {
		src := strings.TrimSpace(m[1])
		if src != "" && !seen[src] {
			seen[src] = true
			sources = append(sources, src)
		}
	}

	data, err := json.Marshal(caseEnvelope{TestCases: FallbackCases(query, n, sources)})
	if err != nil {
		return `{"test_cases": []}`
	}
	return string(data)
}

// caseEnvelope is the JSON object shape requested from the generator.
type caseEnvelope struct {
	TestCases domain.TestCaseBatch `json:"test_cases"`
}
