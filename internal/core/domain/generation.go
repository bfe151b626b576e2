package domain

// Generation is the outcome of a text-generation call.
// Fallback is set when Text came from the deterministic fallback
// generator rather than the external service.
type Generation struct {
	Text     string
	Fallback bool
	Reason   string
}

// Generated wraps text returned by the generation service.
func Generated(text string) Generation {
	return Generation{Text: text}
}

// FallbackUsed wraps synthetic text substituted for a failed call.
func FallbackUsed(text, reason string) Generation {
	return Generation{Text: text, Fallback: true, Reason: reason}
}

// CaseResult is a repaired test-case batch together with how it was produced.
type CaseResult struct {
	Query     string        `json:"query"`
	TestCases TestCaseBatch `json:"test_cases"`
	Sources   []string      `json:"sources"`
	Fallback  bool          `json:"fallback"`
	Repaired  bool          `json:"repaired"`
	Reason    string        `json:"reason,omitempty"`
}
