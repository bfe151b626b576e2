package driven

// PromptStore supplies generation templates by name.
type PromptStore interface {
	// Load returns the template for name, or an error if no version of it
	// exists.
	Load(name string) (string, error)

	// Reload forgets cached templates.
	Reload()
}

// Template names. Each template is a fmt format string with indexed verbs.
const (
	// PromptTestCases takes %[1]d case count, %[2]s context blocks and
	// %[3]s the user request.
	PromptTestCases = "test_cases"

	// PromptScript takes %[1]s the test case as JSON, %[2]s the page
	// structure and %[3]s documentation context.
	PromptScript = "script"
)
