package driving

import (
	"context"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

// ScriptService generates browser-automation scripts for test cases.
type ScriptService interface {
	// Synthesize generates a script for tc against the session's page markup.
	// Returns ErrNoMarkup when the session has no markup.
	Synthesize(ctx context.Context, sessionID string, tc domain.TestCase) (*domain.ScriptResult, error)
}
