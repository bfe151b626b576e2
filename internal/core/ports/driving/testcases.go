package driving

import (
	"context"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

// TestCaseService generates grounded test cases for a session.
type TestCaseService interface {
	// Generate returns exactly count test cases for the query.
	// Generation failures degrade to deterministic output; only
	// configuration errors (unknown session, unbuilt knowledge base) are returned.
	Generate(ctx context.Context, sessionID, query string, count int) (*domain.CaseResult, error)
}
