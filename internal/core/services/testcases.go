package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/core/ports/driving"
	"github.com/custodia-labs/qagent/internal/logger"
)

// Ensure TestCaseGenerator implements the interface.
var _ driving.TestCaseService = (*TestCaseGenerator)(nil)

// MaxCaseCount is the largest batch a single request may ask for.
const MaxCaseCount = 100

// TestCaseGenerator retrieves documentation context for a request, asks the
// language model for test cases and repairs whatever comes back into a batch
// of exactly the requested size.
type TestCaseGenerator struct {
	sessions  driving.SessionService
	prompts   *PromptBuilder
	gateway   *Gateway
	repairer  *Repairer
	retrieval domain.RetrievalSettings
	genOpts   driven.GenerateOptions
	log       logger.Component
}

// NewTestCaseGenerator creates a test-case generator.
func NewTestCaseGenerator(
	sessions driving.SessionService,
	prompts *PromptBuilder,
	gateway *Gateway,
	retrieval domain.RetrievalSettings,
	genOpts driven.GenerateOptions,
) *TestCaseGenerator {
	if retrieval.CaseK < 1 {
		retrieval.CaseK = domain.DefaultAppSettings().Retrieval.CaseK
	}
	return &TestCaseGenerator{
		sessions:  sessions,
		prompts:   prompts,
		gateway:   gateway,
		repairer:  NewRepairer(),
		retrieval: retrieval,
		genOpts:   genOpts,
		log:       logger.For("testcases"),
	}
}

// Generate returns exactly count test cases for query.
func (g *TestCaseGenerator) Generate(ctx context.Context, sessionID, query string, count int) (*domain.CaseResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if count < 1 || count > MaxCaseCount {
		return nil, fmt.Errorf("%w: count must be between 1 and %d, got %d", domain.ErrInvalidInput, MaxCaseCount, count)
	}

	session, err := g.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	kb, err := g.sessions.Knowledge(sessionID)
	if err != nil {
		return nil, err
	}
	if !kb.Stats().Built {
		return nil, domain.ErrKnowledgeBaseNotBuilt
	}

	hits, err := kb.Retrieve(ctx, query, g.retrieval.CaseK)
	if err != nil {
		g.log.Warn("Retrieval failed, generating without context: %v", err)
		hits = nil
	}

	sources := domain.Sources(capHits(hits, g.prompts.CaseContext()))
	if len(sources) == 0 {
		sources = session.Filenames()
	}

	prompt := g.prompts.TestCasePrompt(query, count, hits)
	gen := g.gateway.Generate(ctx, TaskTestCases, prompt, g.genOpts)

	// Fallback text is synthetic; build the batch from the session's own
	// sources so GroundedIn always names an ingested file.
	if gen.Fallback {
		return &domain.CaseResult{
			Query:     query,
			TestCases: FallbackCases(query, count, sources),
			Sources:   sources,
			Fallback:  true,
			Reason:    gen.Reason,
		}, nil
	}

	batch, report := g.repairer.RepairWithReport(gen.Text, count, RepairSeed{Query: query, Sources: sources})
	if report.Changed() {
		g.log.Info("Repaired model output: received %d, kept %d, padded %d, truncated %d",
			report.Received, report.Kept, report.Padded, report.Truncated)
	}

	result := &domain.CaseResult{
		Query:     query,
		TestCases: batch,
		Sources:   sources,
		Fallback:  report.Fallback,
		Repaired:  report.Changed(),
		Reason:    report.Reason,
	}
	return result, nil
}
