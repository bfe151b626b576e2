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

// Ensure ScriptSynthesizer implements the interface.
var _ driving.ScriptService = (*ScriptSynthesizer)(nil)

// ScriptSynthesizer turns a test case into a Selenium script using the
// session's page structure and supporting documentation.
type ScriptSynthesizer struct {
	sessions  driving.SessionService
	extractor driven.StructureExtractor
	prompts   *PromptBuilder
	gateway   *Gateway
	retrieval domain.RetrievalSettings
	genOpts   driven.GenerateOptions
	log       logger.Component
}

// NewScriptSynthesizer creates a script synthesizer.
func NewScriptSynthesizer(
	sessions driving.SessionService,
	extractor driven.StructureExtractor,
	prompts *PromptBuilder,
	gateway *Gateway,
	retrieval domain.RetrievalSettings,
	genOpts driven.GenerateOptions,
) *ScriptSynthesizer {
	if retrieval.ScriptK < 1 {
		retrieval.ScriptK = domain.DefaultAppSettings().Retrieval.ScriptK
	}
	return &ScriptSynthesizer{
		sessions:  sessions,
		extractor: extractor,
		prompts:   prompts,
		gateway:   gateway,
		retrieval: retrieval,
		genOpts:   genOpts,
		log:       logger.For("scripts"),
	}
}

// Synthesize generates a script for tc.
func (s *ScriptSynthesizer) Synthesize(ctx context.Context, sessionID string, tc domain.TestCase) (*domain.ScriptResult, error) {
	if strings.TrimSpace(tc.Scenario) == "" && strings.TrimSpace(tc.Feature) == "" {
		return nil, fmt.Errorf("%w: test case has neither feature nor scenario", domain.ErrInvalidInput)
	}

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasMarkup() {
		return nil, domain.ErrNoMarkup
	}

	structure := s.structure(session.Markup)
	hits := s.context(ctx, sessionID, tc)

	prompt := s.prompts.ScriptPrompt(tc, structure, hits)
	gen := s.gateway.Generate(ctx, TaskScript, prompt, s.genOpts)

	result := &domain.ScriptResult{
		Script:    domain.GeneratedScript(CleanCode(gen.Text)),
		TestID:    tc.ID,
		Structure: structure,
		Fallback:  gen.Fallback,
		Reason:    gen.Reason,
	}
	if strings.TrimSpace(string(result.Script)) == "" {
		s.log.Warn("Model returned no code for %s, using fallback script", tc.ID)
		result.Script = domain.GeneratedScript(CleanCode(fallbackScript))
		result.Fallback = true
		result.Reason = "generation returned no code"
	}
	return result, nil
}

func (s *ScriptSynthesizer) structure(markup string) domain.PageStructure {
	if s.extractor == nil {
		return domain.PageStructure{Failed: true, Marker: domain.MarkerExtractionFailed}
	}
	return s.extractor.Extract(markup)
}

// context retrieves documentation for the case. An unbuilt knowledge base
// yields no context rather than an error.
func (s *ScriptSynthesizer) context(ctx context.Context, sessionID string, tc domain.TestCase) []domain.RetrievalHit {
	kb, err := s.sessions.Knowledge(sessionID)
	if err != nil || !kb.Stats().Built {
		return nil
	}
	query := strings.TrimSpace(tc.Feature + " " + tc.Scenario)
	hits, err := kb.Retrieve(ctx, query, s.retrieval.ScriptK)
	if err != nil {
		s.log.Warn("Retrieval failed, generating without context: %v", err)
		return nil
	}
	return hits
}
