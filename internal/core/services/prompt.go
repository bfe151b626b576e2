package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/logger"
	"github.com/custodia-labs/qagent/internal/prompts"
)

// PromptBuilder assembles source-attributed generation prompts.
// Output depends only on its inputs and the loaded templates.
type PromptBuilder struct {
	store         driven.PromptStore
	caseContext   int
	scriptContext int
}

// NewPromptBuilder creates a prompt builder.
// A nil store uses the built-in templates. Context sizes below 1 use defaults.
func NewPromptBuilder(store driven.PromptStore, retrieval domain.RetrievalSettings) *PromptBuilder {
	defaults := domain.DefaultAppSettings().Retrieval
	b := &PromptBuilder{
		store:         store,
		caseContext:   retrieval.CaseContext,
		scriptContext: retrieval.ScriptContext,
	}
	if b.caseContext < 1 {
		b.caseContext = defaults.CaseContext
	}
	if b.scriptContext < 1 {
		b.scriptContext = defaults.ScriptContext
	}
	return b
}

// CaseContext returns how many hits go into a test-case prompt.
func (b *PromptBuilder) CaseContext() int {
	return b.caseContext
}

// ScriptContext returns how many hits go into a script prompt.
func (b *PromptBuilder) ScriptContext() int {
	return b.scriptContext
}

// TestCasePrompt builds the prompt asking for exactly count test cases.
// Only the first CaseContext hits are used, each tagged with its source.
func (b *PromptBuilder) TestCasePrompt(query string, count int, hits []domain.RetrievalHit) string {
	hits = capHits(hits, b.caseContext)

	blocks := make([]string, len(hits))
	for i, h := range hits {
		blocks[i] = fmt.Sprintf("[Source: %s]\n%s", h.SourceFilename, h.Text)
	}

	// The request must stay on one line for the fallback generator to find it.
	query = strings.Join(strings.Fields(query), " ")

	return fmt.Sprintf(b.template(driven.PromptTestCases), count, strings.Join(blocks, "\n\n"), query)
}

// ScriptPrompt builds the prompt asking for an automation script for tc.
// Only the first ScriptContext hits are used.
func (b *PromptBuilder) ScriptPrompt(tc domain.TestCase, structure domain.PageStructure, hits []domain.RetrievalHit) string {
	hits = capHits(hits, b.scriptContext)

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}

	caseJSON, _ := json.MarshalIndent(tc, "", "  ")

	return fmt.Sprintf(b.template(driven.PromptScript), string(caseJSON), structure.String(), strings.Join(texts, "\n"))
}

// template loads a prompt from the store, falling back to the built-in copy.
func (b *PromptBuilder) template(name string) string {
	if b.store != nil {
		tmpl, err := b.store.Load(name)
		if err == nil && tmpl != "" {
			return tmpl
		}
		if err != nil {
			logger.Debug("Prompt %q unavailable, using built-in template: %v", name, err)
		}
	}
	tmpl, _ := prompts.Default(name)
	return tmpl
}

func capHits(hits []domain.RetrievalHit, n int) []domain.RetrievalHit {
	if n >= 0 && len(hits) > n {
		return hits[:n]
	}
	return hits
}
