package mcp

import (
	"github.com/custodia-labs/qagent/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Sessions manages documents, markup and knowledge bases.
	Sessions driving.SessionService

	// TestCases generates test cases.
	TestCases driving.TestCaseService

	// Scripts generates Selenium scripts.
	Scripts driving.ScriptService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Sessions == nil {
		return ErrMissingSessionService
	}
	if p.TestCases == nil {
		return ErrMissingTestCaseService
	}
	if p.Scripts == nil {
		return ErrMissingScriptService
	}
	return nil
}
