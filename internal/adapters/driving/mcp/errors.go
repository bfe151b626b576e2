// Package mcp provides an MCP (Model Context Protocol) server adapter for qagent.
// It lets AI assistants upload documentation, build the knowledge base and
// generate test cases and Selenium scripts.
package mcp

import "errors"

var (
	// ErrMissingSessionService is returned when the session service is not provided.
	ErrMissingSessionService = errors.New("mcp: session service is required")

	// ErrMissingTestCaseService is returned when the test case service is not provided.
	ErrMissingTestCaseService = errors.New("mcp: test case service is required")

	// ErrMissingScriptService is returned when the script service is not provided.
	ErrMissingScriptService = errors.New("mcp: script service is required")
)
