package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

const (
	statusSuccess = "success"
	statusPartial = "partial"

	// defaultCaseCount is used when generate_test_cases omits count.
	defaultCaseCount = 5
)

// UploadFile is one uploaded document.
type UploadFile struct {
	Filename string `json:"filename" jsonschema:"file name including extension, used to pick the decoder"`
	Content  string `json:"content" jsonschema:"file content"`
	Encoding string `json:"encoding,omitempty" jsonschema:"content encoding: text (default) or base64"`
}

// UploadInput is the input schema for the upload_documents tool.
type UploadInput struct {
	SessionID string       `json:"session_id,omitempty" jsonschema:"session to upload into (default session if empty)"`
	Files     []UploadFile `json:"files" jsonschema:"documents to add; HTML files also become the page under test"`
}

// SkippedFile reports a file that could not be ingested.
type SkippedFile struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// UploadOutput is the output schema for the upload_documents tool.
type UploadOutput struct {
	Status       string        `json:"status"`
	SessionID    string        `json:"session_id"`
	Documents    []string      `json:"documents"`
	Skipped      []SkippedFile `json:"skipped,omitempty"`
	HTMLUploaded bool          `json:"html_uploaded"`
}

// SessionInput is the input schema for tools that only need a session.
type SessionInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session to use (default session if empty)"`
}

// BuildOutput is the output schema for the build_knowledge_base tool.
type BuildOutput struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
}

// GenerateCasesInput is the input schema for the generate_test_cases tool.
type GenerateCasesInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session to use (default session if empty)"`
	Query     string `json:"query" jsonschema:"feature or behaviour to test, e.g. discount code validation"`
	Count     int    `json:"count,omitempty" jsonschema:"number of test cases to generate (default 5)"`
}

// GenerateCasesOutput is the output schema for the generate_test_cases tool.
type GenerateCasesOutput struct {
	Status    string               `json:"status"`
	TestCases domain.TestCaseBatch `json:"test_cases"`
	Count     int                  `json:"count"`
	Sources   []string             `json:"sources"`
	Fallback  bool                 `json:"fallback"`
	Reason    string               `json:"reason,omitempty"`
}

// GenerateScriptInput is the input schema for the generate_script tool.
type GenerateScriptInput struct {
	SessionID string          `json:"session_id,omitempty" jsonschema:"session to use (default session if empty)"`
	TestCase  domain.TestCase `json:"test_case" jsonschema:"test case to automate, as returned by generate_test_cases"`
}

// GenerateScriptOutput is the output schema for the generate_script tool.
type GenerateScriptOutput struct {
	Status   string `json:"status"`
	TestID   string `json:"test_id"`
	Script   string `json:"script"`
	Elements int    `json:"elements"`
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason,omitempty"`
}

// OpenSessionInput is the input schema for the open_session tool.
type OpenSessionInput struct {
	Name string `json:"name,omitempty" jsonschema:"collection name to open or resume; empty opens a fresh anonymous session"`
}

// SessionOutput is the output schema for the open_session and close_session tools.
type SessionOutput struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Built     bool   `json:"knowledge_base_built"`
}

// ClearOutput is the output schema for the clear tool.
type ClearOutput struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "open_session",
		Description: "Open a session and return its session_id for use with the other tools",
	}, s.handleOpenSession)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "close_session",
		Description: "Discard a session opened with open_session",
	}, s.handleCloseSession)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "upload_documents",
		Description: "Add documentation files (txt, md, json, pdf, html) to the session",
	}, s.handleUpload)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "build_knowledge_base",
		Description: "Chunk and embed the uploaded documents so they can be retrieved",
	}, s.handleBuild)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_test_cases",
		Description: "Generate test cases grounded in the knowledge base",
	}, s.handleGenerateCases)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_script",
		Description: "Generate a Python Selenium script for a test case against the uploaded HTML page",
	}, s.handleGenerateScript)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "health",
		Description: "Report whether the knowledge base is built and the page markup is uploaded",
	}, s.handleHealth)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear",
		Description: "Remove all documents and markup from the session",
	}, s.handleClear)
}

// handleUpload handles the upload_documents tool invocation.
func (s *Server) handleUpload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, UploadOutput, error) {
	if len(input.Files) == 0 {
		return nil, UploadOutput{}, fmt.Errorf("%w: no files provided", domain.ErrInvalidInput)
	}

	id := s.session(input.SessionID)
	output := UploadOutput{SessionID: id, Documents: []string{}}

	for _, f := range input.Files {
		content, err := decodeContent(f)
		if err == nil {
			_, err = s.ports.Sessions.Ingest(ctx, id, f.Filename, content)
		}
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) || ctx.Err() != nil {
				return nil, UploadOutput{}, err
			}
			output.Skipped = append(output.Skipped, SkippedFile{Filename: f.Filename, Error: err.Error()})
			continue
		}
		output.Documents = append(output.Documents, f.Filename)
	}

	if len(output.Documents) == 0 {
		return nil, UploadOutput{}, fmt.Errorf("%w: none of the %d files could be read", domain.ErrNoDocuments, len(input.Files))
	}

	health, err := s.ports.Sessions.Health(id)
	if err != nil {
		return nil, UploadOutput{}, err
	}
	output.HTMLUploaded = health.HTMLUploaded

	output.Status = statusSuccess
	if len(output.Skipped) > 0 {
		output.Status = statusPartial
	}
	return nil, output, nil
}

// handleBuild handles the build_knowledge_base tool invocation.
func (s *Server) handleBuild(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, BuildOutput, error) {
	id := s.session(input.SessionID)

	chunks, err := s.ports.Sessions.Build(ctx, id)
	if err != nil {
		return nil, BuildOutput{}, fmt.Errorf("building knowledge base: %w", err)
	}

	health, err := s.ports.Sessions.Health(id)
	if err != nil {
		return nil, BuildOutput{}, err
	}

	return nil, BuildOutput{
		Status:    statusSuccess,
		SessionID: id,
		Documents: health.Documents,
		Chunks:    chunks,
	}, nil
}

// handleGenerateCases handles the generate_test_cases tool invocation.
func (s *Server) handleGenerateCases(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateCasesInput,
) (*mcp.CallToolResult, GenerateCasesOutput, error) {
	count := input.Count
	if count <= 0 {
		count = defaultCaseCount
	}

	result, err := s.ports.TestCases.Generate(ctx, s.session(input.SessionID), input.Query, count)
	if err != nil {
		return nil, GenerateCasesOutput{}, err
	}

	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}

	return nil, GenerateCasesOutput{
		Status:    statusSuccess,
		TestCases: result.TestCases,
		Count:     len(result.TestCases),
		Sources:   sources,
		Fallback:  result.Fallback,
		Reason:    result.Reason,
	}, nil
}

// handleGenerateScript handles the generate_script tool invocation.
func (s *Server) handleGenerateScript(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateScriptInput,
) (*mcp.CallToolResult, GenerateScriptOutput, error) {
	result, err := s.ports.Scripts.Synthesize(ctx, s.session(input.SessionID), input.TestCase)
	if err != nil {
		return nil, GenerateScriptOutput{}, err
	}

	return nil, GenerateScriptOutput{
		Status:   statusSuccess,
		TestID:   result.TestID,
		Script:   string(result.Script),
		Elements: len(result.Structure.Elements),
		Fallback: result.Fallback,
		Reason:   result.Reason,
	}, nil
}

// handleHealth handles the health tool invocation.
func (s *Server) handleHealth(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, domain.Health, error) {
	health, err := s.ports.Sessions.Health(s.session(input.SessionID))
	if err != nil {
		return nil, domain.Health{}, err
	}
	return nil, health, nil
}

// handleClear handles the clear tool invocation.
func (s *Server) handleClear(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, ClearOutput, error) {
	id := s.session(input.SessionID)
	if err := s.ports.Sessions.Clear(ctx, id); err != nil {
		return nil, ClearOutput{}, err
	}
	return nil, ClearOutput{Status: statusSuccess, SessionID: id}, nil
}

// handleOpenSession handles the open_session tool invocation. Naming a
// session that is already open returns it unchanged.
func (s *Server) handleOpenSession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input OpenSessionInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	name := strings.TrimSpace(input.Name)

	var id string
	switch {
	case name == "":
		sess, err := s.ports.Sessions.Open()
		if err != nil {
			return nil, SessionOutput{}, fmt.Errorf("opening session: %w", err)
		}
		id = sess.ID
		s.track(id)
	case s.isOpen(name):
		id = name
	default:
		sess, err := s.ports.Sessions.OpenNamed(ctx, name)
		if err != nil {
			return nil, SessionOutput{}, fmt.Errorf("opening session %s: %w", name, err)
		}
		id = sess.ID
		s.track(id)
	}

	health, err := s.ports.Sessions.Health(id)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	log.Debug("Opened session %s", id)
	return nil, SessionOutput{Status: statusSuccess, SessionID: id, Built: health.KnowledgeBaseBuilt}, nil
}

// handleCloseSession handles the close_session tool invocation.
func (s *Server) handleCloseSession(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	id := strings.TrimSpace(input.SessionID)
	if id == "" || id == s.sessionID {
		return nil, SessionOutput{}, fmt.Errorf("%w: the default session cannot be closed", domain.ErrInvalidInput)
	}
	if err := s.ports.Sessions.Close(id); err != nil {
		return nil, SessionOutput{}, err
	}
	s.untrack(id)
	return nil, SessionOutput{Status: statusSuccess, SessionID: id}, nil
}

func decodeContent(f UploadFile) ([]byte, error) {
	switch strings.ToLower(f.Encoding) {
	case "", "text":
		return []byte(f.Content), nil
	case "base64":
		data, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64 content: %v", domain.ErrInvalidInput, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unknown encoding %q", domain.ErrInvalidInput, f.Encoding)
	}
}
