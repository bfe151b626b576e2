package mcp

import (
	"context"
	"fmt"
	"path"
	"strings"
	"testing"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driving"
)

// mockSessionService is an in-memory driving.SessionService.
type mockSessionService struct {
	sessions map[string]*domain.Session
	built    map[string]int
	openErr  error
	buildErr error
	next     int
}

func newMockSessionService() *mockSessionService {
	return &mockSessionService{
		sessions: make(map[string]*domain.Session),
		built:    make(map[string]int),
	}
}

func (m *mockSessionService) Open() (*domain.Session, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.next++
	s := &domain.Session{ID: fmt.Sprintf("session-%d", m.next)}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *mockSessionService) OpenNamed(_ context.Context, name string) (*domain.Session, error) {
	if _, ok := m.sessions[name]; ok {
		return nil, domain.ErrInvalidInput
	}
	s := &domain.Session{ID: name}
	m.sessions[name] = s
	return s, nil
}

func (m *mockSessionService) Get(id string) (*domain.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessionService) Ingest(_ context.Context, id, filename string, content []byte) (*domain.SourceDocument, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if strings.HasSuffix(filename, ".bin") {
		return nil, domain.ErrUnsupportedType
	}
	doc := domain.SourceDocument{Filename: filename, Content: string(content)}
	s.Documents = append(s.Documents, doc)
	if path.Ext(filename) == ".html" {
		s.Markup = string(content)
		s.MarkupSource = filename
	}
	return &doc, nil
}

func (m *mockSessionService) AddDocuments(id string, docs ...domain.SourceDocument) error {
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Documents = append(s.Documents, docs...)
	return nil
}

func (m *mockSessionService) SetMarkup(_ context.Context, id, markup, source string) error {
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Markup, s.MarkupSource = markup, source
	return nil
}

func (m *mockSessionService) Build(_ context.Context, id string) (int, error) {
	s, ok := m.sessions[id]
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	if m.buildErr != nil {
		return 0, m.buildErr
	}
	if len(s.Documents) == 0 {
		return 0, domain.ErrNoDocuments
	}
	m.built[id] = len(s.Documents) * 2
	return m.built[id], nil
}

func (m *mockSessionService) Knowledge(id string) (driving.KnowledgeService, error) {
	return nil, fmt.Errorf("not implemented: %s", id)
}

func (m *mockSessionService) Health(id string) (domain.Health, error) {
	s, ok := m.sessions[id]
	if !ok {
		return domain.Health{}, domain.ErrSessionNotFound
	}
	chunks, built := m.built[id]
	return domain.Health{
		Status:             "healthy",
		SessionID:          id,
		KnowledgeBaseBuilt: built,
		HTMLUploaded:       s.HasMarkup(),
		Documents:          len(s.Documents),
		Chunks:             chunks,
	}, nil
}

func (m *mockSessionService) Clear(_ context.Context, id string) error {
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Documents, s.Markup, s.MarkupSource = nil, "", ""
	delete(m.built, id)
	return nil
}

func (m *mockSessionService) Close(id string) error {
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// mockTestCaseService returns a canned result.
type mockTestCaseService struct {
	result    *domain.CaseResult
	err       error
	lastCount int
	lastID    string
}

func (m *mockTestCaseService) Generate(_ context.Context, sessionID, query string, count int) (*domain.CaseResult, error) {
	m.lastID, m.lastCount = sessionID, count
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	batch := make(domain.TestCaseBatch, count)
	for i := range batch {
		batch[i] = domain.TestCase{
			ID:       domain.FormatCaseID(i + 1),
			Feature:  query,
			Scenario: "scenario",
			Kind:     domain.CasePositive,
			Steps:    []string{"step"},
		}
	}
	return &domain.CaseResult{Query: query, TestCases: batch, Sources: []string{"checkout.md"}}, nil
}

// mockScriptService returns a canned script.
type mockScriptService struct {
	err error
}

func (m *mockScriptService) Synthesize(_ context.Context, _ string, tc domain.TestCase) (*domain.ScriptResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ScriptResult{
		Script: "from selenium import webdriver\n",
		TestID: tc.ID,
		Structure: domain.PageStructure{Elements: []domain.MarkupElementDescriptor{
			{Kind: domain.ElementButton, ID: "pay", Text: "Pay now"},
		}},
	}, nil
}

func newTestServer(t *testing.T) (*Server, *mockSessionService) {
	t.Helper()
	sessions := newMockSessionService()
	server, err := NewServer(&Ports{
		Sessions:  sessions,
		TestCases: &mockTestCaseService{},
		Scripts:   &mockScriptService{},
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return server, sessions
}
