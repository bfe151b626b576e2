package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/qagent/internal/connectors/filesystem"
	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driving"
)

// fakeSessions is an in-memory SessionService.
type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	built    map[string]int
	closed   []string
	cleared  []string
	next     int
	buildErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions: make(map[string]*domain.Session),
		built:    make(map[string]int),
	}
}

func (f *fakeSessions) Open() (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := fmt.Sprintf("session-%d", f.next)
	f.sessions[id] = &domain.Session{ID: id, CreatedAt: time.Now()}
	return &domain.Session{ID: id}, nil
}

func (f *fakeSessions) OpenNamed(_ context.Context, name string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, ok := f.sessions[name]; !ok {
		f.sessions[name] = &domain.Session{ID: name}
	}
	return &domain.Session{ID: name}, nil
}

func (f *fakeSessions) Get(id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) Ingest(_ context.Context, id, filename string, content []byte) (*domain.SourceDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if strings.EqualFold(filepath.Ext(filename), ".bin") {
		return nil, domain.ErrUnsupportedType
	}
	doc := domain.SourceDocument{Filename: filename, Content: string(content)}
	s.Documents = append(s.Documents, doc)
	return &doc, nil
}

func (f *fakeSessions) AddDocuments(id string, docs ...domain.SourceDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Documents = append(s.Documents, docs...)
	return nil
}

func (f *fakeSessions) SetMarkup(_ context.Context, id, markup, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Markup = markup
	s.MarkupSource = source
	s.Documents = append(s.Documents, domain.SourceDocument{Filename: source, Content: markup})
	return nil
}

func (f *fakeSessions) Build(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buildErr != nil {
		return 0, f.buildErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	if len(s.Documents) == 0 {
		return 0, domain.ErrNoDocuments
	}
	f.built[id] = len(s.Documents) * 2
	return f.built[id], nil
}

func (f *fakeSessions) Knowledge(string) (driving.KnowledgeService, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSessions) Health(id string) (domain.Health, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return domain.Health{}, domain.ErrSessionNotFound
	}
	chunks, built := f.built[id]
	return domain.Health{
		Status:             "healthy",
		SessionID:          id,
		KnowledgeBaseBuilt: built,
		HTMLUploaded:       s.Markup != "",
		Documents:          len(s.Documents),
		Chunks:             chunks,
	}, nil
}

func (f *fakeSessions) Clear(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Documents = nil
	s.Markup = ""
	delete(f.built, id)
	f.cleared = append(f.cleared, id)
	return nil
}

func (f *fakeSessions) Close(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
	return nil
}

func (f *fakeSessions) isBuilt(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.built[id]
	return ok
}

func (f *fakeSessions) session(id string) *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

// fakeCases returns count alternating cases, or err.
type fakeCases struct {
	sessions *fakeSessions
	err      error
	lastID   string
	fallback bool
}

func (f *fakeCases) Generate(_ context.Context, sessionID, query string, count int) (*domain.CaseResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !f.sessions.isBuilt(sessionID) {
		return nil, domain.ErrKnowledgeBaseNotBuilt
	}
	f.lastID = sessionID
	result := &domain.CaseResult{Query: query, Sources: []string{"guide.md"}, Fallback: f.fallback}
	if f.fallback {
		result.Reason = "llm unavailable"
	}
	for i := 1; i <= count; i++ {
		kind := domain.CasePositive
		if i%2 == 0 {
			kind = domain.CaseNegative
		}
		result.TestCases = append(result.TestCases, domain.TestCase{
			ID:             domain.FormatCaseID(i),
			Feature:        query,
			Scenario:       "scenario " + domain.FormatCaseID(i),
			Kind:           kind,
			Steps:          []string{"open page", "submit form"},
			ExpectedResult: "result shown",
		})
	}
	return result, nil
}

// fakeScripts echoes the case ID into the script.
type fakeScripts struct {
	sessions *fakeSessions
	last     domain.TestCase
}

func (f *fakeScripts) Synthesize(_ context.Context, sessionID string, tc domain.TestCase) (*domain.ScriptResult, error) {
	s := f.sessions.session(sessionID)
	if s == nil {
		return nil, domain.ErrSessionNotFound
	}
	if s.Markup == "" {
		return nil, domain.ErrNoMarkup
	}
	f.last = tc
	return &domain.ScriptResult{
		Script: domain.GeneratedScript("# " + tc.ID + "\nfrom selenium import webdriver\n"),
		TestID: tc.ID,
	}, nil
}

// fakePages serves fixed HTML.
type fakePages struct {
	html string
	err  error
	urls []string
}

func (f *fakePages) Fetch(_ context.Context, rawURL string) (string, error) {
	f.urls = append(f.urls, rawURL)
	return f.html, f.err
}

func (f *fakePages) Close() error { return nil }

// testEnv wires fakes into the commands.
type testEnv struct {
	sessions *fakeSessions
	cases    *fakeCases
	scripts  *fakeScripts
	pages    *fakePages
	config   *Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sessions := newFakeSessions()
	env := &testEnv{
		sessions: sessions,
		cases:    &fakeCases{sessions: sessions},
		scripts:  &fakeScripts{sessions: sessions},
		pages:    &fakePages{html: "<html><body><form><input id=\"code\"></form></body></html>"},
	}
	env.config = &Config{
		Sessions:  env.sessions,
		TestCases: env.cases,
		Scripts:   env.scripts,
		Loader:    filesystem.NewLoader([]string{".md", ".txt", ".html"}),
		Pages:     env.pages,
	}
	SetConfig(env.config)
	t.Cleanup(func() { SetConfig(nil) })
	return env
}

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// resetFlags restores every flag of cmd and its children to its default,
// since command flags are package state shared between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// fakeCollections is an in-memory CollectionStore.
type fakeCollections struct {
	names   []string
	deleted []string
	err     error
}

func (f *fakeCollections) Collections(context.Context) ([]string, error) {
	return f.names, f.err
}

func (f *fakeCollections) DeleteCollection(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return f.err
}
