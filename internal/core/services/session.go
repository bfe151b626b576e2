package services

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/core/ports/driving"
	"github.com/custodia-labs/qagent/internal/logger"
)

// Ensure SessionManager implements the interface.
var _ driving.SessionService = (*SessionManager)(nil)

// KnowledgeFactory creates the knowledge store for a new session.
type KnowledgeFactory func(sessionID string) (*KnowledgeStore, error)

type sessionEntry struct {
	mu      sync.Mutex
	session domain.Session
	store   *KnowledgeStore
}

// SessionManager owns the open sessions, keyed by ID.
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*sessionEntry
	newStore    KnowledgeFactory
	normalisers driven.NormaliserRegistry
	log         logger.Component
}

// NewSessionManager creates a session manager.
// normalisers may be nil, in which case only pre-decoded documents are accepted.
func NewSessionManager(newStore KnowledgeFactory, normalisers driven.NormaliserRegistry) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*sessionEntry),
		newStore:    newStore,
		normalisers: normalisers,
		log:         logger.For("session"),
	}
}

// Open creates a new empty session.
func (m *SessionManager) Open() (*domain.Session, error) {
	return m.open(context.Background(), uuid.New().String(), false)
}

// OpenNamed opens a session with a fixed ID. If the knowledge store behind
// that name already holds chunks, the session starts out built.
func (m *SessionManager) OpenNamed(ctx context.Context, name string) (*domain.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: session name is required", domain.ErrInvalidInput)
	}
	return m.open(ctx, name, true)
}

func (m *SessionManager) open(ctx context.Context, id string, restore bool) (*domain.Session, error) {
	m.mu.RLock()
	_, exists := m.sessions[id]
	m.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("%w: session %q is already open", domain.ErrInvalidInput, id)
	}

	store, err := m.newStore(id)
	if err != nil {
		return nil, fmt.Errorf("create knowledge store: %w", err)
	}

	if restore {
		n, err := store.Restore(ctx)
		if err != nil {
			store.Close() //nolint:errcheck
			return nil, fmt.Errorf("restore session %s: %w", id, err)
		}
		if n > 0 {
			m.log.Info("Restored %d chunks for session %s", n, id)
		}
	}

	entry := &sessionEntry{
		session: domain.Session{ID: id, CreatedAt: time.Now()},
		store:   store,
	}

	m.mu.Lock()
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		store.Close() //nolint:errcheck
		return nil, fmt.Errorf("%w: session %q is already open", domain.ErrInvalidInput, id)
	}
	m.sessions[id] = entry
	m.mu.Unlock()

	m.log.Debug("Opened session %s", id)
	s := entry.session
	return &s, nil
}

// Get returns a copy of the session.
func (m *SessionManager) Get(id string) (*domain.Session, error) {
	entry, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	s := entry.session
	s.Documents = append([]domain.SourceDocument(nil), entry.session.Documents...)
	return &s, nil
}

// Ingest decodes an uploaded file and adds it to the session.
func (m *SessionManager) Ingest(ctx context.Context, id, filename string, content []byte) (*domain.SourceDocument, error) {
	entry, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	if m.normalisers == nil {
		return nil, fmt.Errorf("%w: no normalisers configured", domain.ErrUnsupportedType)
	}

	result, err := m.normalisers.Normalise(ctx, filename, content)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", filename, err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.session.Documents = upsertDocument(entry.session.Documents, result.Document)
	if result.Markup != "" {
		entry.session.Markup = result.Markup
		entry.session.MarkupSource = filename
	}

	m.log.Debug("Ingested %s (%d chars)", filename, len(result.Document.Content))
	doc := result.Document
	return &doc, nil
}

// AddDocuments appends already-decoded documents, replacing any with the same filename.
func (m *SessionManager) AddDocuments(id string, docs ...domain.SourceDocument) error {
	entry, err := m.entry(id)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	for _, d := range docs {
		entry.session.Documents = upsertDocument(entry.session.Documents, d)
	}
	return nil
}

// SetMarkup stores the page markup. When normalisers are available its
// feature summary is also added as a document so it can be retrieved.
func (m *SessionManager) SetMarkup(ctx context.Context, id, markup, source string) error {
	entry, err := m.entry(id)
	if err != nil {
		return err
	}

	if m.normalisers != nil && markup != "" {
		result, err := m.normalisers.Normalise(ctx, markupDocName(source), []byte(markup))
		if err != nil {
			m.log.Warn("Could not summarise page markup: %v", err)
		} else {
			entry.mu.Lock()
			entry.session.Documents = upsertDocument(entry.session.Documents, result.Document)
			entry.mu.Unlock()
		}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.session.Markup = markup
	entry.session.MarkupSource = source
	return nil
}

// Build rebuilds the session's knowledge base from its documents.
func (m *SessionManager) Build(ctx context.Context, id string) (int, error) {
	entry, err := m.entry(id)
	if err != nil {
		return 0, err
	}

	entry.mu.Lock()
	docs := append([]domain.SourceDocument(nil), entry.session.Documents...)
	entry.mu.Unlock()

	return entry.store.Build(ctx, docs)
}

// Knowledge returns the session's knowledge base.
func (m *SessionManager) Knowledge(id string) (driving.KnowledgeService, error) {
	entry, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	return entry.store, nil
}

// Store returns the session's knowledge store.
func (m *SessionManager) Store(id string) (*KnowledgeStore, error) {
	entry, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	return entry.store, nil
}

// Health reports the session's status.
func (m *SessionManager) Health(id string) (domain.Health, error) {
	entry, err := m.entry(id)
	if err != nil {
		return domain.Health{}, err
	}
	stats := entry.store.Stats()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return domain.Health{
		Status:             "healthy",
		SessionID:          id,
		KnowledgeBaseBuilt: stats.Built,
		HTMLUploaded:       entry.session.HasMarkup(),
		Documents:          len(entry.session.Documents),
		Chunks:             stats.Chunks,
	}, nil
}

// Clear removes all documents and markup and resets the knowledge base.
func (m *SessionManager) Clear(ctx context.Context, id string) error {
	entry, err := m.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	entry.session.Documents = nil
	entry.session.Markup = ""
	entry.session.MarkupSource = ""
	entry.mu.Unlock()

	return entry.store.Reset(ctx)
}

// Close discards the session and releases its knowledge store.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return entry.store.Close()
}

// CloseAll discards every session.
func (m *SessionManager) CloseAll() error {
	m.mu.Lock()
	entries := m.sessions
	m.sessions = make(map[string]*sessionEntry)
	m.mu.Unlock()

	var firstErr error
	for _, entry := range entries {
		if err := entry.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *SessionManager) entry(id string) (*sessionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return entry, nil
}

func upsertDocument(docs []domain.SourceDocument, doc domain.SourceDocument) []domain.SourceDocument {
	for i := range docs {
		if docs[i].Filename == doc.Filename {
			docs[i] = doc
			return docs
		}
	}
	return append(docs, doc)
}

// markupDocName derives an .html document name from a file path or URL.
func markupDocName(source string) string {
	name := source
	if i := strings.Index(name, "://"); i >= 0 {
		name = path.Base(strings.SplitN(name[i+3:], "?", 2)[0])
	} else {
		name = filepath.Base(name)
	}
	if name == "" || name == "." || name == "/" {
		name = "page"
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return name
	default:
		return name + ".html"
	}
}
