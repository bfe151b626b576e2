package driving

import (
	"context"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

// SessionService manages working sessions. Each session owns its documents,
// its page markup and one knowledge base.
type SessionService interface {
	// Open creates a new empty session.
	Open() (*domain.Session, error)

	// OpenNamed opens a session with a fixed ID, restoring its knowledge
	// base if the index already holds one.
	OpenNamed(ctx context.Context, name string) (*domain.Session, error)

	// Get returns a copy of the session, or ErrSessionNotFound.
	Get(id string) (*domain.Session, error)

	// Ingest decodes an uploaded file and adds it to the session.
	// Page markup files also become the session's markup.
	Ingest(ctx context.Context, id, filename string, content []byte) (*domain.SourceDocument, error)

	// AddDocuments appends already-decoded documents.
	AddDocuments(id string, docs ...domain.SourceDocument) error

	// SetMarkup stores the page markup and adds its feature summary as a document.
	SetMarkup(ctx context.Context, id, markup, source string) error

	// Build (re)builds the session's knowledge base from its documents.
	Build(ctx context.Context, id string) (int, error)

	// Knowledge returns the session's knowledge base.
	Knowledge(id string) (KnowledgeService, error)

	// Health reports the session's status.
	Health(id string) (domain.Health, error)

	// Clear removes all documents and markup and resets the knowledge base.
	Clear(ctx context.Context, id string) error

	// Close discards the session.
	Close(id string) error
}
