package domain

import "time"

// Session holds the documents and page markup of one working session.
// A session owns exactly one knowledge store.
type Session struct {
	// ID is the unique identifier for the session.
	ID string

	// Documents are the ingested source documents.
	Documents []SourceDocument

	// Markup is the raw markup of the page under test.
	Markup string

	// MarkupSource names where Markup came from (file name or URL).
	MarkupSource string

	// CreatedAt is when the session was opened.
	CreatedAt time.Time
}

// HasMarkup reports whether page markup has been supplied.
func (s *Session) HasMarkup() bool {
	return s != nil && s.Markup != ""
}

// Filenames returns the names of the session's documents in order.
func (s *Session) Filenames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Documents))
	for i, d := range s.Documents {
		names[i] = d.Filename
	}
	return names
}

// Health summarises a session for status reporting.
type Health struct {
	Status             string `json:"status"`
	SessionID          string `json:"session_id"`
	KnowledgeBaseBuilt bool   `json:"knowledge_base_built"`
	HTMLUploaded       bool   `json:"html_uploaded"`
	Documents          int    `json:"documents"`
	Chunks             int    `json:"chunks"`
}
