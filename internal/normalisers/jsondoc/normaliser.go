// Package jsondoc provides a Normaliser implementation for JSON documents.
package jsondoc

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles JSON documents.
type Normaliser struct{}

// New creates a new JSON normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".json"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Format normaliser, higher than plaintext
}

// Normalise pretty-prints the document with a two-space indent.
// Invalid JSON is kept as plain text.
func (n *Normaliser) Normalise(_ context.Context, filename string, content []byte) (*driven.NormaliseResult, error) {
	if filename == "" {
		return nil, domain.ErrInvalidInput
	}

	return &driven.NormaliseResult{
		Document: domain.SourceDocument{
			Filename: filename,
			Content:  indent(content),
		},
	}, nil
}

func indent(content []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(content), "", "  "); err != nil {
		return plaintext.Decode(content)
	}
	return buf.String()
}
