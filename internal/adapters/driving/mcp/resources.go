package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

const (
	uriScheme    = "qagent://"
	documentsURI = uriScheme + "documents"
	markupURI    = uriScheme + "markup"
	healthURI    = uriScheme + "health"

	mimeJSON = "application/json"
)

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI: documentsURI, Name: "documents", MIMEType: mimeJSON,
		Description: "Documents uploaded to the default session",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentsURI + "/{filename}", Name: "document-content", MIMEType: "text/plain",
		Description: "Decoded text of an uploaded document",
	}, s.handleDocumentContentResource)

	s.server.AddResource(&mcp.Resource{
		URI: markupURI, Name: "markup", MIMEType: "text/html",
		Description: "Markup of the page under test",
	}, s.handleMarkupResource)

	s.server.AddResource(&mcp.Resource{
		URI: healthURI, Name: "health", MIMEType: mimeJSON,
		Description: "Knowledge base status of the default session",
	}, s.handleHealthResource)
}

type documentEntry struct {
	Filename string `json:"filename"`
	URI      string `json:"uri"`
	Size     int    `json:"size"`
}

func (s *Server) handleDocumentsResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	sess, err := s.defaultSession()
	if err != nil {
		return nil, err
	}
	entries := make([]documentEntry, 0, len(sess.Documents))
	for _, d := range sess.Documents {
		entries = append(entries, documentEntry{Filename: d.Filename, URI: documentURI(d.Filename), Size: len(d.Content)})
	}
	return jsonResource(req.Params.URI, entries)
}

func (s *Server) handleDocumentContentResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	name := extractFilename(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	sess, err := s.defaultSession()
	if err != nil {
		return nil, err
	}
	for _, d := range sess.Documents {
		if d.Filename == name {
			return textResource(req.Params.URI, "text/plain", d.Content), nil
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func (s *Server) handleMarkupResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	sess, err := s.defaultSession()
	if err != nil {
		return nil, err
	}
	if !sess.HasMarkup() {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return textResource(req.Params.URI, "text/html", sess.Markup), nil
}

func (s *Server) handleHealthResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	h, err := s.ports.Sessions.Health(s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("session health: %w", err)
	}
	return jsonResource(req.Params.URI, h)
}

func (s *Server) defaultSession() (*domain.Session, error) {
	sess, err := s.ports.Sessions.Get(s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return sess, nil
}

func textResource(uri, mime, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mime, Text: text}},
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", uri, err)
	}
	return textResource(uri, mimeJSON, string(data)), nil
}

// documentURI escapes filename into a single path segment, since
// uploaded names may contain slashes.
func documentURI(filename string) string {
	return documentsURI + "/" + url.PathEscape(filename)
}

// extractFilename reverses documentURI. It returns "" for any other URI.
func extractFilename(uri string) string {
	rest, ok := strings.CutPrefix(uri, documentsURI+"/")
	if !ok {
		return ""
	}
	name, err := url.PathUnescape(rest)
	if err != nil {
		return ""
	}
	return name
}
