package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qagent/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/postprocessors"
)

func TestSessionManager_OpenAndGet(t *testing.T) {
	m := newTestSessions(newKeywordEmbedder("x"))

	s, err := m.Open()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.CreatedAt.IsZero())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionManager_OpenFactoryError(t *testing.T) {
	m := NewSessionManager(func(string) (*KnowledgeStore, error) {
		return nil, errors.New("disk full")
	}, nil)

	_, err := m.Open()
	assert.ErrorContains(t, err, "disk full")
}

func TestSessionManager_IngestReplacesByFilename(t *testing.T) {
	m := newTestSessions(newKeywordEmbedder("x"))
	s, _ := m.Open()
	ctx := context.Background()

	_, err := m.Ingest(ctx, s.ID, "a.md", []byte("first"))
	require.NoError(t, err)
	_, err = m.Ingest(ctx, s.ID, "b.md", []byte("other"))
	require.NoError(t, err)
	doc, err := m.Ingest(ctx, s.ID, "a.md", []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, "second", doc.Content)

	got, _ := m.Get(s.ID)
	require.Len(t, got.Documents, 2)
	assert.Equal(t, "second", got.Documents[0].Content)
	assert.Equal(t, []string{"a.md", "b.md"}, got.Filenames())
}

func TestSessionManager_IngestHTMLSetsMarkup(t *testing.T) {
	m := newTestSessions(newKeywordEmbedder("x"))
	s, _ := m.Open()

	_, err := m.Ingest(context.Background(), s.ID, "checkout.html", []byte("<form></form>"))
	require.NoError(t, err)

	got, _ := m.Get(s.ID)
	assert.True(t, got.HasMarkup())
	assert.Equal(t, "<form></form>", got.Markup)
	assert.Equal(t, "checkout.html", got.MarkupSource)
	assert.Equal(t, "FEATURES from checkout.html", got.Documents[0].Content)
}

func TestSessionManager_IngestWithoutNormalisers(t *testing.T) {
	m := NewSessionManager(func(string) (*KnowledgeStore, error) {
		return newTestKnowledgeStore(newKeywordEmbedder("x")), nil
	}, nil)
	s, _ := m.Open()

	_, err := m.Ingest(context.Background(), s.ID, "a.md", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestSessionManager_IngestNormaliserError(t *testing.T) {
	m := NewSessionManager(func(string) (*KnowledgeStore, error) {
		return newTestKnowledgeStore(newKeywordEmbedder("x")), nil
	}, &mockNormalisers{err: domain.ErrUnsupportedType})
	s, _ := m.Open()

	_, err := m.Ingest(context.Background(), s.ID, "a.exe", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestSessionManager_SetMarkupFromURL(t *testing.T) {
	m := newTestSessions(newKeywordEmbedder("x"))
	s, _ := m.Open()

	err := m.SetMarkup(context.Background(), s.ID, "<html></html>", "https://shop.example.com/checkout?step=2")
	require.NoError(t, err)

	got, _ := m.Get(s.ID)
	assert.Equal(t, "<html></html>", got.Markup)
	assert.Equal(t, "https://shop.example.com/checkout?step=2", got.MarkupSource)
	assert.Equal(t, []string{"checkout.html"}, got.Filenames())
}

func TestMarkupDocName(t *testing.T) {
	tests := map[string]string{
		"page.html":                      "page.html",
		"/tmp/site/Index.HTM":            "Index.HTM",
		"checkout":                       "checkout.html",
		"https://example.com/":           "example.com.html",
		"https://example.com/a/cart.php": "cart.php.html",
		"":                               "page.html",
	}
	for in, want := range tests {
		assert.Equal(t, want, markupDocName(in), in)
	}
}

func TestSessionManager_BuildAndHealth(t *testing.T) {
	m := newTestSessions(newKeywordEmbedder("discount"))
	s, _ := m.Open()
	ctx := context.Background()

	h, err := m.Health(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.False(t, h.KnowledgeBaseBuilt)

	_, err = m.Build(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrNoDocuments)

	require.NoError(t, m.AddDocuments(s.ID, checkoutDocs...))
	n, err := m.Build(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	h, _ = m.Health(s.ID)
	assert.True(t, h.KnowledgeBaseBuilt)
	assert.Equal(t, 2, h.Documents)
	assert.Equal(t, 2, h.Chunks)
	assert.False(t, h.HTMLUploaded)

	kb, err := m.Knowledge(s.ID)
	require.NoError(t, err)
	assert.True(t, kb.Stats().Built)
}

func TestSessionManager_Clear(t *testing.T) {
	m := newTestSessions(newKeywordEmbedder("discount"))
	s, _ := m.Open()
	ctx := context.Background()
	require.NoError(t, m.AddDocuments(s.ID, checkoutDocs...))
	require.NoError(t, m.SetMarkup(ctx, s.ID, "<p/>", "p.html"))
	_, err := m.Build(ctx, s.ID)
	require.NoError(t, err)

	require.NoError(t, m.Clear(ctx, s.ID))

	h, _ := m.Health(s.ID)
	assert.Zero(t, h.Documents)
	assert.False(t, h.HTMLUploaded)
	assert.False(t, h.KnowledgeBaseBuilt)
}

func TestSessionManager_Close(t *testing.T) {
	m := newTestSessions(newKeywordEmbedder("x"))
	a, _ := m.Open()
	b, _ := m.Open()

	require.NoError(t, m.Close(a.ID))
	_, err := m.Get(a.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(a.ID), domain.ErrSessionNotFound)

	require.NoError(t, m.CloseAll())
	_, err = m.Get(b.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionManager_OpenNamedRestores(t *testing.T) {
	ctx := context.Background()
	embedder := newKeywordEmbedder("discount")
	indexes := map[string]*memory.ChunkIndex{}
	factory := func(id string) (*KnowledgeStore, error) {
		if indexes[id] == nil {
			indexes[id] = memory.NewChunkIndex()
		}
		pipeline, err := postprocessors.FromSettings(domain.ChunkingSettings{ChunkSize: 200, Overlap: 20})
		if err != nil {
			return nil, err
		}
		return NewKnowledgeStore(pipeline, embedder, indexes[id]), nil
	}

	first := NewSessionManager(factory, &mockNormalisers{})
	s, err := first.OpenNamed(ctx, "checkout")
	require.NoError(t, err)
	assert.Equal(t, "checkout", s.ID)

	h, _ := first.Health("checkout")
	assert.False(t, h.KnowledgeBaseBuilt)

	require.NoError(t, first.AddDocuments("checkout", checkoutDocs...))
	_, err = first.Build(ctx, "checkout")
	require.NoError(t, err)

	_, err = first.OpenNamed(ctx, "checkout")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	second := NewSessionManager(factory, &mockNormalisers{})
	_, err = second.OpenNamed(ctx, "checkout")
	require.NoError(t, err)

	h, err = second.Health("checkout")
	require.NoError(t, err)
	assert.True(t, h.KnowledgeBaseBuilt)
	assert.Equal(t, 2, h.Chunks)
	assert.Zero(t, h.Documents)

	kb, err := second.Knowledge("checkout")
	require.NoError(t, err)
	hits, err := kb.Retrieve(ctx, "discount", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "checkout.md", hits[0].SourceFilename)
}

func TestSessionManager_OpenNamedRequiresName(t *testing.T) {
	m := newTestSessions(newKeywordEmbedder("x"))
	_, err := m.OpenNamed(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
