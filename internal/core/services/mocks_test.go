package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/qagent/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/postprocessors"
)

// --- Mock implementations ---

// keywordEmbedder implements driven.EmbeddingService by counting vocabulary
// words, so texts sharing words are close.
type keywordEmbedder struct {
	vocab    []string
	embedErr error

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newKeywordEmbedder(vocab ...string) *keywordEmbedder {
	return &keywordEmbedder{vocab: vocab}
}

func (m *keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(m.vocab)+1)
	for i, w := range m.vocab {
		vec[i] = float32(strings.Count(lower, w))
	}
	// Bias term keeps vectors non-zero.
	vec[len(m.vocab)] = 0.01
	return vec
}

func (m *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text), nil
}

func (m *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make([][]float32, len(texts))
	for i, t := range texts {
		result[i] = m.vector(t)
	}
	return result, nil
}

func (m *keywordEmbedder) Dimensions() int {
	return len(m.vocab) + 1
}

func (m *keywordEmbedder) ModelName() string {
	return "keyword-embed"
}

func (m *keywordEmbedder) Ping(_ context.Context) error {
	return nil
}

func (m *keywordEmbedder) Close() error {
	return nil
}

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	mu       sync.Mutex
	response string
	err      error
	block    bool
	prompts  []string
}

func (m *mockLLMService) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	response, err, block := m.response, m.err, m.block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return response, err
}

func (m *mockLLMService) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

// mockExtractor implements driven.StructureExtractor for testing.
type mockExtractor struct {
	structure domain.PageStructure
}

func (m *mockExtractor) Extract(_ string) domain.PageStructure {
	return m.structure
}

// mockNormalisers implements driven.NormaliserRegistry for testing.
// Files ending in .html also produce markup.
type mockNormalisers struct {
	err error
}

func (m *mockNormalisers) Normalise(_ context.Context, filename string, content []byte) (*driven.NormaliseResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := &driven.NormaliseResult{
		Document: domain.SourceDocument{Filename: filename, Content: string(content)},
	}
	if strings.HasSuffix(filename, ".html") {
		result.Markup = string(content)
		result.Document.Content = "FEATURES from " + filename
	}
	return result, nil
}

func (m *mockNormalisers) Register(_ driven.Normaliser) {}

func (m *mockNormalisers) SupportedExtensions() []string {
	return []string{".md", ".txt", ".html"}
}

// --- Test helpers ---

func newTestKnowledgeStore(embedder driven.EmbeddingService, opts ...KnowledgeOption) *KnowledgeStore {
	pipeline, err := postprocessors.FromSettings(domain.ChunkingSettings{ChunkSize: 200, Overlap: 20})
	if err != nil {
		panic(err)
	}
	return NewKnowledgeStore(pipeline, embedder, memory.NewChunkIndex(), opts...)
}

func newTestSessions(embedder driven.EmbeddingService) *SessionManager {
	return NewSessionManager(func(string) (*KnowledgeStore, error) {
		return newTestKnowledgeStore(embedder), nil
	}, &mockNormalisers{})
}

var checkoutDocs = []domain.SourceDocument{
	{
		Filename: "checkout.md",
		Content: "Checkout flow. The checkout page accepts discount codes. " +
			"The code SAVE15 gives 15% off. Invalid codes show an error.",
	},
	{
		Filename: "shipping.md",
		Content: "Shipping options. Standard shipping is free. Express shipping costs $10.",
	},
}

// discountDocs spreads the two discount codes over two files.
var discountDocs = []domain.SourceDocument{
	{
		Filename: "checkout.md",
		Content: "Checkout flow. The checkout page accepts discount codes. " +
			"The code SAVE15 gives 15% off. Invalid codes show an error.",
	},
	{
		Filename: "promotions.md",
		Content: "Summer promotion. The discount code SAVE20 gives 20% off orders over $50.",
	},
}
