package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	mu        sync.Mutex
	embedding []float32
	embedErr  error
	calls     int
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.embedding, nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		result[i] = vec
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(m.embedding)
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	mu       sync.Mutex
	response string
	err      error
	block    bool
	prompts  []string
	opts     []driven.GenerateOptions
}

func (m *mockLLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
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

// mockVectorStore implements driven.VectorStore for testing.
// Build embeds nothing; it stores entries derived from the chunks as-is.
type mockVectorStore struct {
	mu        sync.Mutex
	exists    bool
	existing  driven.VectorIndex
	loadErr   error
	buildErr  error
	removeErr error
	builds    int
	loads     int
	removes   int
	chunks    []domain.Chunk
	newIndex  func(chunks []domain.Chunk) (driven.VectorIndex, error)
}

func (m *mockVectorStore) Location() string {
	return "mock://index"
}

func (m *mockVectorStore) Exists() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exists
}

func (m *mockVectorStore) Build(_ context.Context, chunks []domain.Chunk) (driven.VectorIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builds++
	if m.buildErr != nil {
		return nil, m.buildErr
	}
	m.chunks = chunks
	idx, err := m.newIndex(chunks)
	if err != nil {
		return nil, err
	}
	m.exists = true
	m.existing = idx
	return idx, nil
}

func (m *mockVectorStore) Load(_ context.Context) (driven.VectorIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.existing == nil {
		return nil, domain.ErrStoreNotFound
	}
	return m.existing, nil
}

func (m *mockVectorStore) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removes++
	if m.removeErr != nil {
		return m.removeErr
	}
	m.exists = false
	m.existing = nil
	return nil
}

// mockDocumentSource implements driven.DocumentSource for testing.
type mockDocumentSource struct {
	docs    []domain.Document
	loadErr error
	loads   int
}

func (m *mockDocumentSource) Load(_ context.Context) ([]domain.Document, error) {
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.docs, nil
}

func (m *mockDocumentSource) Root() string {
	return "mock://documents"
}

// mockIndexService implements driving.IndexService for testing.
type mockIndexService struct {
	index driven.VectorIndex
	err   error
	calls int
}

func (m *mockIndexService) CreateOrLoad(_ context.Context) (driven.VectorIndex, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.index, nil
}

func (m *mockIndexService) Current() (driven.VectorIndex, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.index, nil
}

func (m *mockIndexService) Rebuild(ctx context.Context) (driven.VectorIndex, error) {
	return m.CreateOrLoad(ctx)
}

func (m *mockIndexService) Info() (domain.IndexInfo, bool) {
	if m.index == nil {
		return domain.IndexInfo{}, false
	}
	return m.index.Info(), true
}

// mockRetriever implements driving.RetrievalService for testing.
type mockRetriever struct {
	result *domain.RetrievalResult
	err    error
	lastK  int
	calls  int
}

func (m *mockRetriever) RetrieveContext(_ context.Context, _ string, k int) (*domain.RetrievalResult, error) {
	m.calls++
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockConfigStore implements driven.ConfigStore for testing.
type mockConfigStore struct {
	data map[string]any
}

func newMockConfigStore(data map[string]any) *mockConfigStore {
	if data == nil {
		data = map[string]any{}
	}
	return &mockConfigStore{data: data}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.data[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	switch v := m.data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.data[key].(bool)
	return b
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	s, _ := m.data[key].([]string)
	return s
}

func (m *mockConfigStore) Set(key string, value any) error {
	m.data[key] = value
	return nil
}

func (m *mockConfigStore) Save() error { return nil }

func (m *mockConfigStore) Load() error { return nil }

func (m *mockConfigStore) Path() string { return "mock://config.toml" }
