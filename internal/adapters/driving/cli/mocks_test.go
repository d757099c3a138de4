package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// mockQueryService implements driving.QueryService for testing.
type mockQueryService struct {
	result *domain.Result
	err    error
	query  string
}

func (m *mockQueryService) ProcessQuery(_ context.Context, query string) (*domain.Result, error) {
	m.query = query
	return m.result, m.err
}

// mockRetrievalService implements driving.RetrievalService for testing.
type mockRetrievalService struct {
	result *domain.RetrievalResult
	err    error
	k      int
}

func (m *mockRetrievalService) RetrieveContext(_ context.Context, _ string, k int) (*domain.RetrievalResult, error) {
	m.k = k
	return m.result, m.err
}

// mockIndexService implements driving.IndexService for testing.
type mockIndexService struct {
	mu       sync.Mutex
	info     domain.IndexInfo
	err      error
	loads    int
	rebuilds int
}

func (m *mockIndexService) CreateOrLoad(_ context.Context) (driven.VectorIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	return nil, m.err
}

func (m *mockIndexService) Current() (driven.VectorIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return nil, m.err
}

func (m *mockIndexService) loadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

func (m *mockIndexService) Rebuild(_ context.Context) (driven.VectorIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuilds++
	if m.err == nil {
		m.info.Built = true
	}
	return nil, m.err
}

func (m *mockIndexService) Info() (domain.IndexInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info, true
}

func (m *mockIndexService) rebuildCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rebuilds
}

// mockInspector implements IndexInspector for testing.
type mockInspector struct {
	location string
	exists   bool
	info     domain.IndexInfo
	err      error
}

func (m *mockInspector) Location() string { return m.location }

func (m *mockInspector) Exists() bool { return m.exists }

func (m *mockInspector) ReadInfo(_ context.Context) (domain.IndexInfo, error) {
	return m.info, m.err
}

// mockWatcher implements driven.CorpusWatcher for testing.
type mockWatcher struct {
	changes chan domain.CorpusChange
	err     error
	closed  bool
}

func (m *mockWatcher) Watch(_ context.Context) (<-chan domain.CorpusChange, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.changes, nil
}

func (m *mockWatcher) Close() error {
	m.closed = true
	return nil
}

func sampleResult() *domain.Result {
	return &domain.Result{
		Query:          "What is machine learning?",
		Answer:         "Based on the research findings:\n\nMachine learning learns from data.\n\nSources: [machine_learning.txt]",
		Sources:        []string{"data/documents/machine_learning.txt"},
		NumSources:     1,
		ProcessingTime: 1500 * time.Millisecond,
		WorkflowSteps: []string{
			domain.StepRetrieved(1),
			domain.StepAnalysisComplete,
			domain.StepAnswerSynthesized,
		},
	}
}

// testServices returns a service set backed by mocks.
func testServices() *Services {
	return &Services{
		Settings:  domain.DefaultSettings(),
		Query:     &mockQueryService{result: sampleResult()},
		Retrieval: &mockRetrievalService{result: &domain.RetrievalResult{Sources: []string{}}},
		Index:     &mockIndexService{},
		Store:     &mockInspector{location: domain.DefaultIndexPath},
		Watcher:   &mockWatcher{changes: make(chan domain.CorpusChange)},
	}
}

// setupTestServices installs svc as the loaded service set and resets
// command flags. The returned function restores the previous state.
func setupTestServices(svc *Services) func() {
	oldCurrent := current
	oldFactory := servicesFactory
	current = svc
	resetFlags()
	return func() {
		current = oldCurrent
		servicesFactory = oldFactory
		resetFlags()
	}
}

func resetFlags() {
	configPath = ""
	verbose = false
	offline = false
	queryJSON = false
	retrieveK = domain.DefaultTopK
	retrieveJSON = false
	indexRebuild = false
	statusCheck = false
	configForce = false
	configPrompt = false
	seedForce = false
	watchRebuild = false
	watchDelay = 2 * time.Second
	mcpHost = "localhost"
	mcpPort = 0
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// clearEnv removes configuration variables inherited from the test environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"LLM_PROVIDER", "MODEL_NAME", "EMBEDDING_PROVIDER", "EMBEDDING_MODEL",
		"INDEX_PATH", "CHROMA_PATH", "DOCUMENTS_DIR",
		"HUGGINGFACE_API_KEY", "HUGGINGFACEHUB_API_TOKEN", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(name, "")
	}
}
