package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	result    *domain.Result
	err       error
	lastQuery string
}

func (m *mockQueryService) ProcessQuery(_ context.Context, query string) (*domain.Result, error) {
	m.lastQuery = query
	return m.result, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result *domain.RetrievalResult
	err    error
	lastK  int
}

func (m *mockRetrievalService) RetrieveContext(_ context.Context, _ string, k int) (*domain.RetrievalResult, error) {
	m.lastK = k
	return m.result, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	info domain.IndexInfo
	open bool
}

func (m *mockIndexService) CreateOrLoad(_ context.Context) (driven.VectorIndex, error) {
	return nil, nil
}

func (m *mockIndexService) Current() (driven.VectorIndex, error) {
	return nil, nil
}

func (m *mockIndexService) Rebuild(_ context.Context) (driven.VectorIndex, error) {
	return nil, nil
}

func (m *mockIndexService) Info() (domain.IndexInfo, bool) {
	return m.info, m.open
}
