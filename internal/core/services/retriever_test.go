package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func rankedIndex(t *testing.T) *memory.Index {
	t.Helper()
	idx, err := memory.New([]domain.IndexEntry{
		{ChunkID: "a", Source: "docs/far.txt", Content: "far away", Embedding: []float32{0, 1}},
		{ChunkID: "b", Source: "docs/near.txt", Content: "closest", Embedding: []float32{1, 0}},
		{ChunkID: "c", Source: "docs/near.txt", Content: "second", Embedding: []float32{1, 0.5}},
	}, domain.IndexInfo{})
	require.NoError(t, err)
	return idx
}

func TestRetriever_RetrieveContext(t *testing.T) {
	embedder := &mockEmbeddingService{embedding: []float32{1, 0}}
	r := NewRetriever(embedder, &mockIndexService{index: rankedIndex(t)})

	res, err := r.RetrieveContext(context.Background(), "what is near?", 2)
	require.NoError(t, err)

	assert.Equal(t, "closest\n\nsecond", res.Context)
	assert.Equal(t, []string{"docs/near.txt", "docs/near.txt"}, res.Sources)
	assert.Equal(t, 2, res.NumDocs)
	assert.Equal(t, 1, embedder.calls)
}

func TestRetriever_RetrieveContext_KLargerThanIndex(t *testing.T) {
	r := NewRetriever(&mockEmbeddingService{embedding: []float32{1, 0}}, &mockIndexService{index: rankedIndex(t)})

	res, err := r.RetrieveContext(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, res.NumDocs)
	assert.Len(t, res.Sources, 3)
}

func TestRetriever_RetrieveContext_EmptyIndex(t *testing.T) {
	empty, err := memory.New(nil, domain.IndexInfo{})
	require.NoError(t, err)
	r := NewRetriever(&mockEmbeddingService{embedding: []float32{1, 0}}, &mockIndexService{index: empty})

	res, err := r.RetrieveContext(context.Background(), "anything", 4)
	require.NoError(t, err)
	assert.Empty(t, res.Context)
	assert.NotNil(t, res.Sources)
	assert.Empty(t, res.Sources)
	assert.Zero(t, res.NumDocs)
}

func TestRetriever_RetrieveContext_Errors(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		k       int
		embed   error
		index   error
		wantErr error
	}{
		{"empty query", "", 4, nil, nil, domain.ErrInvalidInput},
		{"whitespace query", "  \n\t", 4, nil, nil, domain.ErrInvalidInput},
		{"zero k", "q", 0, nil, nil, domain.ErrInvalidInput},
		{"negative k", "q", -1, nil, nil, domain.ErrInvalidInput},
		{"embedding failure", "q", 4, domain.ErrProviderUnavailable, nil, domain.ErrProviderUnavailable},
		{"index unavailable", "q", 4, nil, domain.ErrStoreNotFound, domain.ErrStoreNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := &mockEmbeddingService{embedding: []float32{1, 0}, embedErr: tt.embed}
			indexes := &mockIndexService{index: rankedIndex(t), err: tt.index}
			r := NewRetriever(embedder, indexes)

			res, err := r.RetrieveContext(context.Background(), tt.query, tt.k)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)
		})
	}
}

func TestRetriever_RetrieveContext_InvalidInputDoesNoWork(t *testing.T) {
	embedder := &mockEmbeddingService{embedding: []float32{1, 0}}
	indexes := &mockIndexService{index: rankedIndex(t)}
	r := NewRetriever(embedder, indexes)

	_, err := r.RetrieveContext(context.Background(), "", 4)
	require.Error(t, err)
	assert.Zero(t, embedder.calls)
	assert.Zero(t, indexes.calls)
}

func TestRetriever_RetrieveContext_DimensionMismatch(t *testing.T) {
	r := NewRetriever(&mockEmbeddingService{embedding: []float32{1, 0, 0}}, &mockIndexService{index: rankedIndex(t)})

	_, err := r.RetrieveContext(context.Background(), "q", 2)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetriever_RetrieveContext_FailedOpenDoesNoWork(t *testing.T) {
	tests := []struct {
		name    string
		store   *mockVectorStore
		source  *mockDocumentSource
		wantErr error
	}{
		{
			name:    "corrupt index",
			store:   &mockVectorStore{exists: true, loadErr: domain.ErrStoreNotFound},
			source:  &mockDocumentSource{},
			wantErr: domain.ErrStoreNotFound,
		},
		{
			name:    "embedding outage during build",
			store:   &mockVectorStore{buildErr: domain.ErrProviderUnavailable},
			source:  &mockDocumentSource{docs: testDocuments()},
			wantErr: domain.ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			indexes := newTestIndexService(tt.store, tt.source)
			_, err := indexes.CreateOrLoad(context.Background())
			require.ErrorIs(t, err, tt.wantErr)
			loads, builds, sourceLoads := tt.store.loads, tt.store.builds, tt.source.loads

			embedder := &mockEmbeddingService{embedding: []float32{1, 0}}
			r := NewRetriever(embedder, indexes)
			for i := 0; i < 3; i++ {
				res, err := r.RetrieveContext(context.Background(), "q", 2)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
			}

			assert.Equal(t, loads, tt.store.loads)
			assert.Equal(t, builds, tt.store.builds)
			assert.Equal(t, sourceLoads, tt.source.loads)
			assert.Zero(t, embedder.calls)
		})
	}
}

func TestRetriever_RetrieveContext_IndexNotOpen(t *testing.T) {
	store := &mockVectorStore{}
	source := &mockDocumentSource{docs: testDocuments()}
	r := NewRetriever(&mockEmbeddingService{embedding: []float32{1, 0}}, newTestIndexService(store, source))

	_, err := r.RetrieveContext(context.Background(), "q", 2)
	assert.ErrorIs(t, err, domain.ErrIndexNotOpen)
	assert.Zero(t, store.builds)
	assert.Zero(t, store.loads)
	assert.Zero(t, source.loads)
}
