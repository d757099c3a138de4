package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/retry"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, DefaultBaseURL, svc.api.BaseURL())
}

func TestEmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)

		out := embedResponse{}
		for range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{1, 0, 0})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL, Model: "all-minilm", Dimensions: 3})

	out, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, out, 3)

	single, err := svc.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, single)
}

func TestEmbedBatch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"model missing", http.StatusNotFound, `{"error":"model not found"}`, domain.ErrProviderUnavailable},
		{"malformed json", http.StatusOK, `{`, domain.ErrMalformedResponse},
		{"wrong dimensions", http.StatusOK, `{"embeddings":[[1,2]]}`, domain.ErrMalformedResponse},
		{"error field", http.StatusOK, `{"error":"boom"}`, domain.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc := NewEmbeddingService(Config{BaseURL: server.URL, Dimensions: 3})

			_, err := svc.Embed(context.Background(), "a")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEmbedBatch_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	svc := NewEmbeddingService(Config{BaseURL: url, Retry: retry.Config{MaxAttempts: 1}})

	_, err := svc.Embed(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestEmbedBatch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"model is loading"}`))
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1,2,3]]}`))
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{
		BaseURL:    server.URL,
		Dimensions: 3,
		Retry:      retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond},
	})

	out, err := svc.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedBatch_MissingModelSuggestsPull(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"all-minilm\" not found"}`))
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL, Model: "all-minilm"})

	_, err := svc.Embed(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull all-minilm")
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		body    string
		wantErr bool
	}{
		{"pulled with tag", "nomic-embed-text", `{"models":[{"name":"nomic-embed-text:latest"}]}`, false},
		{"pulled exact", "all-minilm:l6-v2", `{"models":[{"name":"all-minilm:l6-v2"}]}`, false},
		{"not pulled", "nomic-embed-text", `{"models":[{"name":"llama3:latest"}]}`, true},
		{"malformed", "nomic-embed-text", `nope`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/tags", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc := NewEmbeddingService(Config{BaseURL: server.URL, Model: tt.model})

			err := svc.Ping(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
