package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService owns the vector index handle for the lifetime of the process.
//
// Whether to build or load is decided by the store location alone. Changes
// to the corpus after the index was built are not picked up until an
// explicit Rebuild.
//
// A failed open is remembered: later CreateOrLoad and Current calls return
// the same error without touching the store or the corpus until Rebuild
// succeeds. Cancellation by the caller is not remembered.
type IndexService struct {
	store   driven.VectorStore
	source  driven.DocumentSource
	chunker driven.Chunker

	mu      sync.Mutex
	index   driven.VectorIndex
	openErr error
}

// NewIndexService creates a new index service.
func NewIndexService(store driven.VectorStore, source driven.DocumentSource, chunker driven.Chunker) *IndexService {
	return &IndexService{
		store:   store,
		source:  source,
		chunker: chunker,
	}
}

// CreateOrLoad returns the cached handle, loading the index when its
// location exists and building it from the corpus otherwise. Concurrent
// callers wait for the first one and share its handle.
func (s *IndexService) CreateOrLoad(ctx context.Context) (driven.VectorIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index, nil
	}
	if s.openErr != nil {
		return nil, s.openErr
	}

	var (
		index driven.VectorIndex
		err   error
	)
	if s.store.Exists() {
		logger.Debug("Loading index from %s", s.store.Location())
		index, err = s.store.Load(ctx)
	} else {
		index, err = s.build(ctx)
	}
	if err != nil {
		s.remember(ctx, err)
		return nil, err
	}

	s.index = index
	return index, nil
}

// Current returns the open handle without loading or building anything.
// It fails with the remembered open error, or ErrIndexNotOpen when the
// index was never opened.
func (s *IndexService) Current() (driven.VectorIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index, nil
	}
	if s.openErr != nil {
		return nil, s.openErr
	}
	return nil, domain.ErrIndexNotOpen
}

// remember records a failed open unless ctx ended (caller must hold lock).
func (s *IndexService) remember(ctx context.Context, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	s.openErr = err
}

// Rebuild removes the index location and builds it again from the corpus.
// The previous handle is closed.
func (s *IndexService) Rebuild(ctx context.Context) (driven.VectorIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		if err := s.index.Close(); err != nil {
			logger.Warn("closing index: %v", err)
		}
		s.index = nil
	}
	s.openErr = nil

	if err := s.store.Remove(); err != nil {
		s.remember(ctx, err)
		return nil, err
	}

	index, err := s.build(ctx)
	if err != nil {
		s.remember(ctx, err)
		return nil, err
	}

	s.index = index
	return index, nil
}

// build loads, chunks and embeds the corpus (caller must hold lock).
func (s *IndexService) build(ctx context.Context) (driven.VectorIndex, error) {
	logger.Section("Index Build")
	start := time.Now()

	docs, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents from %s: %w", s.source.Root(), err)
	}
	logger.Debug("Loaded %d documents from %s", len(docs), s.source.Root())

	chunks, err := s.chunker.Split(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("split documents: %w", err)
	}
	logger.Debug("%s produced %d chunks", s.chunker.Name(), len(chunks))

	index, err := s.store.Build(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	logger.Info("Indexed %d chunks from %d documents in %s",
		index.Len(), len(docs), time.Since(start).Round(time.Millisecond))
	return index, nil
}

// Info returns the current index description, if one is open.
func (s *IndexService) Info() (domain.IndexInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		return domain.IndexInfo{}, false
	}
	return s.index.Info(), true
}

// Close releases the cached handle and forgets any failed open.
func (s *IndexService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.openErr = nil

	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}
