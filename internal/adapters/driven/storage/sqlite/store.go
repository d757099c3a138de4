package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DBFile is the database file name inside the index directory.
const DBFile = "index.db"

// Metadata keys.
const (
	metaEmbeddingModel = "embedding_model"
	metaDimensions     = "dimensions"
	metaCreatedAt      = "created_at"
	metaDocuments      = "documents"
)

// Store is a directory-backed vector store.
type Store struct {
	location    string
	embedder    driven.EmbeddingService
	batchSize   int
	concurrency int
	now         func() time.Time
}

// Option configures the store.
type Option func(*Store)

// WithBatchSize sets the number of chunks embedded per request.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithConcurrency sets the number of batches embedded at once.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewStore creates a store at location that embeds with embedder.
// Nothing is created on disk until Build.
func NewStore(location string, embedder driven.EmbeddingService, opts ...Option) *Store {
	s := &Store{
		location:    location,
		embedder:    embedder,
		batchSize:   domain.DefaultBatchSize,
		concurrency: domain.DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the index directory.
func (s *Store) Location() string {
	return s.location
}

// Exists reports whether the index directory exists.
// Its contents are not inspected.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.location)
	return err == nil
}

// Remove deletes the index directory and everything in it.
func (s *Store) Remove() error {
	if err := os.RemoveAll(s.location); err != nil {
		return fmt.Errorf("removing index %s: %w", s.location, err)
	}
	return nil
}

// Build embeds every chunk and persists the index. When the location
// already exists nothing is embedded and the existing index is loaded.
// A failed build leaves no directory behind.
func (s *Store) Build(ctx context.Context, chunks []domain.Chunk) (driven.VectorIndex, error) {
	if s.Exists() {
		logger.Debug("index %s exists, loading instead of building", s.location)
		return s.Load(ctx)
	}

	logger.Info("Embedding %d chunks with %s", len(chunks), s.embedder.ModelName())
	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}

	entries := make([]domain.IndexEntry, len(chunks))
	docs := make(map[string]struct{})
	for i, c := range chunks {
		c.Embedding = vectors[i]
		entries[i] = domain.EntryFromChunk(c)
		docs[c.DocumentID] = struct{}{}
	}

	dims := s.embedder.Dimensions()
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}

	info := domain.IndexInfo{
		Location:       s.location,
		EmbeddingModel: s.embedder.ModelName(),
		Dimensions:     dims,
		Documents:      len(docs),
		CreatedAt:      s.now().UTC().Truncate(time.Second),
		Built:          true,
	}

	idx, err := memory.New(entries, info)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}

	if err := s.persist(ctx, idx.Entries(), idx.Info()); err != nil {
		if rmErr := os.RemoveAll(s.location); rmErr != nil {
			logger.Warn("failed to remove partial index %s: %v", s.location, rmErr)
		}
		return nil, err
	}

	logger.Info("Index built at %s (%d entries)", s.location, idx.Len())
	return idx, nil
}

// embed embeds chunks in batches, several batches at a time. Vectors are
// placed by chunk position, so the result does not depend on scheduling.
func (s *Store) embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.Content)
			}

			batch, err := s.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end-1, err)
			}
			if len(batch) != len(texts) {
				return fmt.Errorf("batch %d-%d: %w: %w: got %d vectors for %d texts",
					start, end-1, domain.ErrProviderUnavailable, domain.ErrMalformedResponse, len(batch), len(texts))
			}

			copy(vectors[start:end], batch)
			logger.Debug("embedded chunks %d-%d", start, end-1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// persist writes the entries and metadata in one transaction.
func (s *Store) persist(ctx context.Context, entries []domain.IndexEntry, info domain.IndexInfo) error {
	if err := os.MkdirAll(s.location, 0700); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	db, err := open(filepath.Join(s.location, DBFile))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrate(db, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	meta := map[string]string{
		metaEmbeddingModel: info.EmbeddingModel,
		metaDimensions:     strconv.Itoa(info.Dimensions),
		metaCreatedAt:      info.CreatedAt.Format(time.RFC3339),
		metaDocuments:      strconv.Itoa(info.Documents),
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metadata (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
			return fmt.Errorf("saving metadata %s: %w", key, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (seq, chunk_id, source, content, position, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, i, e.ChunkID, e.Source, e.Content, e.Position,
			float32SliceToBytes(e.Embedding)); err != nil {
			return fmt.Errorf("saving entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	return nil
}

// Load opens the index at the location without embedding anything.
// A missing or unreadable index is reported as domain.ErrStoreNotFound.
func (s *Store) Load(ctx context.Context) (driven.VectorIndex, error) {
	if !s.Exists() {
		return nil, fmt.Errorf("%w: %s does not exist", domain.ErrStoreNotFound, s.location)
	}

	dbPath := filepath.Join(s.location, DBFile)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreNotFound, err)
	}

	db, err := open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreNotFound, err)
	}
	defer db.Close()

	info, err := readMetadata(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStoreNotFound, s.location, err)
	}
	info.Location = s.location

	if model := s.embedder.ModelName(); info.EmbeddingModel != model {
		return nil, fmt.Errorf("%w: index at %s was built with %q, configured model is %q",
			domain.ErrEmbeddingModelMismatch, s.location, info.EmbeddingModel, model)
	}

	entries, err := readEntries(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStoreNotFound, s.location, err)
	}

	idx, err := memory.New(entries, info)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStoreNotFound, s.location, err)
	}

	logger.Debug("loaded index %s (%d entries)", s.location, idx.Len())
	return idx, nil
}

// ReadInfo returns the metadata of the index at the location without
// loading its entries or checking the embedding model.
func (s *Store) ReadInfo(ctx context.Context) (domain.IndexInfo, error) {
	if !s.Exists() {
		return domain.IndexInfo{}, fmt.Errorf("%w: %s does not exist", domain.ErrStoreNotFound, s.location)
	}

	dbPath := filepath.Join(s.location, DBFile)
	if _, err := os.Stat(dbPath); err != nil {
		return domain.IndexInfo{}, fmt.Errorf("%w: %w", domain.ErrStoreNotFound, err)
	}

	db, err := open(dbPath)
	if err != nil {
		return domain.IndexInfo{}, fmt.Errorf("%w: %w", domain.ErrStoreNotFound, err)
	}
	defer db.Close()

	info, err := readMetadata(ctx, db)
	if err != nil {
		return domain.IndexInfo{}, fmt.Errorf("%w: %s: %w", domain.ErrStoreNotFound, s.location, err)
	}
	info.Location = s.location

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&info.Entries); err != nil {
		return domain.IndexInfo{}, fmt.Errorf("%w: counting entries: %w", domain.ErrStoreNotFound, err)
	}
	return info, nil
}

func open(path string) (*sql.DB, error) {
	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func readMetadata(ctx context.Context, db *sql.DB) (domain.IndexInfo, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM metadata")
	if err != nil {
		return domain.IndexInfo{}, fmt.Errorf("reading metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.IndexInfo{}, fmt.Errorf("scanning metadata: %w", err)
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return domain.IndexInfo{}, fmt.Errorf("reading metadata: %w", err)
	}

	var info domain.IndexInfo
	var ok bool
	if info.EmbeddingModel, ok = meta[metaEmbeddingModel]; !ok || info.EmbeddingModel == "" {
		return domain.IndexInfo{}, errors.New("metadata has no embedding model")
	}
	if info.Dimensions, err = strconv.Atoi(meta[metaDimensions]); err != nil {
		return domain.IndexInfo{}, fmt.Errorf("metadata dimensions: %w", err)
	}
	if v, ok := meta[metaDocuments]; ok {
		info.Documents, _ = strconv.Atoi(v)
	}
	if v, ok := meta[metaCreatedAt]; ok {
		info.CreatedAt, _ = time.Parse(time.RFC3339, v)
	}
	return info, nil
}

func readEntries(ctx context.Context, db *sql.DB) ([]domain.IndexEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT chunk_id, source, content, position, embedding
		FROM entries ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.IndexEntry
	for rows.Next() {
		var e domain.IndexEntry
		var blob []byte
		if err := rows.Scan(&e.ChunkID, &e.Source, &e.Content, &e.Position, &blob); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if len(blob)%4 != 0 {
			return nil, fmt.Errorf("entry %s: embedding has %d bytes", e.ChunkID, len(blob))
		}
		e.Embedding = bytesToFloat32Slice(blob)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}
	return entries, nil
}

// migrate runs all pending migrations.
func migrate(db *sql.DB, fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_init.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
