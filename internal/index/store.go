// Package index persists sanitized document chunks and their embeddings in
// SQLite and serves nearest-neighbour lookups from an in-memory snapshot.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kruthik-JP/guard-rail-NER/internal/embed"
	guardotel "github.com/Kruthik-JP/guard-rail-NER/internal/otel"
)

var tracer = guardotel.Tracer("github.com/Kruthik-JP/guard-rail-NER/internal/index")

// Domain errors for the index package.
var (
	ErrEmptyIndex = errors.New("index contains no chunks")
	ErrNoMatch    = errors.New("no relevant match found")
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    text TEXT NOT NULL,
    embedding BLOB NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source, ordinal);
`

// Chunk is a sanitized text segment with its embedding vector.
type Chunk struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Ordinal   int               `json:"ordinal"`
	Text      string            `json:"text"`
	Embedding []float32         `json:"-"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Hit is a retrieval result with its cosine similarity to the query vector.
type Hit struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Store persists chunks in SQLite. Search runs against an in-memory snapshot
// so retrieval never touches the database on the hot path; Rebuild replaces
// the file atomically and swaps the snapshot.
type Store struct {
	path string

	mu       sync.RWMutex
	db       *sql.DB
	snapshot []Chunk
}

// NewStore opens (or creates) the index database at path and loads the chunk
// snapshot. A missing or unreadable file yields an empty, queryable store.
func NewStore(path string) (*Store, error) {
	db, err := openIndexDB(path)
	if err != nil {
		return nil, err
	}

	s := &Store{path: path, db: db}
	snapshot, err := loadSnapshot(context.Background(), db)
	if err != nil {
		// A corrupt index is recoverable by rebuilding; start empty.
		snapshot = nil
	}
	s.snapshot = snapshot
	return s, nil
}

func openIndexDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}
	return db, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Count returns the number of chunks in the current snapshot.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshot)
}

// Rebuild replaces the entire index with the given chunks. The new content is
// written to a temporary file first and renamed over the old one, so readers
// either see the previous index or the complete new one, never a partial
// write.
func (s *Store) Rebuild(ctx context.Context, chunks []Chunk) error {
	ctx, span := tracer.Start(ctx, "index.rebuild",
		trace.WithAttributes(attribute.Int("index.chunk_count", len(chunks))))
	defer span.End()

	tmpPath := s.path + ".tmp"
	_ = os.Remove(tmpPath)

	tmpDB, err := openIndexDB(tmpPath)
	if err != nil {
		return err
	}
	if err := insertChunks(ctx, tmpDB, chunks); err != nil {
		tmpDB.Close()
		_ = os.Remove(tmpPath)
		span.RecordError(err)
		return err
	}
	if err := tmpDB.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temporary index: %w", err)
	}
	// WAL sidecars would otherwise shadow the renamed file.
	_ = os.Remove(tmpPath + "-wal")
	_ = os.Remove(tmpPath + "-shm")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		_ = s.db.Close()
	}
	_ = os.Remove(s.path + "-wal")
	_ = os.Remove(s.path + "-shm")
	if err := os.Rename(tmpPath, s.path); err != nil {
		s.db = nil
		return fmt.Errorf("replacing index file: %w", err)
	}

	db, err := openIndexDB(s.path)
	if err != nil {
		s.db = nil
		return err
	}
	s.db = db
	s.snapshot = append([]Chunk(nil), chunks...)
	return nil
}

func insertChunks(ctx context.Context, db *sql.DB, chunks []Chunk) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, source, ordinal, text, embedding, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range chunks {
		c := &chunks[i]
		if c.ID == "" {
			c.ID = "chk_" + uuid.New().String()[:12]
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		metaJSON, _ := json.Marshal(c.Metadata)
		if c.Metadata == nil {
			metaJSON = []byte("{}")
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Source, c.Ordinal, c.Text, encodeVector(c.Embedding),
			string(metaJSON), c.CreatedAt); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func loadSnapshot(ctx context.Context, db *sql.DB) ([]Chunk, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, source, ordinal, text, embedding, metadata, created_at
		 FROM chunks ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("loading index snapshot: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var blob []byte
		var metaJSON string
		if err := rows.Scan(&c.ID, &c.Source, &c.Ordinal, &c.Text, &blob, &metaJSON, &c.CreatedAt); err != nil {
			continue
		}
		vec, err := decodeVector(blob)
		if err != nil {
			continue
		}
		c.Embedding = vec
		_ = json.Unmarshal([]byte(metaJSON), &c.Metadata)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Search returns the single chunk most similar to the query vector. Ties keep
// the earliest inserted chunk. Returns ErrEmptyIndex when no chunks exist.
func (s *Store) Search(ctx context.Context, vector []float32) (*Hit, error) {
	_, span := tracer.Start(ctx, "index.search")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snapshot) == 0 {
		return nil, ErrEmptyIndex
	}

	best := 0
	bestScore := embed.Cosine(vector, s.snapshot[0].Embedding)
	for i := 1; i < len(s.snapshot); i++ {
		score := embed.Cosine(vector, s.snapshot[i].Embedding)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}

	span.SetAttributes(
		attribute.Float64("index.best_score", bestScore),
		attribute.Int("index.candidates", len(s.snapshot)),
	)
	return &Hit{Chunk: s.snapshot[best], Score: bestScore}, nil
}
