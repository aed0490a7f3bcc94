package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/recall/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// IndexFile is the file name of an index snapshot inside its directory.
const IndexFile = "index.db"

// IndexStore persists one named index in its own SQLite database.
type IndexStore struct {
	db   *sql.DB
	path string
}

var _ driven.IndexStore = (*IndexStore)(nil)

// OpenIndexStore opens (creating if needed) the index snapshot in dir.
// Existing state that cannot be read yields domain.ErrStorageCorrupt.
func OpenIndexStore(dir string) (*IndexStore, error) {
	db, dbPath, err := openDatabase(dir, IndexFile, migrations.Index())
	if err != nil {
		return nil, err
	}
	return &IndexStore{db: db, path: dbPath}, nil
}

func (s *IndexStore) Path() string {
	return s.path
}

func (s *IndexStore) Close() error {
	return s.db.Close()
}

// ApplyChanges writes one mutation in a single transaction. Documents go
// first so chunk foreign keys resolve; deleting a document cascades to the
// chunks still referencing it.
func (s *IndexStore) ApplyChanges(ctx context.Context, changes driven.ChangeSet) error {
	if changes.Empty() {
		return nil
	}
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := saveDocuments(ctx, tx, changes.Documents); err != nil {
			return err
		}
		if err := saveChunks(ctx, tx, changes.Upserts); err != nil {
			return err
		}
		if err := deleteIDs(ctx, tx, "chunks", changes.Deletes); err != nil {
			return err
		}
		return deleteIDs(ctx, tx, "documents", changes.DeleteDocuments)
	})
	if err != nil {
		return fmt.Errorf("applying index changes: %w", err)
	}
	return nil
}

// deleteIDs removes rows of table by primary key. table is never user input.
func deleteIDs(ctx context.Context, tx *sql.Tx, table string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, "DELETE FROM "+table+" WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("deleting from %s: %w", table, err)
		}
	}
	return nil
}

func saveDocuments(ctx context.Context, tx *sql.Tx, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, uri, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			uri = excluded.uri,
			content = excluded.content,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range docs {
		doc := &docs[i]
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.URI, doc.Content,
			string(metadataJSON), createdAt.UTC().Format(timeLayout)); err != nil {
			return fmt.Errorf("saving document: %w", err)
		}
	}
	return nil
}

func saveChunks(ctx context.Context, tx *sql.Tx, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, source_id, content, position, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			source_id = excluded.source_id,
			content = excluded.content,
			position = excluded.position,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		chunk := &chunks[i]
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		var sourceID any
		if id, ok := chunk.SourceID(); ok {
			sourceID = id
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, sourceID, chunk.Content,
			chunk.Position, encodeVector(chunk.Embedding), string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}
	return nil
}

// LoadChunks returns every chunk in insertion order.
func (s *IndexStore) LoadChunks(ctx context.Context) ([]domain.Chunk, error) {
	return queryAll(ctx, s.db, "chunks", scanChunk, `
		SELECT id, document_id, content, position, embedding, metadata
		FROM chunks ORDER BY seq`)
}

func (s *IndexStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return queryAll(ctx, s.db, "documents", scanDocument, `
		SELECT id, uri, content, metadata, created_at
		FROM documents ORDER BY created_at, id`)
}

// queryAll scans every row of query with scan.
func queryAll[T any](ctx context.Context, db *sql.DB, what string, scan func(*sql.Rows) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapCorrupt("querying "+what, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapCorrupt("reading "+what, err)
	}
	return out, nil
}

// GetConfig returns the persisted configuration, or nil if none was saved.
func (s *IndexStore) GetConfig(ctx context.Context) (*domain.IndexConfig, error) {
	var cfg domain.IndexConfig
	err := s.db.QueryRowContext(ctx, `
		SELECT window_size, embedding_model, dimensions FROM index_config WHERE id = 1
	`).Scan(&cfg.WindowSize, &cfg.EmbeddingModel, &cfg.Dimensions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapCorrupt("reading index config", err)
	}
	return &cfg, nil
}

// SaveConfig persists the index configuration.
func (s *IndexStore) SaveConfig(ctx context.Context, cfg domain.IndexConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_config (id, window_size, embedding_model, dimensions, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			window_size = excluded.window_size,
			embedding_model = excluded.embedding_model,
			dimensions = excluded.dimensions,
			updated_at = excluded.updated_at
	`, cfg.WindowSize, cfg.EmbeddingModel, cfg.Dimensions, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("saving index config: %w", err)
	}
	return nil
}

// IndexStoreFactory opens SQLite index stores by directory.
type IndexStoreFactory struct{}

var _ driven.IndexStoreFactory = IndexStoreFactory{}

// Open opens the index store in dir.
func (IndexStoreFactory) Open(_ context.Context, dir string) (driven.IndexStore, error) {
	return OpenIndexStore(dir)
}

// Remove deletes the index directory and everything in it.
func (IndexStoreFactory) Remove(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing index directory: %w", err)
	}
	return nil
}

// scanChunk reports undecodable rows as domain.ErrStorageCorrupt.
func scanChunk(rows *sql.Rows) (domain.Chunk, error) {
	var (
		c    domain.Chunk
		blob []byte
		meta string
	)
	if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.Position, &blob, &meta); err != nil {
		return c, wrapCorrupt("scanning chunk", err)
	}
	var err error
	if c.Embedding, err = decodeVector(blob); err != nil {
		return c, corruptRow("chunk", c.ID, err)
	}
	if c.Metadata, err = decodeMetadata(meta); err != nil {
		return c, corruptRow("chunk", c.ID, err)
	}
	return c, nil
}

func scanDocument(rows *sql.Rows) (domain.Document, error) {
	var (
		d             domain.Document
		meta, created string
	)
	if err := rows.Scan(&d.ID, &d.URI, &d.Content, &meta, &created); err != nil {
		return d, wrapCorrupt("scanning document", err)
	}
	var err error
	if d.Metadata, err = decodeMetadata(meta); err != nil {
		return d, corruptRow("document", d.ID, err)
	}
	if t, err := time.Parse(timeLayout, created); err == nil {
		d.CreatedAt = t
	}
	return d, nil
}

func corruptRow(kind, id string, err error) error {
	return fmt.Errorf("%s %s: %w: %v", kind, id, domain.ErrStorageCorrupt, err)
}

func decodeMetadata(raw string) (map[string]any, error) {
	meta := make(map[string]any)
	if raw == "" || raw == jsonNull {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, err
	}
	return meta, nil
}
