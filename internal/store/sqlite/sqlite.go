// Package sqlite stores chunked documents in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shivavenkatesh/segmenta/internal/store"
	"github.com/shivavenkatesh/segmenta/pkg/types"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements store.Store on SQLite.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Config configures the SQLite store.
type Config struct {
	Path string // Path to database file
}

var _ store.Store = (*Store)(nil)

// New opens (and creates if needed) the database at cfg.Path.
func New(cfg Config) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -16000",       // 16MB cache
		"PRAGMA temp_store = MEMORY",       // temp tables in memory
		"PRAGMA auto_vacuum = INCREMENTAL", // gradual space reclaim
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: cfg.Path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		source TEXT,
		content TEXT NOT NULL,
		estimator TEXT NOT NULL,
		chunk_size INTEGER NOT NULL,
		overlap_ratio REAL NOT NULL DEFAULT 0,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		metadata TEXT, -- JSON
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project);
	CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source);
	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS chunks (
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		text TEXT NOT NULL,
		size INTEGER NOT NULL,
		overlap_size INTEGER NOT NULL DEFAULT 0,
		overlap_parts TEXT, -- JSON
		content_parts TEXT, -- JSON
		PRIMARY KEY (document_id, idx)
	);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// AddDocument inserts doc and its chunks in one transaction.
func (s *Store) AddDocument(ctx context.Context, doc *types.Document, chunks []types.StoredChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadata, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return err
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	doc.ChunkCount = len(chunks)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, project, source, content, estimator, chunk_size, overlap_ratio, chunk_count, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		doc.ID,
		doc.Project,
		doc.Source,
		doc.Content,
		doc.Estimator,
		doc.ChunkSize,
		doc.OverlapRatio,
		doc.ChunkCount,
		metadata,
		doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, idx, text, size, overlap_size, overlap_parts, content_parts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		overlap, err := encodeParts(c.Overlap)
		if err != nil {
			return err
		}
		content, err := encodeParts(c.Content)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, doc.ID, i, c.Text, c.Size, c.OverlapSize, overlap, content); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	return tx.Commit()
}

const documentColumns = `id, project, source, content, estimator, chunk_size, overlap_ratio, chunk_count, metadata, created_at`

// GetDocument retrieves a document by ID, content included.
func (s *Store) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return doc, err
}

var orderColumns = map[string]string{
	"":            "created_at",
	"created_at":  "created_at",
	"source":      "source",
	"chunk_count": "chunk_count",
}

// ListDocuments returns documents without their content.
func (s *Store) ListDocuments(ctx context.Context, opts store.ListOptions) ([]*types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conditions := []string{"1=1"}
	args := []any{}

	if opts.Project != "" {
		conditions = append(conditions, "project = ?")
		args = append(args, opts.Project)
	}
	if opts.Source != "" {
		conditions = append(conditions, "source LIKE ?")
		args = append(args, opts.Source+"%")
	}

	orderBy, ok := orderColumns[opts.OrderBy]
	if !ok {
		return nil, fmt.Errorf("unsupported order column %q", opts.OrderBy)
	}
	order := "ASC"
	if opts.Descending {
		order = "DESC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT id, project, source, '', estimator, chunk_size, overlap_ratio, chunk_count, metadata, created_at
		FROM documents
		WHERE %s
		ORDER BY %s %s, id
		LIMIT ? OFFSET ?
	`, strings.Join(conditions, " AND "), orderBy, order)
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*types.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Chunks returns the chunks of a document ordered by index.
func (s *Store) Chunks(ctx context.Context, documentID string) ([]types.StoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE id = ?", documentID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, documentID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, idx, text, size, overlap_size, overlap_parts, content_parts
		FROM chunks WHERE document_id = ? ORDER BY idx
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []types.StoredChunk
	for rows.Next() {
		var c types.StoredChunk
		var overlap, content sql.NullString
		if err := rows.Scan(&c.DocumentID, &c.Index, &c.Text, &c.Size, &c.OverlapSize, &overlap, &content); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if c.Overlap, err = decodeParts(overlap); err != nil {
			return nil, err
		}
		if c.Content, err = decodeParts(content); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes a document and its chunks.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}

	return tx.Commit()
}

// DeleteByProject removes all documents of a project.
func (s *Store) DeleteByProject(ctx context.Context, project string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id IN (SELECT id FROM documents WHERE project = ?)", project)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks for project: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE project = ?", project)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents for project: %w", err)
	}
	n, _ := result.RowsAffected()

	return int(n), tx.Commit()
}

// Count returns the number of documents.
func (s *Store) Count(ctx context.Context, project string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	var err error
	if project == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE project = ?", project).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Stats returns storage statistics. Estimator is left for the caller.
func (s *Store) Stats(ctx context.Context) (*types.StatsResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &types.StatsResponse{DocumentsByProject: make(map[string]int)}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&stats.TotalDocuments); err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&stats.TotalChunks); err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT project, COUNT(*) FROM documents GROUP BY project")
	if err != nil {
		return nil, fmt.Errorf("failed to get project counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var project string
		var count int
		if err := rows.Scan(&project, &count); err != nil {
			return nil, fmt.Errorf("failed to scan project count: %w", err)
		}
		stats.DocumentsByProject[project] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	stats.ProjectCount = len(stats.DocumentsByProject)

	if info, err := os.Stat(s.path); err == nil {
		stats.StorageBytes = info.Size()
	}

	return stats, nil
}

// Compact optimizes storage.
func (s *Store) Compact(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases resources.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*types.Document, error) {
	var d types.Document
	var source, metadata sql.NullString

	err := row.Scan(
		&d.ID,
		&d.Project,
		&source,
		&d.Content,
		&d.Estimator,
		&d.ChunkSize,
		&d.OverlapRatio,
		&d.ChunkCount,
		&metadata,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Source = source.String
	if d.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}
	return &d, nil
}
