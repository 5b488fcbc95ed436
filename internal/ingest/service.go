// Package ingest chunks text and files and keeps the results in a store.
package ingest

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/shivavenkatesh/segmenta/internal/store"
	"github.com/shivavenkatesh/segmenta/pkg/chunking"
	"github.com/shivavenkatesh/segmenta/pkg/types"
)

// Chunking modes accepted in ChunkRequest.Mode.
const (
	ModeRecursive = "recursive"
	ModeFixed     = "fixed"
)

// Service orchestrates chunking and document storage.
type Service interface {
	// Chunk splits text without storing anything.
	Chunk(ctx context.Context, req types.ChunkRequest) (*types.ChunkResponse, error)

	// AddDocument chunks inline text and stores it as a document.
	AddDocument(ctx context.Context, req types.AddDocumentRequest) (*types.Document, error)

	// Index chunks a file or every indexable file below a directory.
	Index(ctx context.Context, req types.IndexRequest) (*types.IndexResponse, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*types.Document, error)

	// Chunks returns the stored chunks of a document.
	Chunks(ctx context.Context, id string) ([]types.StoredChunk, error)

	// List returns documents with filtering.
	List(ctx context.Context, opts store.ListOptions) ([]*types.Document, error)

	// Delete removes a document and its chunks.
	Delete(ctx context.Context, id string) error

	// DeleteByProject removes all documents of a project.
	DeleteByProject(ctx context.Context, project string) (int, error)

	// Stats returns store statistics.
	Stats(ctx context.Context) (*types.StatsResponse, error)

	// Close releases resources.
	Close() error
}

// Config configures the ingest service.
type Config struct {
	Chunking       chunking.Config // base chunker settings, overridable per request
	EstimatorName  string          // reported in documents and stats
	IndexIgnore    []string        // glob patterns skipped while indexing
	DefaultProject string
	MaxFileSize    int64 // bytes; larger files are skipped
	CodeAware      bool  // split source files at top-level declarations before the cascade
	Logger         *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Chunking:       chunking.DefaultConfig(),
		EstimatorName:  "word",
		IndexIgnore:    []string{".git", "node_modules", "vendor", "__pycache__", ".venv"},
		DefaultProject: "default",
		MaxFileSize:    4 << 20,
		CodeAware:      true,
	}
}
