// Package store defines persistence for chunked documents.
package store

import (
	"context"
	"errors"

	"github.com/shivavenkatesh/segmenta/pkg/types"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Store persists documents and their chunks.
type Store interface {
	// AddDocument stores a document together with its chunks atomically.
	AddDocument(ctx context.Context, doc *types.Document, chunks []types.StoredChunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*types.Document, error)

	// ListDocuments returns documents with filtering and pagination.
	// Content is not loaded.
	ListDocuments(ctx context.Context, opts ListOptions) ([]*types.Document, error)

	// Chunks returns the chunks of a document in order.
	Chunks(ctx context.Context, documentID string) ([]types.StoredChunk, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// DeleteByProject removes every document of a project and returns how
	// many were deleted.
	DeleteByProject(ctx context.Context, project string) (int, error)

	// Count returns the number of documents, optionally filtered by project.
	Count(ctx context.Context, project string) (int, error)

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*types.StatsResponse, error)

	// Compact optimizes storage (VACUUM).
	Compact(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ListOptions configures listing queries.
type ListOptions struct {
	Project    string
	Source     string // prefix match
	Limit      int
	Offset     int
	OrderBy    string // "created_at", "source", "chunk_count"
	Descending bool
}
