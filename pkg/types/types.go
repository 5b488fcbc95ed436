// Package types defines the data exchanged between segmenta's service,
// storage and transport layers.
package types

import (
	"time"

	"github.com/shivavenkatesh/segmenta/pkg/chunking"
)

// Document is a chunked text kept in the store.
type Document struct {
	ID           string            `json:"id" yaml:"id"`
	Project      string            `json:"project" yaml:"project"`
	Source       string            `json:"source,omitempty" yaml:"source,omitempty"` // file path, empty for inline text
	Content      string            `json:"content,omitempty" yaml:"content,omitempty"`
	Estimator    string            `json:"estimator" yaml:"estimator"`
	ChunkSize    int               `json:"chunk_size" yaml:"chunk_size"`
	OverlapRatio float64           `json:"overlap_ratio" yaml:"overlap_ratio"`
	ChunkCount   int               `json:"chunk_count" yaml:"chunk_count"`
	Metadata     map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at" yaml:"created_at"`
}

// StoredChunk is one chunk of a Document.
type StoredChunk struct {
	DocumentID  string              `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	Index       int                 `json:"index" yaml:"index"`
	Text        string              `json:"text" yaml:"text"`
	Size        int                 `json:"size" yaml:"size"`
	OverlapSize int                 `json:"overlap_size" yaml:"overlap_size"`
	Overlap     []chunking.TextPart `json:"overlap,omitempty" yaml:"overlap,omitempty"`
	Content     []chunking.TextPart `json:"content,omitempty" yaml:"content,omitempty"`
}

// NewStoredChunks converts chunker output. With trim set the chunk text is
// trimmed of surrounding whitespace; parts are kept as produced.
func NewStoredChunks(documentID string, chunks chunking.Chunks, trim bool) []StoredChunk {
	out := make([]StoredChunk, len(chunks))
	for i, c := range chunks {
		text := c.Text()
		if trim {
			text = c.TrimmedText()
		}
		out[i] = StoredChunk{
			DocumentID:  documentID,
			Index:       i,
			Text:        text,
			Size:        c.Size(),
			OverlapSize: c.OverlapSize(),
			Overlap:     c.Overlap,
			Content:     c.Content,
		}
	}
	return out
}

// ChunkRequest asks for text to be chunked. Zero values select the
// service defaults.
type ChunkRequest struct {
	Text          string   `json:"text"`
	ChunkSize     int      `json:"chunk_size,omitempty"`
	OverlapRatio  *float64 `json:"overlap_ratio,omitempty"`
	OverlapPolicy string   `json:"overlap_policy,omitempty"`
	Mode          string   `json:"mode,omitempty"` // "recursive" (default) or "fixed"
	Trim          bool     `json:"trim,omitempty"`
	IncludeParts  bool     `json:"include_parts,omitempty"`
}

// ChunkResponse is the result of a ChunkRequest.
type ChunkResponse struct {
	Chunks []StoredChunk `json:"chunks" yaml:"chunks"`
	Total  int           `json:"total" yaml:"total"`
	Timing int64         `json:"timing_ms" yaml:"timing_ms"`
}

// IndexRequest asks for a file or directory to be chunked and stored.
type IndexRequest struct {
	Path         string            `json:"path"`
	Project      string            `json:"project"`
	ChunkSize    int               `json:"chunk_size,omitempty"`
	OverlapRatio *float64          `json:"overlap_ratio,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// IndexResponse summarises an IndexRequest.
type IndexResponse struct {
	Documents []string `json:"documents" yaml:"documents"`
	Chunks    int      `json:"chunks" yaml:"chunks"`
	Skipped   []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Timing    int64    `json:"timing_ms" yaml:"timing_ms"`
}

// AddDocumentRequest stores inline text as a document.
type AddDocumentRequest struct {
	Text         string            `json:"text"`
	Project      string            `json:"project"`
	ChunkSize    int               `json:"chunk_size,omitempty"`
	OverlapRatio *float64          `json:"overlap_ratio,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// StatsResponse describes the store contents.
type StatsResponse struct {
	TotalDocuments     int            `json:"total_documents" yaml:"total_documents"`
	TotalChunks        int            `json:"total_chunks" yaml:"total_chunks"`
	DocumentsByProject map[string]int `json:"documents_by_project" yaml:"documents_by_project"`
	ProjectCount       int            `json:"project_count" yaml:"project_count"`
	Estimator          string         `json:"estimator" yaml:"estimator"`
	StorageBytes       int64          `json:"storage_bytes" yaml:"storage_bytes"`
}
