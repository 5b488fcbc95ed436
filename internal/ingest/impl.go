package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/shivavenkatesh/segmenta/internal/store"
	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
	"github.com/shivavenkatesh/segmenta/pkg/chunking"
	"github.com/shivavenkatesh/segmenta/pkg/splitter"
	"github.com/shivavenkatesh/segmenta/pkg/types"
)

// serviceImpl implements the Service interface
type serviceImpl struct {
	store   store.Store
	chunker *chunking.RecursiveChunker
	config  Config
	logger  *log.Logger
}

// NewService creates a new ingest service. The base chunking settings are
// validated up front.
func NewService(st store.Store, cfg Config) (Service, error) {
	def := DefaultConfig()
	if cfg.DefaultProject == "" {
		cfg.DefaultProject = def.DefaultProject
	}
	if cfg.EstimatorName == "" {
		cfg.EstimatorName = def.EstimatorName
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = def.MaxFileSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	cfg.Chunking.Logger = logger

	ch, err := chunking.NewRecursiveChunker(cfg.Chunking)
	if err != nil {
		return nil, err
	}

	return &serviceImpl{
		store:   st,
		chunker: ch,
		config:  cfg,
		logger:  logger,
	}, nil
}

// overrides carries per-request chunking settings; zero values keep the
// service configuration.
type overrides struct {
	mode      string
	chunkSize int
	ratio     *float64
	policy    string
	code      string // language of a code splitter to put first
}

func (o overrides) isZero() bool {
	return (o.mode == "" || o.mode == ModeRecursive) && o.chunkSize == 0 && o.ratio == nil && o.policy == "" && o.code == ""
}

// chunkerFor returns the shared chunker or, when the request overrides
// anything, a fresh one.
func (s *serviceImpl) chunkerFor(o overrides) (chunking.Chunker, chunking.Config, error) {
	cfg := s.config.Chunking
	if o.isZero() {
		return s.chunker, cfg, nil
	}

	if o.chunkSize < 0 {
		return nil, cfg, chunkerr.Invalidf("chunk size must be positive, got %d", o.chunkSize)
	}
	if o.chunkSize > 0 {
		cfg.ChunkSize = o.chunkSize
	}
	if o.ratio != nil {
		cfg.OverlapRatio = *o.ratio
	}
	if o.policy != "" {
		policy, err := chunking.ParseOverlapPolicy(o.policy)
		if err != nil {
			return nil, cfg, err
		}
		cfg.OverlapPolicy = policy
	}
	if o.code != "" {
		code, err := splitter.NewCode(o.code)
		if err != nil {
			return nil, cfg, err
		}
		cfg.TextSplitters = append([]splitter.TextSplitter{code}, cfg.TextSplitters...)
	}

	switch o.mode {
	case "", ModeRecursive:
		c, err := chunking.NewRecursiveChunker(cfg)
		return c, cfg, err
	case ModeFixed:
		c, err := chunking.NewFixedSizeChunker(cfg)
		return c, cfg, err
	default:
		return nil, cfg, chunkerr.Invalidf("unknown chunking mode %q", o.mode)
	}
}

// Chunk splits text without storing anything.
func (s *serviceImpl) Chunk(ctx context.Context, req types.ChunkRequest) (*types.ChunkResponse, error) {
	start := time.Now()

	ch, _, err := s.chunkerFor(overrides{
		mode:      req.Mode,
		chunkSize: req.ChunkSize,
		ratio:     req.OverlapRatio,
		policy:    req.OverlapPolicy,
	})
	if err != nil {
		return nil, err
	}

	chunks, err := ch.Chunk(ctx, req.Text)
	if err != nil {
		return nil, err
	}

	stored := types.NewStoredChunks("", chunks, req.Trim)
	if !req.IncludeParts {
		for i := range stored {
			stored[i].Overlap = nil
			stored[i].Content = nil
		}
	}

	return &types.ChunkResponse{
		Chunks: stored,
		Total:  len(stored),
		Timing: time.Since(start).Milliseconds(),
	}, nil
}

// AddDocument chunks inline text and stores it as a document.
func (s *serviceImpl) AddDocument(ctx context.Context, req types.AddDocumentRequest) (*types.Document, error) {
	o := overrides{chunkSize: req.ChunkSize, ratio: req.OverlapRatio}
	doc, _, err := s.persist(ctx, req.Text, "", s.project(req.Project), req.Metadata, o)
	return doc, err
}

// persist chunks text and stores it as one document.
func (s *serviceImpl) persist(ctx context.Context, text, source, project string, metadata map[string]string, o overrides) (*types.Document, int, error) {
	ch, cfg, err := s.chunkerFor(o)
	if err != nil {
		return nil, 0, err
	}

	chunks, err := ch.Chunk(ctx, text)
	if err != nil {
		return nil, 0, err
	}

	doc := &types.Document{
		ID:           uuid.New().String(),
		Project:      project,
		Source:       source,
		Content:      text,
		Estimator:    s.config.EstimatorName,
		ChunkSize:    cfg.ChunkSize,
		OverlapRatio: cfg.OverlapRatio,
		Metadata:     metadata,
		CreatedAt:    time.Now(),
	}

	stored := types.NewStoredChunks(doc.ID, chunks, false)
	if err := s.store.AddDocument(ctx, doc, stored); err != nil {
		return nil, 0, fmt.Errorf("failed to store document: %w", err)
	}

	return doc, len(stored), nil
}

func (s *serviceImpl) project(p string) string {
	if p == "" {
		return s.config.DefaultProject
	}
	return p
}

// Index chunks a file or every indexable file below a directory.
func (s *serviceImpl) Index(ctx context.Context, req types.IndexRequest) (*types.IndexResponse, error) {
	start := time.Now()

	if req.Path == "" {
		return nil, fmt.Errorf("%w: path is required", chunkerr.ErrInvalidConfig)
	}

	// Expand ~ to home directory
	path := req.Path
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	o := overrides{chunkSize: req.ChunkSize, ratio: req.OverlapRatio}
	if _, _, err := s.chunkerFor(o); err != nil {
		return nil, err
	}

	resp := &types.IndexResponse{Documents: []string{}}
	project := s.project(req.Project)

	if info.IsDir() {
		err = s.indexDirectory(ctx, path, project, req.Metadata, o, resp)
	} else {
		err = s.indexFile(ctx, path, project, req.Metadata, o, resp)
	}
	if err != nil {
		return nil, err
	}

	resp.Timing = time.Since(start).Milliseconds()
	return resp, nil
}

// indexDirectory walks dir; files that fail are logged and listed as skipped.
func (s *serviceImpl) indexDirectory(ctx context.Context, dir, project string, metadata map[string]string, o overrides, resp *types.IndexResponse) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil // Skip entries we can't access
		}

		if path != dir && s.ignored(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if !isIndexableFile(strings.ToLower(filepath.Ext(path))) {
			return nil
		}

		if err := s.indexFile(ctx, path, project, metadata, o, resp); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			s.logger.Warn("failed to index file", "path", path, "err", err)
			resp.Skipped = append(resp.Skipped, path)
		}
		return nil
	})
}

func (s *serviceImpl) ignored(name string) bool {
	for _, pattern := range s.config.IndexIgnore {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

func (s *serviceImpl) indexFile(ctx context.Context, path, project string, metadata map[string]string, o overrides, resp *types.IndexResponse) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > s.config.MaxFileSize {
		return fmt.Errorf("file is %d bytes, limit is %d", info.Size(), s.config.MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	meta := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["extension"] = ext
	if lang := splitter.LanguageForExtension(ext); lang != "" {
		meta["language"] = lang
		if s.config.CodeAware && hasCodeSplitter(lang) {
			o.code = lang
		}
	}

	doc, n, err := s.persist(ctx, string(data), path, project, meta, o)
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", path, err)
	}

	s.logger.Debug("indexed file", "path", path, "chunks", n)
	resp.Documents = append(resp.Documents, doc.ID)
	resp.Chunks += n
	return nil
}

// Get retrieves a document by ID.
func (s *serviceImpl) Get(ctx context.Context, id string) (*types.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// Chunks returns the stored chunks of a document.
func (s *serviceImpl) Chunks(ctx context.Context, id string) ([]types.StoredChunk, error) {
	return s.store.Chunks(ctx, id)
}

// List returns documents with filtering.
func (s *serviceImpl) List(ctx context.Context, opts store.ListOptions) ([]*types.Document, error) {
	return s.store.ListDocuments(ctx, opts)
}

// Delete removes a document by ID.
func (s *serviceImpl) Delete(ctx context.Context, id string) error {
	return s.store.DeleteDocument(ctx, id)
}

// DeleteByProject removes all documents of a project.
func (s *serviceImpl) DeleteByProject(ctx context.Context, project string) (int, error) {
	return s.store.DeleteByProject(ctx, project)
}

// Stats returns store statistics.
func (s *serviceImpl) Stats(ctx context.Context) (*types.StatsResponse, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stats.Estimator = s.config.EstimatorName
	return stats, nil
}

// Close releases the estimator, if it holds resources, and the store.
func (s *serviceImpl) Close() error {
	if c, ok := s.chunker.SizeEstimator().(io.Closer); ok {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return s.store.Close()
}

func hasCodeSplitter(lang string) bool {
	for _, l := range splitter.CodeLanguages() {
		if l == lang {
			return true
		}
	}
	return false
}

var indexableExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".rst":      true,
	".adoc":     true,
	".org":      true,
	".tex":      true,
	".html":     true,
	".htm":      true,
	".csv":      true,
	".json":     true,
	".yaml":     true,
	".yml":      true,
	".toml":     true,
	".go":       true,
	".py":       true,
	".js":       true,
	".ts":       true,
	".java":     true,
	".rs":       true,
	".c":        true,
	".h":        true,
	".rb":       true,
	".sh":       true,
	".sql":      true,
}

// isIndexableFile returns true if the file extension holds text worth chunking
func isIndexableFile(ext string) bool {
	return indexableExts[ext]
}
