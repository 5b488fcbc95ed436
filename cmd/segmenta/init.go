package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shivavenkatesh/segmenta/internal/ingest"
	"github.com/shivavenkatesh/segmenta/internal/store/sqlite"
)

// initService opens the store and creates the ingest service
func initService() (ingest.Service, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	chunkCfg, err := cfg.ChunkingConfig(logger)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.DBPath()
	store, err := sqlite.New(sqlite.Config{Path: dbPath})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	svc, err := ingest.NewService(store, ingest.Config{
		Chunking:       chunkCfg,
		EstimatorName:  cfg.Estimator.Name,
		IndexIgnore:    cfg.Index.Ignore,
		MaxFileSize:    cfg.Index.MaxFileSize,
		CodeAware:      cfg.Index.CodeAware,
		DefaultProject: getProject(),
		Logger:         logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	logger.Debug("service ready", "database", dbPath)
	return svc, nil
}

func getProject() string {
	if project != "" {
		return project
	}
	// Default to current directory name
	dir, err := os.Getwd()
	if err != nil {
		return "default"
	}
	if base := filepath.Base(dir); base != "." && base != string(os.PathSeparator) {
		return base
	}
	return "default"
}
