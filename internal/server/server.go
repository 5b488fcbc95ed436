// Package server provides the HTTP API for segmenta
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/shivavenkatesh/segmenta/internal/ingest"
	"github.com/shivavenkatesh/segmenta/internal/store"
	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
	"github.com/shivavenkatesh/segmenta/pkg/types"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 32 << 20

// Server is the HTTP API server
type Server struct {
	svc    ingest.Service
	config Config
	logger *log.Logger
	server *http.Server
}

// Config configures the server
type Config struct {
	Host    string
	Port    int
	Version string
	Logger  *log.Logger
}

// New creates a new server
func New(svc ingest.Service, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &Server{
		svc:    svc,
		config: cfg,
		logger: logger,
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/chunk", s.handleChunk)
	mux.HandleFunc("/index", s.handleIndex)
	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/documents/", s.handleDocumentByID)
	mux.HandleFunc("/projects", s.handleProjects)
	mux.HandleFunc("/projects/", s.handleProjectByName)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/health", s.handleHealth)

	return corsMiddleware(s.logMiddleware(mux))
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for browser clients
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
	})
}

// handleChunk handles POST /chunk
func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req types.ChunkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.svc.Chunk(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, resp, http.StatusOK)
}

// handleIndex handles POST /index
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req types.IndexRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.svc.Index(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, resp, http.StatusOK)
}

// handleDocuments handles GET /documents (list) and POST /documents (add)
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		opts, err := listOptions(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		docs, err := s.svc.List(r.Context(), opts)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if docs == nil {
			docs = []*types.Document{}
		}
		writeJSON(w, map[string]any{"documents": docs, "total": len(docs)}, http.StatusOK)

	case http.MethodPost:
		var req types.AddDocumentRequest
		if !decodeBody(w, r, &req) {
			return
		}
		doc, err := s.svc.AddDocument(r.Context(), req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, doc, http.StatusCreated)

	default:
		methodNotAllowed(w)
	}
}

// handleDocumentByID handles GET/DELETE /documents/:id and GET /documents/:id/chunks
func (s *Server) handleDocumentByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/documents/"), "/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, "document ID required", http.StatusBadRequest)
		return
	}

	switch {
	case sub == "chunks":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		chunks, err := s.svc.Chunks(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if chunks == nil {
			chunks = []types.StoredChunk{}
		}
		writeJSON(w, map[string]any{"chunks": chunks, "total": len(chunks)}, http.StatusOK)

	case sub != "":
		writeError(w, "not found", http.StatusNotFound)

	case r.Method == http.MethodGet:
		doc, err := s.svc.Get(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, doc, http.StatusOK)

	case r.Method == http.MethodDelete:
		if err := s.svc.Delete(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]bool{"deleted": true}, http.StatusOK)

	default:
		methodNotAllowed(w)
	}
}

// handleProjects handles GET /projects (list projects with document counts)
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	projects := make([]string, 0, len(stats.DocumentsByProject))
	for p := range stats.DocumentsByProject {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	writeJSON(w, map[string]any{"projects": projects, "documents": stats.DocumentsByProject}, http.StatusOK)
}

// handleProjectByName handles DELETE /projects/:name
func (s *Server) handleProjectByName(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/projects/"), "/")
	if name == "" {
		writeError(w, "project name required", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}

	n, err := s.svc.DeleteByProject(r.Context(), name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]int{"deleted": n}, http.StatusOK)
}

// handleStats handles GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, stats, http.StatusOK)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "version": s.config.Version}, http.StatusOK)
}

func listOptions(r *http.Request) (store.ListOptions, error) {
	q := r.URL.Query()
	opts := store.ListOptions{
		Project:    q.Get("project"),
		Source:     q.Get("source"),
		OrderBy:    q.Get("order_by"),
		Descending: q.Get("desc") == "true",
	}
	var err error
	if v := q.Get("limit"); v != "" {
		if opts.Limit, err = strconv.Atoi(v); err != nil {
			return opts, fmt.Errorf("invalid limit %q", v)
		}
	}
	if v := q.Get("offset"); v != "" {
		if opts.Offset, err = strconv.Atoi(v); err != nil {
			return opts, fmt.Errorf("invalid offset %q", v)
		}
	}
	return opts, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chunkerr.ErrInvalidText), errors.Is(err, chunkerr.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, chunkerr.ErrUnsupportedLanguage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeError(w, err.Error(), status)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, map[string]string{"error": message}, status)
}
