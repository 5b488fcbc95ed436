package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shivavenkatesh/segmenta/internal/cache"
	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
)

// Remote counts tokens with a tokenizer served over HTTP. The server must
// accept POST {path} with {"inputs": "...", "add_special_tokens": false} and
// answer with a list of token lists, the format used by Hugging Face
// text-embeddings-inference.
type Remote struct {
	baseURL    string
	path       string
	httpClient *http.Client
	cache      *cache.SizeCache

	requests atomic.Int64
	latency  atomic.Int64 // microseconds
}

// RemoteConfig configures a Remote estimator.
type RemoteConfig struct {
	BaseURL   string
	Path      string
	CacheSize int
	Timeout   time.Duration
}

// RemoteStats reports request counters.
type RemoteStats struct {
	Requests     int64       `json:"requests" yaml:"requests"`
	AvgLatencyMs float64     `json:"avg_latency_ms" yaml:"avg_latency_ms"`
	Cache        cache.Stats `json:"cache" yaml:"cache"`
}

type tokenizeRequest struct {
	Inputs           string `json:"inputs"`
	AddSpecialTokens bool   `json:"add_special_tokens"`
}

// DefaultRemoteConfig reads SEGMENTA_TOKENIZER_URL and falls back to a local
// text-embeddings-inference instance.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		BaseURL:   getEnvOrDefault("SEGMENTA_TOKENIZER_URL", "http://localhost:8080"),
		Path:      "/tokenize",
		CacheSize: 4096,
		Timeout:   10 * time.Second,
	}
}

// NewRemote creates a Remote estimator. Missing fields take their defaults.
func NewRemote(cfg RemoteConfig) *Remote {
	def := DefaultRemoteConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	return &Remote{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		path:       cfg.Path,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache.NewSizeCache(cfg.CacheSize),
	}
}

// EstimateSize returns the number of tokens the server produces for text.
func (r *Remote) EstimateSize(ctx context.Context, text string) (int, error) {
	if n, ok := r.cache.Get(text); ok {
		return n, nil
	}

	start := time.Now()

	body, err := json.Marshal(tokenizeRequest{Inputs: text})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+r.path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call tokenizer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("tokenizer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	n, err := countTokens(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to parse tokenizer response: %w", err)
	}

	r.requests.Add(1)
	r.latency.Add(time.Since(start).Microseconds())
	r.cache.Put(text, n)

	return n, nil
}

// countTokens walks [[tok, tok, ...]] without materialising the tokens.
func countTokens(rd io.Reader) (int, error) {
	dec := json.NewDecoder(rd)

	for i := 0; i < 2; i++ {
		t, err := dec.Token()
		if err != nil {
			return 0, err
		}
		if d, ok := t.(json.Delim); !ok || d != '[' {
			return 0, fmt.Errorf("unexpected token %v", t)
		}
	}

	n := 0
	for dec.More() {
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// Ping checks that the tokenizer is reachable.
func (r *Remote) Ping(ctx context.Context) error {
	if _, err := r.EstimateSize(ctx, "ping"); err != nil {
		return chunkerr.MissingDependency(
			"tokenizer at "+r.baseURL,
			"start a text-embeddings-inference server or set SEGMENTA_TOKENIZER_URL",
			err,
		)
	}
	return nil
}

// Stats returns request and cache counters.
func (r *Remote) Stats() RemoteStats {
	s := RemoteStats{Requests: r.requests.Load(), Cache: r.cache.Stats()}
	if s.Requests > 0 {
		s.AvgLatencyMs = float64(r.latency.Load()) / float64(s.Requests) / 1000
	}
	return s
}

// Close releases idle connections.
func (r *Remote) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
