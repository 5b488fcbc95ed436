package estimator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
)

func TestChar(t *testing.T) {
	ctx := context.Background()
	var c Char

	n, err := c.EstimateSize(ctx, "héllo")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	segs, err := c.Segment(ctx, "aé b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "é", " ", "b"}, segs)
}

func TestWord_EstimateSize(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"This is a tokenized text.", 5},
		{"  leading and trailing  ", 3},
		{"one\ttwo\nthree", 3},
		{"single", 1},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			n, err := Word{}.EstimateSize(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestWord_Segment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"sentence", "Short text, with some additional content.", []string{"Short ", "text, ", "with ", "some ", "additional ", "content."}},
		{"leading whitespace", "  a b", []string{"  a ", "b"}},
		{"trailing whitespace", "a b\n", []string{"a ", "b\n"}},
		{"whitespace only", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs, err := Word{}.Segment(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, segs)
			assert.Equal(t, strings.TrimSpace(tt.text), strings.TrimSpace(strings.Join(segs, "")))
		})
	}
}

func TestFunc(t *testing.T) {
	dash := Func(func(_ context.Context, text string) (int, error) {
		return len(strings.Split(text, "-")), nil
	})
	n, err := dash.EstimateSize(context.Background(), "a-b-c")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAsSegmenter(t *testing.T) {
	_, ok := AsSegmenter(Word{})
	assert.True(t, ok)

	_, ok = AsSegmenter(NewCached(Char{}, 10))
	assert.True(t, ok, "cached wrapper should expose the inner segmenter")

	_, ok = AsSegmenter(Func(func(context.Context, string) (int, error) { return 0, nil }))
	assert.False(t, ok)

	_, ok = AsSegmenter(nil)
	assert.False(t, ok)
}

func TestCached(t *testing.T) {
	var calls atomic.Int32
	inner := Func(func(_ context.Context, text string) (int, error) {
		calls.Add(1)
		if text == "bad" {
			return 0, errors.New("boom")
		}
		return len(text), nil
	})
	c := NewCached(inner, 8)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n, err := c.EstimateSize(ctx, "abcd")
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	}
	assert.Equal(t, int32(1), calls.Load())

	_, err := c.EstimateSize(ctx, "bad")
	require.Error(t, err)
	_, err = c.EstimateSize(ctx, "bad")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int64(2), c.Stats().Hits)
}

func newTokenizerServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/tokenize" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req tokenizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type token struct {
			ID   int    `json:"id"`
			Text string `json:"text"`
		}
		tokens := []token{}
		for i, f := range strings.Fields(req.Inputs) {
			tokens = append(tokens, token{ID: i, Text: f})
		}
		_ = json.NewEncoder(w).Encode([][]token{tokens})
	}))
}

func TestRemote_EstimateSize(t *testing.T) {
	var requests atomic.Int32
	srv := newTokenizerServer(t, &requests)
	defer srv.Close()

	r := NewRemote(RemoteConfig{BaseURL: srv.URL + "/"})
	defer r.Close()
	ctx := context.Background()

	n, err := r.EstimateSize(ctx, "one two three")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = r.EstimateSize(ctx, "one two three")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int32(1), requests.Load(), "second call should hit the cache")

	require.NoError(t, r.Ping(ctx))
	stats := r.Stats()
	assert.Equal(t, int64(2), stats.Requests)
	assert.Equal(t, int64(1), stats.Cache.Hits)
}

func TestRemote_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewRemote(RemoteConfig{BaseURL: srv.URL})
	_, err := r.EstimateSize(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "model not loaded")

	err = r.Ping(context.Background())
	assert.ErrorIs(t, err, chunkerr.ErrMissingDependency)
}

func TestCountTokens(t *testing.T) {
	n, err := countTokens(strings.NewReader(`[[{"id":1},{"id":2}]]`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = countTokens(strings.NewReader(`[[]]`))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = countTokens(strings.NewReader(`{"error":"x"}`))
	assert.Error(t, err)
}

func TestTiktoken(t *testing.T) {
	tk, err := NewTiktoken("")
	if err != nil {
		require.ErrorIs(t, err, chunkerr.ErrMissingDependency)
		t.Skipf("BPE ranks unavailable: %v", err)
	}
	ctx := context.Background()

	n, err := tk.EstimateSize(ctx, "hello world")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	text := "Grüße, 世界! tokens"
	segs, err := tk.Segment(ctx, text)
	require.NoError(t, err)
	assert.Equal(t, text, strings.Join(segs, ""))
	assert.Equal(t, DefaultEncoding, tk.Encoding())
}

func TestTiktoken_UnknownEncoding(t *testing.T) {
	_, err := NewTiktoken("definitely-not-an-encoding")
	require.Error(t, err)
	assert.ErrorIs(t, err, chunkerr.ErrMissingDependency)
}

func BenchmarkWord_Segment(b *testing.B) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 200)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Word{}.Segment(ctx, text)
	}
}
