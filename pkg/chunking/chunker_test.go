package chunking

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
	"github.com/shivavenkatesh/segmenta/pkg/estimator"
	"github.com/shivavenkatesh/segmenta/pkg/splitter"
)

const overlapText = "In this unit test, we are evaluating the overlapping functionality. " +
	"This is a feature of the TextChunker class, which is important for a proper context keeping. " +
	"The goal is to ensure that overlapping chunks are generated correctly. " +
	"For this purpose, we have chosen a long text that exceeds 100 tokens. " +
	"By setting the overlap_percent to 0.4, we expect the generated chunks to have an overlap of approximately 40%. " +
	"This will help us verify the effectiveness of the overlapping feature. " +
	"The TextChunker class should be able to handle this scenario and produce the expected results. " +
	"Let's proceed with running the test and asserting the generated chunks for proper overlap. "

func mustChunk(t *testing.T, text string, cfg Config) Chunks {
	t.Helper()
	chunks, err := ChunkText(context.Background(), text, cfg)
	require.NoError(t, err)
	return chunks
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 0.0, cfg.OverlapRatio)
	assert.IsType(t, estimator.Word{}, cfg.SizeEstimator)
	assert.Equal(t, 0, cfg.OverlapSize())
	assert.Equal(t, EvictBeforeAdmit, cfg.OverlapPolicy)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero chunk size", Config{ChunkSize: 0}},
		{"negative chunk size", Config{ChunkSize: -1}},
		{"negative ratio", Config{ChunkSize: 10, OverlapRatio: -0.1}},
		{"ratio above one", Config{ChunkSize: 10, OverlapRatio: 1.5}},
		{"unknown policy", Config{ChunkSize: 10, OverlapPolicy: OverlapPolicy(7)}},
		{"nil splitter", Config{ChunkSize: 10, TextSplitters: []splitter.TextSplitter{nil}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecursiveChunker(tt.cfg)
			assert.ErrorIs(t, err, chunkerr.ErrInvalidConfig)
			_, err = NewFixedSizeChunker(tt.cfg)
			assert.ErrorIs(t, err, chunkerr.ErrInvalidConfig)
		})
	}
}

func TestConfig_OverlapSize(t *testing.T) {
	assert.Equal(t, 20, Config{ChunkSize: 50, OverlapRatio: 0.4}.OverlapSize())
	assert.Equal(t, 15, Config{ChunkSize: 50, OverlapRatio: 0.3}.OverlapSize())
	assert.Equal(t, 2, Config{ChunkSize: 5, OverlapRatio: 0.4}.OverlapSize())
	assert.Equal(t, 0, Config{OverlapRatio: 0.4}.OverlapSize())
	assert.Equal(t, 10, Config{ChunkSize: 10, OverlapRatio: 1}.OverlapSize())
}

func TestChunk_InvalidText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n", "bad\xffutf8"} {
		_, err := ChunkText(context.Background(), text, DefaultConfig())
		assert.ErrorIs(t, err, chunkerr.ErrInvalidText, "%q", text)
	}

	fixed, err := NewFixedSizeChunker(Config{ChunkSize: 3, SizeEstimator: estimator.Char{}})
	require.NoError(t, err)
	_, err = fixed.Chunk(context.Background(), "  ")
	assert.ErrorIs(t, err, chunkerr.ErrInvalidText)
}

func TestChunk_ShortText(t *testing.T) {
	chunks := mustChunk(t, "This is a short text.", Config{ChunkSize: 100})
	require.Len(t, chunks, 1)
	assert.Equal(t, "This is a short text.", chunks[0].Text())
	assert.Empty(t, chunks[0].Overlap)
}

func TestChunk_ShortTextIsTrimmedOnReadOut(t *testing.T) {
	chunks := mustChunk(t, "  padded text  ", Config{ChunkSize: 100})
	require.Len(t, chunks, 1)
	assert.Equal(t, "padded text", chunks[0].TrimmedText())
}

func TestChunk_CharEstimator(t *testing.T) {
	chunks := mustChunk(t, "This is a short text. This is another phrase.", Config{
		ChunkSize:     30,
		SizeEstimator: estimator.Char{},
	})
	assert.Equal(t, []string{"This is a short text. This is ", "another phrase."}, chunks.Texts())
	assert.Equal(t, []string{"This is a short text. This is", "another phrase."}, chunks.TrimmedTexts())
}

func TestChunk_WordEstimator(t *testing.T) {
	chunks := mustChunk(t, "This is a tokenized text. This is another phrase.", Config{ChunkSize: 5})
	assert.Equal(t, []string{"This is a tokenized text. ", "This is another phrase."}, chunks.Texts())
	assert.Equal(t, 5, chunks[0].Size())
	assert.Equal(t, 4, chunks[1].Size())
}

func TestChunk_LongText(t *testing.T) {
	sentence := "This is a very long text. "
	chunks := mustChunk(t, strings.Repeat(sentence, 16), Config{
		ChunkSize:     105,
		SizeEstimator: estimator.Char{},
	})

	four := strings.Repeat(sentence, 4)
	assert.Equal(t, []string{four, four, four, strings.TrimSuffix(four, " ")}, chunks.Texts())
	for _, c := range chunks {
		assert.LessOrEqual(t, c.Size(), 105)
	}
}

func TestChunk_CustomSplitterFirst(t *testing.T) {
	spaceDot, err := splitter.NewSeparator(" .")
	require.NoError(t, err)

	chunks := mustChunk(t, "This is a custom split strategy text . The separator is space and dot.", Config{
		ChunkSize:     10,
		TextSplitters: []splitter.TextSplitter{spaceDot},
	})
	assert.Equal(t, []string{"This is a custom split strategy text .", " The separator is space and dot."}, chunks.Texts())
}

func TestChunk_CustomEstimatorAndSplitter(t *testing.T) {
	dashes := estimator.Func(func(_ context.Context, text string) (int, error) {
		n := 0
		for _, p := range strings.Split(text, "-") {
			if p != "" {
				n++
			}
		}
		return n, nil
	})
	dash, err := splitter.NewSeparator("-")
	require.NoError(t, err)

	chunks := mustChunk(t, "This-is-a-custom-tokenized-text.", Config{
		ChunkSize:     2,
		SizeEstimator: dashes,
		TextSplitters: []splitter.TextSplitter{dash},
	})
	assert.Equal(t, []string{"This-is-", "a-custom-", "tokenized-text."}, chunks.Texts())
}

func TestChunk_Overlap(t *testing.T) {
	chunks := mustChunk(t, overlapText, Config{ChunkSize: 50, OverlapRatio: 0.4})
	require.Len(t, chunks, 3)

	assert.Equal(t, "In this unit test, we are evaluating the overlapping functionality. "+
		"This is a feature of the TextChunker class, which is important for a proper context keeping. "+
		"The goal is to ensure that overlapping chunks are generated correctly. For this purpose, ", chunks[0].Text())
	assert.Empty(t, chunks[0].Overlap)
	assert.Equal(t, 40, chunks[0].Size())

	assert.True(t, strings.HasPrefix(chunks[1].Text(), "we have chosen a long text"))
	assert.True(t, strings.HasSuffix(chunks[1].Text(), "handle this scenario and "))
	assert.Empty(t, chunks[1].Overlap)
	assert.Equal(t, 50, chunks[1].ContentSize())

	third := chunks[2]
	assert.Equal(t, "help us verify the effectiveness of the overlapping feature. "+
		"The TextChunker class should be able to handle this scenario and ", partsText(third.Overlap))
	assert.Equal(t, "produce the expected results. Let's proceed with running the test and "+
		"asserting the generated chunks for proper overlap.", partsText(third.Content))
	assert.Equal(t, 20, third.OverlapSize())
	assert.Equal(t, 18, third.ContentSize())
	assert.Equal(t, 38, third.Size())
	assert.Len(t, third.Content, 18)
}

func TestChunk_OverlapRatio(t *testing.T) {
	text := strings.ReplaceAll(strings.ReplaceAll(overlapText, "0.4", "0.3"), "40%", "30%")
	chunks := mustChunk(t, text, Config{ChunkSize: 50, OverlapRatio: 0.3})
	require.Len(t, chunks, 3)
	assert.True(t, strings.HasPrefix(chunks[2].Text(), "of the overlapping feature. The TextChunker class"))
	assert.LessOrEqual(t, chunks[2].OverlapSize(), 15)
}

func partsText(parts []TextPart) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func TestChunk_OverlapPolicies(t *testing.T) {
	text := "a, b, c d e, f, g, h, i"

	evict := mustChunk(t, text, Config{ChunkSize: 6, OverlapRatio: 0.34})
	require.Len(t, evict, 2)
	assert.Equal(t, "a, b, c d e, f, ", partsText(evict[0].Content))
	assert.Equal(t, "f, ", partsText(evict[1].Overlap))
	assert.Equal(t, "g, h, i", partsText(evict[1].Content))

	admit := mustChunk(t, text, Config{ChunkSize: 6, OverlapRatio: 0.34, OverlapPolicy: AdmitThenEvict})
	require.Len(t, admit, 2)
	assert.Equal(t, "b, f, ", partsText(admit[1].Overlap))
	assert.Equal(t, "g, h, i", partsText(admit[1].Content))
}

func TestParseOverlapPolicy(t *testing.T) {
	for name, want := range map[string]OverlapPolicy{
		"":                   EvictBeforeAdmit,
		"evict-before-admit": EvictBeforeAdmit,
		"Admit-Then-Evict":   AdmitThenEvict,
	} {
		got, err := ParseOverlapPolicy(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseOverlapPolicy("lifo")
	assert.ErrorIs(t, err, chunkerr.ErrInvalidConfig)
	assert.Equal(t, "admit-then-evict", AdmitThenEvict.String())
}

func TestChunk_OversizedPartIsKept(t *testing.T) {
	chunks := mustChunk(t, "tiny supercalifragilistic tiny", Config{ChunkSize: 5, SizeEstimator: estimator.Char{}})
	assert.Equal(t, []string{"tiny ", "supercalifragilistic ", "tiny"}, chunks.Texts())
	assert.Greater(t, chunks[1].Size(), 5)
}

func TestChunk_OverlapPlusFirstPartMayExceedSize(t *testing.T) {
	chunks := mustChunk(t, "a b cccc", Config{ChunkSize: 5, OverlapRatio: 0.4, SizeEstimator: estimator.Char{}})

	assert.Equal(t, []string{"a b ", "b cccc"}, chunks.Texts())
	assert.Equal(t, []TextPart{{Text: "b ", Size: 2}}, chunks[1].Overlap)
	assert.Len(t, chunks[1].Content, 1)
	assert.Equal(t, 6, chunks[1].Size())
}

func TestChunk_OversizedFirstPartOpensFirstChunk(t *testing.T) {
	chunks := mustChunk(t, "supercalifragilistic tiny", Config{ChunkSize: 5, SizeEstimator: estimator.Char{}})
	require.Len(t, chunks, 2)
	assert.Equal(t, "supercalifragilistic ", chunks[0].Text())
	for _, c := range chunks {
		assert.NotEmpty(t, c.Content)
	}
}

func TestChunk_ErrorsPropagate(t *testing.T) {
	boom := errors.New("model unavailable")

	failingSplitter := splitter.Func(func(context.Context, string) ([]string, error) { return nil, boom })
	_, err := ChunkText(context.Background(), "some text here", Config{
		ChunkSize:     2,
		TextSplitters: []splitter.TextSplitter{failingSplitter},
	})
	assert.ErrorIs(t, err, boom)

	failingEstimator := estimator.Func(func(context.Context, string) (int, error) { return 0, boom })
	_, err = ChunkText(context.Background(), "some text here", Config{ChunkSize: 10, SizeEstimator: failingEstimator})
	assert.ErrorIs(t, err, boom)

	unsupported := splitter.Func(func(context.Context, string) ([]string, error) {
		return nil, chunkerr.ErrUnsupportedLanguage
	})
	_, err = ChunkText(context.Background(), "some text here", Config{ChunkSize: 10, TextSplitters: []splitter.TextSplitter{unsupported}})
	assert.ErrorIs(t, err, chunkerr.ErrUnsupportedLanguage)

	negative := estimator.Func(func(context.Context, string) (int, error) { return -1, nil })
	_, err = ChunkText(context.Background(), "some text here", Config{ChunkSize: 10, SizeEstimator: negative})
	assert.Error(t, err)
}

func TestChunk_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ChunkText(ctx, "one two three four five", Config{ChunkSize: 2})
	assert.ErrorIs(t, err, context.Canceled)

	c, err := NewRecursiveChunker(Config{ChunkSize: 2})
	require.NoError(t, err)

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	var seen []string
	err = c.SplitText(ctx, "one two three four five", func(p TextPart) error {
		seen = append(seen, p.Text)
		if len(seen) == 2 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"one ", "two "}, seen)
}

func TestChunk_LastSplitterOutputAccepted(t *testing.T) {
	// Nothing below the word splitter, so a single word larger than the
	// budget is emitted as it is.
	c, err := NewRecursiveChunker(Config{ChunkSize: 3, SizeEstimator: estimator.Char{}})
	require.NoError(t, err)

	var parts []TextPart
	err = c.SplitText(context.Background(), "abcdefgh ij", func(p TextPart) error {
		parts = append(parts, p)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []TextPart{{Text: "abcdefgh ", Size: 9}, {Text: "ij", Size: 2}}, parts)
	assert.Len(t, c.Splitters(), 4)
}

func TestSplitText_StopsOnYieldError(t *testing.T) {
	c, err := NewRecursiveChunker(Config{ChunkSize: 1})
	require.NoError(t, err)

	stop := errors.New("stop")
	n := 0
	err = c.SplitText(context.Background(), "one two three four", func(TextPart) error {
		n++
		if n == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, n)
}

func TestFixedSizeChunker(t *testing.T) {
	tests := []struct {
		name      string
		estimator estimator.SizeEstimator
		size      int
		ratio     float64
		text      string
		want      []string
	}{
		{"words", estimator.Word{}, 2, 0, "Short text, with some additional content.", []string{"Short text, ", "with some ", "additional content."}},
		{"chars", estimator.Char{}, 10, 0, "abcdefghijABCDEFGHIJ1234567890", []string{"abcdefghij", "ABCDEFGHIJ", "1234567890"}},
		{"single chars", estimator.Char{}, 1, 0, "abc", []string{"a", "b", "c"}},
		{"chars with overlap", estimator.Char{}, 5, 0.4, "abcdefghij", []string{"abcde", "defgh", "ghij"}},
		{"cached chars", estimator.NewCached(estimator.Char{}, 16), 4, 0, "abcdefgh", []string{"abcd", "efgh"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewFixedSizeChunker(Config{ChunkSize: tt.size, OverlapRatio: tt.ratio, SizeEstimator: tt.estimator})
			require.NoError(t, err)
			chunks, err := c.Chunk(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, chunks.Texts())
		})
	}
}

func TestFixedSizeChunker_RequiresSegmenter(t *testing.T) {
	_, err := NewFixedSizeChunker(Config{
		ChunkSize:     10,
		SizeEstimator: estimator.Func(func(context.Context, string) (int, error) { return 1, nil }),
	})
	assert.ErrorIs(t, err, chunkerr.ErrInvalidConfig)
}

func TestChunks_Helpers(t *testing.T) {
	chunks := Chunks{
		{Content: []TextPart{{"a ", 1}, {"b ", 1}}},
		{Overlap: []TextPart{{"b ", 1}}, Content: []TextPart{{"c", 1}}},
	}
	assert.Equal(t, []string{"a b ", "b c"}, chunks.Texts())
	assert.Equal(t, []string{"a b", "b c"}, chunks.TrimmedTexts())
	assert.Equal(t, [][]TextPart{
		{{"a ", 1}, {"b ", 1}},
		{{"b ", 1}, {"c", 1}},
	}, chunks.TextParts())
	assert.Equal(t, []TextPart{{"a ", 1}, {"b ", 1}, {"c", 1}}, chunks.ContentParts())
	assert.Equal(t, 2, chunks[1].Size())
}

func randomText(r *rand.Rand, words int) string {
	vocab := []string{"alpha", "be", "c", "delta", "epsilonic", "phi", "gamma-ray", "x"}
	seps := []string{" ", " ", " ", ", ", "; ", ": ", ". "}
	var b strings.Builder
	for i := 0; i < words; i++ {
		b.WriteString(vocab[r.Intn(len(vocab))])
		b.WriteString(seps[r.Intn(len(seps))])
	}
	return b.String() + "end"
}

func TestChunk_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		text := randomText(r, 20+r.Intn(200))
		size := 3 + r.Intn(40)
		ratio := []float64{0, 0.1, 0.25, 0.5}[r.Intn(4)]
		est := []estimator.SizeEstimator{estimator.Word{}, estimator.Char{}}[r.Intn(2)]
		policy := []OverlapPolicy{EvictBeforeAdmit, AdmitThenEvict}[r.Intn(2)]

		cfg := Config{ChunkSize: size, OverlapRatio: ratio, SizeEstimator: est, OverlapPolicy: policy}
		c, err := NewRecursiveChunker(cfg)
		require.NoError(t, err)

		chunks, err := c.Chunk(ctx, text)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		var parts []TextPart
		require.NoError(t, c.SplitText(ctx, text, func(p TextPart) error {
			parts = append(parts, p)
			return nil
		}))
		assert.Equal(t, parts, chunks.ContentParts(), "content must reproduce the part sequence")

		for j, ch := range chunks {
			require.NotEmpty(t, ch.Content, "chunk %d is empty", j)
			// Only a chunk's first part may push it over the budget.
			if len(ch.Content) > 1 {
				assert.LessOrEqual(t, ch.Size(), size)
			}
			assert.LessOrEqual(t, ch.OverlapSize(), cfg.OverlapSize())
			if ratio == 0 || j == 0 {
				assert.Empty(t, ch.Overlap)
			}
			if policy == EvictBeforeAdmit && j > 0 && len(ch.Overlap) > 0 {
				prev := chunks[j-1].Parts()
				assert.Equal(t, prev[len(prev)-len(ch.Overlap):], ch.Overlap, "overlap must repeat the tail of the previous chunk")
			}
		}

		again, err := c.Chunk(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, chunks, again)
	}
}

func BenchmarkRecursiveChunker(b *testing.B) {
	text := randomText(rand.New(rand.NewSource(1)), 5000)
	c, err := NewRecursiveChunker(Config{ChunkSize: 200, OverlapRatio: 0.2})
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Chunk(ctx, text); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFixedSizeChunker(b *testing.B) {
	text := randomText(rand.New(rand.NewSource(1)), 5000)
	c, err := NewFixedSizeChunker(Config{ChunkSize: 200, OverlapRatio: 0.2, SizeEstimator: estimator.Char{}})
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Chunk(ctx, text); err != nil {
			b.Fatal(err)
		}
	}
}
