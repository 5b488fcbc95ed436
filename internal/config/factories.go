package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
	"github.com/shivavenkatesh/segmenta/pkg/chunking"
	"github.com/shivavenkatesh/segmenta/pkg/estimator"
	"github.com/shivavenkatesh/segmenta/pkg/splitter"
)

// Estimator names.
const (
	EstimatorWord     = "word"
	EstimatorChar     = "char"
	EstimatorTiktoken = "tiktoken"
	EstimatorRemote   = "remote"
)

// Prefixes of parameterised splitter names: "sep:<literal>" and "code:<language>".
const (
	sepPrefix  = "sep:"
	codePrefix = "code:"
)

var namedSplitters = map[string]bool{
	"sentences":  true,
	"paragraphs": true,
	"newline":    true,
	"fullstop":   true,
	"semicolon":  true,
	"colon":      true,
	"comma":      true,
	"word":       true,
}

func knownEstimator(name string) bool {
	switch name {
	case "", EstimatorWord, EstimatorChar, EstimatorTiktoken, EstimatorRemote:
		return true
	}
	return false
}

func checkSplitterName(name string) error {
	if namedSplitters[name] {
		return nil
	}
	if strings.HasPrefix(name, sepPrefix) && len(name) > len(sepPrefix) {
		return nil
	}
	if lang, ok := strings.CutPrefix(name, codePrefix); ok {
		_, err := splitter.NewCode(lang)
		return err
	}
	return chunkerr.Invalidf("unknown splitter %q", name)
}

// BuildEstimator creates the size estimator named by cfg. Tiktoken is
// wrapped in a size cache when cache_size is set; the remote estimator
// caches on its own.
func BuildEstimator(cfg EstimatorConfig) (estimator.SizeEstimator, error) {
	switch cfg.Name {
	case "", EstimatorWord:
		return estimator.Word{}, nil
	case EstimatorChar:
		return estimator.Char{}, nil
	case EstimatorTiktoken:
		encoding := cfg.Encoding
		if encoding == "" {
			encoding = estimator.DefaultEncoding
		}
		t, err := estimator.NewTiktoken(encoding)
		if err != nil {
			return nil, err
		}
		if cfg.CacheSize > 0 {
			return estimator.NewCached(t, cfg.CacheSize), nil
		}
		return t, nil
	case EstimatorRemote:
		return estimator.NewRemote(estimator.RemoteConfig{
			BaseURL:   cfg.URL,
			CacheSize: cfg.CacheSize,
			Timeout:   cfg.Timeout,
		}), nil
	default:
		return nil, chunkerr.Invalidf("unknown estimator %q", cfg.Name)
	}
}

// BuildSplitters turns splitter names into splitters, in order. The result
// runs ahead of the default cascade.
func BuildSplitters(names []string, sc SentencesConfig, logger *log.Logger) ([]splitter.TextSplitter, error) {
	out := make([]splitter.TextSplitter, 0, len(names))
	for _, name := range names {
		s, err := buildSplitter(name, sc, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func buildSplitter(name string, sc SentencesConfig, logger *log.Logger) (splitter.TextSplitter, error) {
	switch name {
	case "sentences":
		opts := []splitter.SentencesOption{
			splitter.WithTextLimit(sc.TextLimit),
			splitter.WithFallbackLanguage(sc.FallbackLanguage),
		}
		if logger != nil {
			opts = append(opts, splitter.WithLogger(logger))
		}
		return splitter.NewSentences(opts...), nil
	case "paragraphs":
		return splitter.NewParagraphs(0), nil
	case "newline":
		return splitter.Newline, nil
	case "fullstop":
		return splitter.FullStop, nil
	case "semicolon":
		return splitter.Semicolon, nil
	case "colon":
		return splitter.Colon, nil
	case "comma":
		return splitter.Comma, nil
	case "word":
		return splitter.Word, nil
	}
	if sep, ok := strings.CutPrefix(name, sepPrefix); ok {
		return splitter.NewSeparator(sep)
	}
	if lang, ok := strings.CutPrefix(name, codePrefix); ok {
		return splitter.NewCode(lang)
	}
	return nil, chunkerr.Invalidf("unknown splitter %q", name)
}

// ChunkingConfig assembles a chunking.Config from c.
func (c *Config) ChunkingConfig(logger *log.Logger) (chunking.Config, error) {
	est, err := BuildEstimator(c.Estimator)
	if err != nil {
		return chunking.Config{}, fmt.Errorf("estimator: %w", err)
	}
	splitters, err := BuildSplitters(c.Splitters, c.Sentences, logger)
	if err != nil {
		return chunking.Config{}, fmt.Errorf("splitters: %w", err)
	}
	policy, err := chunking.ParseOverlapPolicy(c.OverlapPolicy)
	if err != nil {
		return chunking.Config{}, err
	}

	cfg := chunking.Config{
		ChunkSize:     c.ChunkSize,
		OverlapRatio:  c.OverlapRatio,
		SizeEstimator: est,
		TextSplitters: splitters,
		OverlapPolicy: policy,
		Logger:        logger,
	}
	return cfg, cfg.Validate()
}
