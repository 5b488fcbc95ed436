package splitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/abadojack/whatlanggo"
	"github.com/charmbracelet/log"
	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/data"
	"github.com/neurosnap/sentences/english"

	"github.com/shivavenkatesh/segmenta/internal/cache"
	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
)

// LanguageDetector guesses the ISO 639-1 code of a text. It returns false
// when no guess can be made.
type LanguageDetector interface {
	Detect(text string) (string, bool)
}

// SentenceModel splits text into sentences for one language.
type SentenceModel interface {
	Sentences(text string) []string
}

// ModelLoader builds the sentence model for an ISO 639-1 language code.
// It returns an error wrapping chunkerr.ErrUnsupportedLanguage when the
// language has no model.
type ModelLoader func(lang string) (SentenceModel, error)

// Sentences splits text into sentences. The language is detected once per
// call and the matching model is loaded on first use, then kept for the life
// of the splitter.
type Sentences struct {
	textLimit int
	detector  LanguageDetector
	loader    ModelLoader
	fallback  string
	logger    *log.Logger
	models    *cache.LRU[string, SentenceModel]
}

// SentencesOption configures a Sentences splitter.
type SentencesOption func(*Sentences)

// WithTextLimit sets how many characters the model sees at once.
func WithTextLimit(limit int) SentencesOption {
	return func(s *Sentences) { s.textLimit = limit }
}

// WithLanguageDetector replaces the default whatlanggo detector.
func WithLanguageDetector(d LanguageDetector) SentencesOption {
	return func(s *Sentences) { s.detector = d }
}

// WithModelLoader replaces the default Punkt model loader.
func WithModelLoader(l ModelLoader) SentencesOption {
	return func(s *Sentences) { s.loader = l }
}

// WithFallbackLanguage makes unsupported or undetected languages fall back
// to lang with a warning instead of failing.
func WithFallbackLanguage(lang string) SentencesOption {
	return func(s *Sentences) { s.fallback = lang }
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *log.Logger) SentencesOption {
	return func(s *Sentences) { s.logger = l }
}

// WithModelCacheSize bounds the number of loaded models kept in memory.
func WithModelCacheSize(n int) SentencesOption {
	return func(s *Sentences) { s.models = cache.NewLRU[string, SentenceModel](n) }
}

// NewSentences creates a sentence splitter.
func NewSentences(opts ...SentencesOption) *Sentences {
	s := &Sentences{
		textLimit: DefaultTextLimit,
		detector:  WhatlangDetector{},
		loader:    LoadPunktModel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.textLimit <= 0 {
		s.textLimit = DefaultTextLimit
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.models == nil {
		s.models = cache.NewLRU[string, SentenceModel](0)
	}
	return s
}

// Split detects the language of text and splits it into sentences.
func (s *Sentences) Split(ctx context.Context, text string) ([]string, error) {
	if err := chunkerr.ValidateText(text); err != nil {
		return nil, err
	}

	model, err := s.modelFor(text)
	if err != nil {
		return nil, err
	}

	return splitWindowed(ctx, text, s.textLimit, func(_ context.Context, window string) ([]string, error) {
		return model.Sentences(window), nil
	})
}

// Languages returns the languages whose models are currently loaded.
func (s *Sentences) Languages() []string {
	langs := s.models.Keys()
	sort.Strings(langs)
	return langs
}

func (s *Sentences) modelFor(text string) (SentenceModel, error) {
	lang, ok := s.detector.Detect(text)
	if !ok {
		if s.fallback == "" {
			return nil, fmt.Errorf("%w: could not detect the language of the text", chunkerr.ErrUnsupportedLanguage)
		}
		s.logger.Warn("language not detected, using fallback", "fallback", s.fallback)
		return s.load(s.fallback)
	}

	model, err := s.load(lang)
	if err == nil || s.fallback == "" || s.fallback == lang {
		return model, err
	}
	if !isUnsupported(err) {
		return nil, err
	}
	s.logger.Warn("no sentence model for language, using fallback", "lang", lang, "fallback", s.fallback)
	return s.load(s.fallback)
}

func (s *Sentences) load(lang string) (SentenceModel, error) {
	return s.models.GetOrLoad(lang, func() (SentenceModel, error) {
		s.logger.Debug("loading sentence model", "lang", lang)
		return s.loader(lang)
	})
}

func isUnsupported(err error) bool {
	return err != nil && errors.Is(err, chunkerr.ErrUnsupportedLanguage)
}

// WhatlangDetector detects languages with whatlanggo.
type WhatlangDetector struct{}

// Detect returns the ISO 639-1 code of the most likely language.
func (WhatlangDetector) Detect(text string) (string, bool) {
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	return code, code != ""
}

// punktLanguages maps ISO 639-1 codes to the training sets bundled with
// neurosnap/sentences.
var punktLanguages = map[string]string{
	"cs": "czech",
	"da": "danish",
	"de": "german",
	"el": "greek",
	"en": "english",
	"es": "spanish",
	"et": "estonian",
	"fi": "finnish",
	"fr": "french",
	"it": "italian",
	"nl": "dutch",
	"no": "norwegian",
	"pl": "polish",
	"pt": "portuguese",
	"sl": "slovene",
	"sv": "swedish",
	"tr": "turkish",
}

// PunktLanguages lists the language codes LoadPunktModel supports.
func PunktLanguages() []string {
	langs := make([]string, 0, len(punktLanguages))
	for code := range punktLanguages {
		langs = append(langs, code)
	}
	sort.Strings(langs)
	return langs
}

// LoadPunktModel loads the Punkt sentence tokenizer for lang.
func LoadPunktModel(lang string) (SentenceModel, error) {
	name, ok := punktLanguages[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", chunkerr.ErrUnsupportedLanguage, lang)
	}

	if lang == "en" {
		tok, err := english.NewSentenceTokenizer(nil)
		if err != nil {
			return nil, chunkerr.MissingDependency("punkt:english", "the bundled English training data failed to load", err)
		}
		return punktModel{tok: tok}, nil
	}

	raw, err := data.Asset("data/" + name + ".json")
	if err != nil {
		return nil, chunkerr.MissingDependency("punkt:"+name, "no bundled training data for this language", err)
	}
	training, err := sentences.LoadTraining(raw)
	if err != nil {
		return nil, chunkerr.MissingDependency("punkt:"+name, "training data could not be decoded", err)
	}
	return punktModel{tok: sentences.NewSentenceTokenizer(training)}, nil
}

type punktModel struct {
	tok *sentences.DefaultSentenceTokenizer
}

func (m punktModel) Sentences(text string) []string {
	found := m.tok.Tokenize(text)
	out := make([]string, 0, len(found))
	for _, s := range found {
		out = append(out, s.Text)
	}
	return out
}
