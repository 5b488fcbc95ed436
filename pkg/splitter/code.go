package splitter

import (
	"context"
	"sort"
	"strings"

	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
)

// codeRules describe where top-level declarations start in a language.
type codeRules struct {
	starts    []string // prefixes of a declaration line at column 0
	comment   string   // line comment marker; comments directly above stick to the declaration
	decorator string   // lines that attach to the next declaration
	braces    bool     // only count declarations outside braces
}

var codeLanguages = map[string]codeRules{
	"go": {
		starts:  []string{"func ", "type ", "var ", "const "},
		comment: "//",
		braces:  true,
	},
	"python": {
		starts:    []string{"def ", "async def ", "class "},
		comment:   "#",
		decorator: "@",
	},
	"javascript": {
		starts:  []string{"function ", "async function ", "class ", "export ", "const ", "let "},
		comment: "//",
		braces:  true,
	},
	"typescript": {
		starts:  []string{"function ", "async function ", "class ", "export ", "const ", "let ", "interface ", "type ", "enum "},
		comment: "//",
		braces:  true,
	},
}

// Code splits source code in front of top-level declarations, so a function
// or type stays in one piece together with the comment above it. Anything
// before the first declaration (package clause, imports) forms its own piece.
type Code struct {
	lang  string
	rules codeRules
}

// NewCode creates a code splitter for lang, one of CodeLanguages().
func NewCode(lang string) (*Code, error) {
	rules, ok := codeLanguages[lang]
	if !ok {
		return nil, chunkerr.Invalidf("no code splitter for language %q", lang)
	}
	return &Code{lang: lang, rules: rules}, nil
}

// CodeLanguages lists the languages NewCode accepts.
func CodeLanguages() []string {
	out := make([]string, 0, len(codeLanguages))
	for lang := range codeLanguages {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Language returns the language the splitter was built for.
func (c *Code) Language() string { return c.lang }

func (c *Code) String() string { return "code:" + c.lang }

// Split cuts text at declaration boundaries. The pieces concatenate to text.
func (c *Code) Split(_ context.Context, text string) ([]string, error) {
	if err := chunkerr.ValidateText(text); err != nil {
		return nil, err
	}
	return cutAt(text, c.boundaries(text)), nil
}

func (c *Code) boundaries(text string) []int {
	r := c.rules
	var out []int
	depth := 0
	commentStart := -1
	afterDecorator := false

	for offset := 0; offset < len(text); {
		line, next := text[offset:], len(text)
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line, next = line[:i], offset+i+1
		}

		top := depth == 0 && line != "" && line[0] != ' ' && line[0] != '\t'
		decorator := top && r.decorator != "" && strings.HasPrefix(line, r.decorator)

		switch {
		case top && strings.HasPrefix(line, r.comment):
			if commentStart < 0 {
				commentStart = offset
			}
		case decorator && afterDecorator:
			// Stacked decorators belong to the declaration below.
		case decorator || (top && r.declares(line)):
			if !afterDecorator {
				at := offset
				if commentStart >= 0 {
					at = commentStart
				}
				out = append(out, at)
			}
			commentStart = -1
		default:
			commentStart = -1
		}
		afterDecorator = decorator

		if r.braces {
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			if depth < 0 {
				depth = 0
			}
		}
		offset = next
	}
	return out
}

func (r codeRules) declares(line string) bool {
	for _, p := range r.starts {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// cutAt splits text at the given ascending offsets. A whitespace-only span
// is merged into the piece after it.
func cutAt(text string, offsets []int) []string {
	var pieces []string
	start := 0
	for _, at := range offsets {
		if at <= start || strings.TrimSpace(text[start:at]) == "" {
			continue
		}
		pieces = append(pieces, text[start:at])
		start = at
	}
	return append(pieces, text[start:])
}

// LanguageForExtension maps a file extension such as ".go" to a language
// name, or "" when the extension is unknown.
func LanguageForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".mjs", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".c", ".h":
		return "c"
	case ".rb":
		return "ruby"
	case ".md", ".markdown":
		return "markdown"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	case ".sql":
		return "sql"
	case ".sh", ".bash":
		return "shell"
	default:
		return ""
	}
}
