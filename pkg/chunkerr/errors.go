// Package chunkerr defines the errors shared by the chunking packages.
//
// Callers match them with errors.Is; the concrete MissingDependencyError
// can be extracted with errors.As to read the install hint.
package chunkerr

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidConfig is returned when a chunker, splitter or estimator is
	// constructed with unusable parameters.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidText is returned for empty, whitespace-only or non UTF-8 input.
	ErrInvalidText = errors.New("invalid text")

	// ErrUnsupportedLanguage is returned by semantic splitters when no model
	// exists for the detected language and no fallback is configured.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrMissingDependency is the sentinel behind MissingDependencyError.
	ErrMissingDependency = errors.New("missing dependency")
)

// MissingDependencyError reports a backend that could not be loaded.
type MissingDependencyError struct {
	Dependency string
	Hint       string
	Err        error
}

func (e *MissingDependencyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "missing dependency %q", e.Dependency)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Hint != "" {
		b.WriteString(" (")
		b.WriteString(e.Hint)
		b.WriteString(")")
	}
	return b.String()
}

func (e *MissingDependencyError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMissingDependency}
	}
	return []error{ErrMissingDependency, e.Err}
}

// MissingDependency builds a MissingDependencyError.
func MissingDependency(dependency, hint string, err error) error {
	return &MissingDependencyError{Dependency: dependency, Hint: hint, Err: err}
}

// Invalidf wraps ErrInvalidConfig with a formatted reason.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// ValidateText rejects text that no splitter can work with.
func ValidateText(text string) error {
	switch {
	case text == "":
		return fmt.Errorf("%w: text is empty", ErrInvalidText)
	case !utf8.ValidString(text):
		return fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidText)
	case strings.TrimSpace(text) == "":
		return fmt.Errorf("%w: text contains only whitespace", ErrInvalidText)
	}
	return nil
}
