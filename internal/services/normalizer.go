package services

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizedSource is the canonical representation of a submission used by
// the rest of the pipeline. Lines preserve comments and whitespace so that
// feedback line numbers match what the student sees; Tokens is the
// comment-and-whitespace-stripped stream consumed only by the plagiarism
// detector.
type NormalizedSource struct {
	Language string
	Lines    []string
	Tokens   []string
}

// LineCount returns the number of source lines.
func (n *NormalizedSource) LineCount() int {
	return len(n.Lines)
}

var supportedLanguages = map[string]bool{
	"python": true,
	"java":   true,
	"cpp":    true,
}

// SupportedLanguage reports whether the given language tag is supported.
func SupportedLanguage(language string) bool {
	return supportedLanguages[strings.ToLower(strings.TrimSpace(language))]
}

// Normalize converts raw submitted bytes into a NormalizedSource. It is a
// pure function: no side effects, same input always yields the same output.
// Returns ErrUnsupportedLanguage for a language outside {python, java, cpp}.
func Normalize(raw []byte, language string) (*NormalizedSource, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	if !supportedLanguages[lang] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	text := string(raw)
	text = strings.ToValidUTF8(text, "�")
	text = strings.TrimPrefix(text, "\uFEFF") // BOM
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	// A trailing newline terminates the last line rather than opening a new one.
	lines := strings.Split(text, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return &NormalizedSource{
		Language: lang,
		Lines:    lines,
		Tokens:   tokenize(text, lang),
	}, nil
}

// tokenize strips comments and whitespace and splits the remaining text into
// tokens: identifier/number runs stay together, every other rune is its own
// token, string literals are kept as single tokens (quotes included).
func tokenize(text, language string) []string {
	var tokens []string
	runes := []rune(text)
	i := 0

	flushWord := func(start, end int) {
		if end > start {
			tokens = append(tokens, string(runes[start:end]))
		}
	}

	for i < len(runes) {
		r := runes[i]

		// Comments
		if language == "python" && r == '#' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			continue
		}
		if (language == "java" || language == "cpp") && r == '/' && i+1 < len(runes) {
			if runes[i+1] == '/' {
				for i < len(runes) && runes[i] != '\n' {
					i++
				}
				continue
			}
			if runes[i+1] == '*' {
				i += 2
				for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
					i++
				}
				i += 2
				if i > len(runes) {
					i = len(runes)
				}
				continue
			}
		}

		// String and char literals are one token each
		if r == '"' || r == '\'' {
			quote := r
			start := i
			i++
			for i < len(runes) && runes[i] != quote {
				if runes[i] == '\\' && i+1 < len(runes) {
					i++
				}
				i++
			}
			if i < len(runes) {
				i++
			}
			tokens = append(tokens, string(runes[start:i]))
			continue
		}

		if unicode.IsSpace(r) {
			i++
			continue
		}

		// Identifier or number run
		if isWordRune(r) {
			start := i
			for i < len(runes) && isWordRune(runes[i]) {
				i++
			}
			flushWord(start, i)
			continue
		}

		tokens = append(tokens, string(r))
		i++
	}

	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
