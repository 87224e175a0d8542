// Package langdetect classifies user questions into the closed set of
// languages the answer pipelines have prompts and fallback messages for.
package langdetect

import (
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
)

// Language is the closed set of supported answer languages. Default covers
// every language without its own prompt and renders as English.
type Language int

const (
	// Default is used when detection fails or finds an unsupported language.
	Default Language = iota
	// French selects the French prompt and fallback message.
	French
	// English selects the English prompt and fallback message.
	English
	// Arabic selects the Arabic prompt and fallback message.
	Arabic
)

// String returns the ISO 639-1 code, or "default".
func (l Language) String() string {
	switch l {
	case French:
		return "fr"
	case English:
		return "en"
	case Arabic:
		return "ar"
	case Default:
		return "default"
	}
	return "default"
}

// Detect returns the language of text. It never fails: empty, numeric, or
// otherwise unclassifiable input yields Default.
func Detect(text string) Language {
	text = strings.TrimSpace(text)
	if text == "" {
		return Default
	}

	info := whatlanggo.Detect(text)
	switch info.Lang {
	case whatlanggo.Fra:
		return French
	case whatlanggo.Eng:
		return English
	case whatlanggo.Arb:
		return Arabic
	}

	// Short Arabic-script input is often labelled Persian or Urdu.
	if info.Script == unicode.Arabic {
		return Arabic
	}
	return Default
}
