// Package i18n holds the page's user-visible strings per language.
package i18n

import (
	"fmt"
	"slices"
)

const (
	// DefaultLanguage is used for unknown languages and missing keys.
	DefaultLanguage = "en"
	// BerneseGermanMessages is the Bernese Swiss German table.
	BerneseGermanMessages = "ch_be"
)

var catalogs = map[string]map[string]string{
	DefaultLanguage:       englishMessages,
	BerneseGermanMessages: berneseGermanMessages,
}

// Localizer looks up messages in one language, falling back to English.
type Localizer struct {
	language string
	messages map[string]string
	fallback map[string]string
}

// NewLocalizer returns a Localizer for language. Unsupported languages
// resolve every key from the English table.
func NewLocalizer(language string) *Localizer {
	return &Localizer{
		language: language,
		messages: getMessages(language),
		fallback: englishMessages,
	}
}

// T returns the message for key formatted with args, or key itself when no
// table has it.
func (l *Localizer) T(key string, args ...any) string {
	msg, ok := l.messages[key]
	if !ok {
		if msg, ok = l.fallback[key]; !ok {
			return key
		}
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// Language returns the requested language code.
func (l *Localizer) Language() string {
	return l.language
}

// IsSupported reports whether language has its own table.
func IsSupported(language string) bool {
	_, ok := catalogs[language]
	return ok
}

// GetSupportedLanguages lists the language codes, default first.
func GetSupportedLanguages() []string {
	langs := make([]string, 0, len(catalogs))
	for lang := range catalogs {
		if lang != DefaultLanguage {
			langs = append(langs, lang)
		}
	}
	slices.Sort(langs)
	return append([]string{DefaultLanguage}, langs...)
}

func getMessages(language string) map[string]string {
	if msgs, ok := catalogs[language]; ok {
		return msgs
	}
	return englishMessages
}
