package i18n

import (
	"strings"
	"testing"
)

func TestTablesHaveSameKeys(t *testing.T) {
	for _, lang := range GetSupportedLanguages() {
		msgs := getMessages(lang)
		for key := range englishMessages {
			if _, ok := msgs[key]; !ok {
				t.Errorf("%s: missing key %q", lang, key)
			}
		}
		for key := range msgs {
			if _, ok := englishMessages[key]; !ok {
				t.Errorf("%s: key %q has no English message", lang, key)
			}
		}
	}
}

func TestKeyPrefixes(t *testing.T) {
	prefixes := []string{"error.", "page.", "player.", "button.", "link."}

	for key := range englishMessages {
		valid := false
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) && len(key) > len(p) {
				valid = true
				break
			}
		}
		if !valid {
			t.Errorf("key %q has none of the prefixes %v", key, prefixes)
		}
	}
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		key  string
		want int
	}{
		{"error.playback", 1},
		{"page.presented_by", 1},
		{"player.position", 2},
		{"error.not_found", 0},
		{"error.rate_limited", 0},
	}

	for _, tt := range tests {
		for _, lang := range GetSupportedLanguages() {
			msg := getMessages(lang)[tt.key]
			if got := strings.Count(msg, "%s") + strings.Count(msg, "%d"); got != tt.want {
				t.Errorf("%s %q: %d placeholders, want %d (%q)", lang, tt.key, got, tt.want, msg)
			}
		}
	}
}

func TestLocalizerT(t *testing.T) {
	tests := []struct {
		name string
		lang string
		key  string
		args []any
		want string
	}{
		{"english", DefaultLanguage, "error.no_identifier", nil, "No audio ID provided in URL!"},
		{"not found", DefaultLanguage, "error.not_found", nil, "Audio not found"},
		{"retry", DefaultLanguage, "button.retry", nil, "Try Again"},
		{"copied", DefaultLanguage, "button.copied", nil, "Copied!"},
		{"with args", DefaultLanguage, "player.position", []any{"1:05", "3:20"}, "1:05 / 3:20"},
		{"bernese", BerneseGermanMessages, "error.not_found", nil, "Audio nid gfunde"},
		{"unknown key", DefaultLanguage, "no.such.key", nil, "no.such.key"},
		{"unsupported language", "xx", "button.share", nil, "Share"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewLocalizer(tt.lang).T(tt.key, tt.args...); got != tt.want {
				t.Errorf("T(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLocalizerFallsBackPerKey(t *testing.T) {
	l := NewLocalizer(BerneseGermanMessages)
	l.messages = map[string]string{}

	if got := l.T("button.share"); got != "Share" {
		t.Errorf("missing Bernese key should fall back to English, got %q", got)
	}
	if got := l.Language(); got != BerneseGermanMessages {
		t.Errorf("Language() = %q", got)
	}
}

func TestSupportedLanguages(t *testing.T) {
	langs := GetSupportedLanguages()
	if len(langs) == 0 || langs[0] != DefaultLanguage {
		t.Fatalf("GetSupportedLanguages() = %v, want %s first", langs, DefaultLanguage)
	}

	for _, lang := range langs {
		if !IsSupported(lang) {
			t.Errorf("IsSupported(%q) = false", lang)
		}
	}
	if IsSupported("xx") {
		t.Error("IsSupported(xx) = true")
	}
}

func BenchmarkLocalizerWithArgs(b *testing.B) {
	l := NewLocalizer(DefaultLanguage)
	for i := 0; i < b.N; i++ {
		_ = l.T("page.presented_by", "BCASONLINE")
	}
}
