// Package sanitize turns display titles into names that are safe to use as
// download filenames on every common filesystem.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// maxBaseLength keeps generated names well below filesystem limits.
	maxBaseLength = 120
)

var (
	reservedRegex   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	windowsReserved = map[string]bool{
		"con": true, "prn": true, "aux": true, "nul": true,
		"com1": true, "com2": true, "com3": true, "com4": true,
		"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
	}
)

// Normalizer cleans titles for filesystem use.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Filename returns a filesystem-safe version of title, or fallback when
// nothing usable remains. ext is appended verbatim.
func (n *Normalizer) Filename(title, fallback, ext string) string {
	base := n.basicNormalize(title)
	if base == "" || windowsReserved[strings.ToLower(base)] {
		base = fallback
	}
	return base + ext
}

func (n *Normalizer) basicNormalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = reservedRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	text = strings.Trim(text, " .")

	if len(text) > maxBaseLength {
		text = truncateRunes(text, maxBaseLength)
	}

	return text
}

// truncateRunes cuts s to at most limit bytes without splitting a rune.
func truncateRunes(s string, limit int) string {
	cut := 0
	for i := range s {
		if i > limit {
			break
		}
		cut = i
	}
	return strings.TrimRight(s[:cut], " .")
}
