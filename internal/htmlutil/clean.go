package htmlutil

import (
	"strings"

	"github.com/k3a/html2text"
)

// ToText converts HTML to plain text using a proper HTML parser.
// Handles entities, strips tags, and preserves readable text.
func ToText(s string) string {
	return html2text.HTML2Text(s)
}

// Excerpt converts HTML to a single line of text, collapsing whitespace and
// truncating to at most maxRunes runes with a trailing ellipsis.
func Excerpt(s string, maxRunes int) string {
	text := strings.Join(strings.Fields(ToText(s)), " ")
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:maxRunes-1])) + "…"
}
