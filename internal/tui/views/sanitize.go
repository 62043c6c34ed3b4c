package views

import (
	"strings"
	"unicode/utf8"
)

// sanitizeForTerminal removes codepoints that tcell/tview render badly or
// that could drive the terminal:
// - C0/C1 control characters other than newline and tab (ESC sequences)
// - skin tone modifiers (U+1F3FB..U+1F3FF) that create multi-codepoint emoji
// - zero width joiner (U+200D) used in emoji sequences like family/couple emoji
// - variation selectors that modify preceding characters
// This turns e.g. 👍🏻 into 👍 which renders correctly as a 2-cell-wide character.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isProblematicRune(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r == '\n' || r == '\t':
		return false
	case r < 0x20 || (r >= 0x7F && r <= 0x9F):
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}
