package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rivo/tview"
)

const (
	menuRows     = 6
	menuColWidth = 20
)

// Menu displays keyboard shortcut hints in columns of up to six rows.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint bar.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders menu hints column by column.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, m.layout(hints))
}

func (m *Menu) layout(hints []MenuHint) string {
	keyColor := colorName(m.theme.MenuKeyColor)
	numColor := colorName(m.theme.NumericKeyColor)

	rows := min(len(hints), menuRows)
	var b strings.Builder
	for r := 0; r < rows; r++ {
		for i := r; i < len(hints); i += rows {
			h := hints[i]
			kc := keyColor
			if h.Numeric {
				kc = numColor
			}
			plain := "<" + h.Key + "> " + h.Description
			fmt.Fprintf(&b, "[%s::b]<%s>[-:-:-] %s", kc, tview.Escape(h.Key), tview.Escape(h.Description))
			if i+rows < len(hints) {
				b.WriteString(strings.Repeat(" ", max(1, menuColWidth-utf8.RuneCountInString(plain))))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
