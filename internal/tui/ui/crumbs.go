package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Crumbs is a breadcrumb bar showing the current navigation path, followed by
// a badge while a call is in progress.
type Crumbs struct {
	*tview.TextView
	theme *Theme
	trail []Crumb
	call  string
}

// NewCrumbs creates a new breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders trail, the last crumb being the active page.
func (c *Crumbs) Update(trail []Crumb) {
	c.trail = trail
	c.render()
}

// SetCall shows label as the call badge; empty hides it. Rendering only
// happens when the badge changes.
func (c *Crumbs) SetCall(label string) {
	if label == c.call {
		return
	}
	c.call = label
	c.render()
}

func (c *Crumbs) render() {
	c.Clear()
	var parts []string
	for i, cr := range c.trail {
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == len(c.trail)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]",
			colorName(fg), colorName(bg), attr, tview.Escape(cr.Label)))
	}
	line := strings.Join(parts, " > ")
	if c.call != "" {
		line += fmt.Sprintf("  [%s::b]● %s[-:-:-]", colorName(c.theme.CallBorderColor), tview.Escape(c.call))
	}
	_, _ = fmt.Fprint(c, line)
}

// colorName returns a tview-compatible color name string.
func colorName(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
