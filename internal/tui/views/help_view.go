package views

import (
	"fmt"

	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

func (hv *HelpView) Name() string { return "Help" }
func (hv *HelpView) Init()        {}
func (hv *HelpView) Start()       {}
func (hv *HelpView) Stop()        {}

func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

type helpEntry struct{ key, desc string }

var helpSections = []struct {
	title   string
	entries []helpEntry
}{
	{"Global Keys", []helpEntry{
		{":", "Command mode"},
		{"/", "Filter mode"},
		{"?", "Help"},
		{"q", "Quit / Back"},
		{"Esc", "Cancel / Go back"},
		{"Ctrl-C", "Quit immediately"},
	}},
	{"Conversation List", []helpEntry{
		{"Enter", "Open conversation"},
		{"1-9", "Jump to Nth conversation"},
		{"0", "Clear filter"},
		{"s", "Cycle sort mode"},
	}},
	{"Message Thread", []helpEntry{
		{"i", "Focus composer"},
		{"Enter", "Send message (in composer)"},
		{"d", "Conversation details"},
		{"c / v", "Voice / video call"},
	}},
	{"Incoming Call", []helpEntry{
		{"a", "Accept"},
		{"r", "Reject"},
	}},
	{"Active Call", []helpEntry{
		{"m", "Mute / unmute"},
		{"o", "Speaker / earpiece"},
		{"k", "Camera on / off"},
		{"w", "Switch camera"},
		{"e", "End call"},
	}},
	{"Commands (: mode)", []helpEntry{
		{":open <peer>", "Open conversation by id or name"},
		{":call [video]", "Call the open conversation"},
		{":block / :unblock", "Block the open conversation's peer"},
		{":mute / :unmute", "Mute the open conversation's peer"},
		{":help / :h", "Show this help"},
		{":quit / :q", "Quit application"},
	}},
}

func (hv *HelpView) render() {
	kc := colorName(hv.theme.MenuKeyColor)
	for _, s := range helpSections {
		_, _ = fmt.Fprintf(hv, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, e := range s.entries {
			_, _ = fmt.Fprintf(hv, "  [%s]%-18s[-:-:-] %s\n", kc, tview.Escape(e.key), e.desc)
		}
	}
}
