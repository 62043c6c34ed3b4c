package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/chatsync/internal/call"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// CallView shows the active call and its local controls.
type CallView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewCallView creates a new call view.
func NewCallView(theme *ui.Theme) *CallView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.CallBorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Call ")
	tv.SetTitleColor(theme.TitleColor)

	return &CallView{TextView: tv, theme: theme}
}

func (cv *CallView) Name() string { return "Call" }
func (cv *CallView) Init()        {}
func (cv *CallView) Start()       {}
func (cv *CallView) Stop()        {}

func (cv *CallView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "m", Description: "Mute"},
		{Key: "o", Description: "Speaker"},
		{Key: "k", Description: "Camera"},
		{Key: "w", Description: "Switch cam"},
		{Key: "e", Description: "End"},
	}
}

// Update renders the call, or an idle notice when sess is nil.
func (cv *CallView) Update(peerName string, sess *model.CallSession, ctl call.Controls) {
	cv.Clear()
	_, _ = fmt.Fprint(cv, cv.format(peerName, sess, ctl))
}

func (cv *CallView) format(peerName string, sess *model.CallSession, ctl call.Controls) string {
	if sess == nil {
		return "\nNo active call"
	}
	ct := colorName(cv.theme.CounterColor)

	kind := "Voice call"
	if sess.IsVideo {
		kind = "Video call"
	}
	state := "Ringing..."
	if sess.Status == model.CallAccepted {
		state = "Connected"
	}
	mic := "on"
	if ctl.Muted {
		mic = "muted"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n[::b]%s[-:-:-] with [%s]%s[-]\n%s\n\n", kind, ct, tview.Escape(sanitizeForTerminal(peerName)), state)
	fmt.Fprintf(&b, "Mic: [%s]%s[-]   Audio: [%s]%s[-]", ct, mic, ct, ctl.Audio)
	if sess.IsVideo {
		fmt.Fprintf(&b, "   Camera: [%s]%s[-]", ct, ctl.Camera)
	}
	b.WriteString("\n")
	return b.String()
}
