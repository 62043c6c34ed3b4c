package views

import (
	"fmt"

	"github.com/matheus3301/chatsync/internal/call"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// CallPrompt is the incoming-call modal.
type CallPrompt struct {
	*tview.Modal
	theme    *ui.Theme
	incoming call.IncomingCall
	onAnswer func(c call.IncomingCall, accept bool)
}

// NewCallPrompt creates the modal. It is shown through ui.Pages overlays.
func NewCallPrompt(theme *ui.Theme) *CallPrompt {
	m := tview.NewModal().
		AddButtons([]string{"Accept", "Reject"})
	m.SetBorderColor(theme.CallBorderColor)
	m.SetBackgroundColor(theme.BgColor)
	m.SetTextColor(theme.FgColor)
	m.SetTitle(" Incoming Call ")
	m.SetTitleColor(theme.TitleColor)

	cp := &CallPrompt{Modal: m, theme: theme}
	m.SetDoneFunc(func(_ int, label string) {
		if cp.onAnswer == nil || label == "" {
			return
		}
		cp.onAnswer(cp.incoming, label == "Accept")
	})
	return cp
}

// SetOnAnswer sets the callback for the Accept/Reject buttons.
func (cp *CallPrompt) SetOnAnswer(fn func(c call.IncomingCall, accept bool)) {
	cp.onAnswer = fn
}

// Show loads c into the modal.
func (cp *CallPrompt) Show(c call.IncomingCall) {
	cp.incoming = c
	cp.SetText(cp.text(c))
	cp.SetFocus(0)
}

// Incoming returns the call the modal currently shows.
func (cp *CallPrompt) Incoming() call.IncomingCall {
	return cp.incoming
}

// CallID returns the id of the call the modal currently shows.
func (cp *CallPrompt) CallID() string {
	return cp.incoming.ID
}

func (cp *CallPrompt) text(c call.IncomingCall) string {
	kind := "Voice call"
	if c.IsVideo {
		kind = "Video call"
	}
	return fmt.Sprintf("%s from\n%s", kind, sanitizeForTerminal(c.Caller.DisplayName()))
}
