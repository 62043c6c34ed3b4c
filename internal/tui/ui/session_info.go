package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// SessionData holds session information for display.
type SessionData struct {
	Session       string
	Status        string
	Conversations int
	Unread        int64
	Call          string
	Uptime        time.Duration
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	fg := colorName(si.theme.FgColor)
	counter := colorName(si.theme.CounterColor)

	callState := data.Call
	if callState == "" {
		callState = "-"
	}
	statusColor := counter
	if data.Status != "READY" {
		statusColor = colorName(si.theme.FlashWarnColor)
	}

	row := func(label, color, value string) string {
		return fmt.Sprintf("[%s::b]%-8s[-:-:-] [%s]%s[-]\n", fg, label, color, tview.Escape(value))
	}
	_, _ = fmt.Fprint(si,
		row("User:", counter, data.Session),
		row("Status:", statusColor, data.Status),
		row("Chats:", counter, fmt.Sprint(data.Conversations)),
		row("Unread:", counter, fmt.Sprint(data.Unread)),
		row("Call:", counter, callState),
		row("Uptime:", counter, formatDuration(data.Uptime)),
	)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
