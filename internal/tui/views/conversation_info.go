package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/relation"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationInfo displays the peer's profile and the relationship between
// the two users.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Conversation Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{
		TextView: tv,
		theme:    theme,
	}
}

func (ci *ConversationInfo) Name() string { return "Details" }
func (ci *ConversationInfo) Init()        {}
func (ci *ConversationInfo) Start()       {}
func (ci *ConversationInfo) Stop()        {}

func (ci *ConversationInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "b", Description: "Block/Unblock"},
		{Key: "m", Description: "Mute"},
		{Key: "u", Description: "Unmute"},
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders details for peer. summary may be zero for a conversation
// with no messages yet.
func (ci *ConversationInfo) Update(peer model.UserProfile, summary model.ConversationSummary, v relation.Verdict) {
	ci.Clear()
	_, _ = fmt.Fprint(ci, ci.format(peer, summary, v))
	ci.SetTitle(fmt.Sprintf(" %s Details ", tview.Escape(peer.DisplayName())))
}

func (ci *ConversationInfo) format(peer model.UserProfile, summary model.ConversationSummary, v relation.Verdict) string {
	fg := colorName(ci.theme.FgColor)
	ct := colorName(ci.theme.CounterColor)

	lastActive := formatTimestamp(summary.LastTimestamp)
	if lastActive == "" {
		lastActive = "-"
	}
	online := "hidden"
	if peer.OnlineStatusVisible {
		online = "offline"
		if peer.Available {
			online = "online"
		}
	}
	rel := "ok"
	if !v.Allowed() {
		rel = v.Reason()
	}

	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, " [%s::b]%-14s[-:-:-] [%s]%s[-]\n", fg, label, ct, tview.Escape(sanitizeForTerminal(value)))
	}
	b.WriteString("\n")
	row("Name:", peer.DisplayName())
	row("User ID:", peer.ID)
	row("Email:", orDash(peer.Email))
	row("Presence:", online)
	row("Relationship:", rel)
	row("Unread:", fmt.Sprint(summary.UnreadCount))
	row("Last Active:", lastActive)
	row("Last Message:", orDash(summary.LastMessage))
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
