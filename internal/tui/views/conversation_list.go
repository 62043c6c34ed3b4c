package views

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// SortMode orders the conversation list.
type SortMode int

const (
	SortRecent SortMode = iota
	SortUnread
	SortName
)

func (m SortMode) String() string {
	switch m {
	case SortUnread:
		return "unread"
	case SortName:
		return "name"
	default:
		return "recent"
	}
}

// ConversationList is the main conversation table.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	all     []model.ConversationSummary
	visible []model.ConversationSummary
	filter  string
	sort    SortMode
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{
		Table: table,
		theme: theme,
	}
}

func (cl *ConversationList) Name() string { return "Conversations" }
func (cl *ConversationList) Init()        {}
func (cl *ConversationList) Start()       {}
func (cl *ConversationList) Stop()        {}

func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "s", Description: "Sort"},
		{Key: "0-9", Description: "Jump", Numeric: true},
	}
}

// Update replaces the list. The selected peer stays selected when present.
func (cl *ConversationList) Update(list []model.ConversationSummary) {
	selected := cl.SelectedPeer()
	cl.all = list
	cl.render()
	cl.selectPeer(selected)
}

// SetFilter sets the active filter text and re-renders.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter clears the active filter.
func (cl *ConversationList) ClearFilter() {
	cl.SetFilter("")
}

// CycleSort switches to the next sort mode and returns it.
func (cl *ConversationList) CycleSort() SortMode {
	cl.sort = (cl.sort + 1) % 3
	cl.render()
	return cl.sort
}

func (cl *ConversationList) matches(c model.ConversationSummary) bool {
	if cl.filter == "" {
		return true
	}
	f := strings.ToLower(cl.filter)
	return strings.Contains(strings.ToLower(displayName(c)), f) ||
		strings.Contains(strings.ToLower(c.LastMessage), f)
}

func (cl *ConversationList) arrange() []model.ConversationSummary {
	var out []model.ConversationSummary
	for _, c := range cl.all {
		if cl.matches(c) {
			out = append(out, c)
		}
	}
	switch cl.sort {
	case SortUnread:
		slices.SortStableFunc(out, func(a, b model.ConversationSummary) int {
			return cmp.Compare(b.UnreadCount, a.UnreadCount)
		})
	case SortName:
		slices.SortStableFunc(out, func(a, b model.ConversationSummary) int {
			return strings.Compare(strings.ToLower(displayName(a)), strings.ToLower(displayName(b)))
		})
	}
	return out
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" UNREAD", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	cl.visible = cl.arrange()
	for i, c := range cl.visible {
		row := i + 1
		attrs := tcell.AttrNone
		unread := ""
		if c.UnreadCount > 0 {
			attrs = tcell.AttrBold
			unread = fmt.Sprint(c.UnreadCount)
		}
		last := c.LastMessage
		if c.LastSenderID != "" && c.LastSenderID != c.PeerID {
			last = "You: " + last
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(displayName(c)))).SetExpansion(1).SetTextColor(cl.theme.FgColor).SetAttributes(attrs))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(last))).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(formatTimestamp(c.LastTimestamp)).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		cl.SetCell(row, 3, tview.NewTableCell(unread).SetTextColor(cl.theme.CounterColor).SetAlign(tview.AlignRight))
	}

	title := fmt.Sprintf(" Conversations (%d) <%s> ", len(cl.all), cl.sort)
	if cl.filter != "" {
		title = fmt.Sprintf(" Conversations (%d/%d) <%s> filter: %s ", len(cl.visible), len(cl.all), cl.sort, tview.Escape(cl.filter))
	}
	cl.SetTitle(title)
}

// SelectedPeer returns the peer id of the selected row.
func (cl *ConversationList) SelectedPeer() string {
	row, _ := cl.GetSelection()
	return cl.PeerByIndex(row)
}

// PeerByIndex returns the peer id of the Nth visible conversation (1-based).
func (cl *ConversationList) PeerByIndex(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1].PeerID
}

func (cl *ConversationList) selectPeer(peer string) {
	for i, c := range cl.visible {
		if c.PeerID == peer {
			cl.Select(i+1, 0)
			return
		}
	}
}

func displayName(c model.ConversationSummary) string {
	if c.PeerName != "" {
		return c.PeerName
	}
	return c.PeerID
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
