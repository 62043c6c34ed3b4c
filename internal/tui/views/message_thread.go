package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/inbox"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread displays messages and a composer for a single conversation.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	self     string
	messages *tview.TextView
	composer *tview.InputField
	peerName string
	peerID   string
	onSend   func(text string)
}

// NewMessageThread creates a new message thread view for user self.
func NewMessageThread(theme *ui.Theme, self string) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		self:     self,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mt.onSend != nil {
			text := strings.TrimSpace(composer.GetText())
			if text != "" {
				mt.onSend(text)
				composer.SetText("")
			}
		}
	})

	return mt
}

func (mt *MessageThread) Name() string {
	if mt.peerName != "" {
		return mt.peerName
	}
	return "Messages"
}

func (mt *MessageThread) Init()  {}
func (mt *MessageThread) Start() {}
func (mt *MessageThread) Stop()  {}

func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "d", Description: "Details"},
		{Key: "c", Description: "Voice call"},
		{Key: "v", Description: "Video call"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetPeer sets the conversation's peer and title.
func (mt *MessageThread) SetPeer(id, name string) {
	mt.peerID = id
	mt.peerName = name
	if name == "" {
		mt.peerName = id
	}
	mt.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(mt.peerName)))
}

// PeerID returns the current peer.
func (mt *MessageThread) PeerID() string {
	return mt.peerID
}

// SetOnSend sets the callback when a message is sent.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// Update renders msgs, which are ordered oldest first.
func (mt *MessageThread) Update(msgs []model.Message) {
	mt.messages.Clear()
	_, _ = fmt.Fprint(mt.messages, mt.format(msgs))
	mt.messages.ScrollToEnd()
}

func (mt *MessageThread) format(msgs []model.Message) string {
	var b strings.Builder
	own := colorName(mt.theme.OwnMessageColor)
	for _, m := range msgs {
		sender := mt.peerName
		color := "-"
		if m.SenderID == mt.self {
			sender = "You"
			color = own
		}
		body := m.Body
		if m.Kind != model.KindText && m.Kind != "" {
			body = inbox.Preview(m)
		}
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
			color, tview.Escape(sanitizeForTerminal(sender)), formatTimestamp(m.Timestamp),
			tview.Escape(sanitizeForTerminal(body)))
	}
	return b.String()
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}

func colorName(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
