package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/call"
	"github.com/matheus3301/chatsync/internal/client"
	"github.com/matheus3301/chatsync/internal/present"
	"github.com/matheus3301/chatsync/internal/relation"
	"github.com/matheus3301/chatsync/internal/tui/keys"
	"github.com/matheus3301/chatsync/internal/tui/model"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/matheus3301/chatsync/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const (
	pageConversations = "conversations"
	pageChat          = "chat"
	pageDetails       = "details"
	pageHelp          = "help"
	pageCall          = "call"
	overlayIncoming   = "incoming"
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	pages    *ui.Pages
	root     *tview.Flex
	vm       *model.ViewModel
	client   *client.Client
	registry *keys.Registry
	coord    *present.Coordinator
	logger   *zap.Logger

	sessionInfo *ui.SessionInfo
	menu        *ui.Menu
	crumbs      *ui.Crumbs
	flashBar    *ui.FlashBar
	prompt      *ui.Prompt

	convList  *views.ConversationList
	thread    *views.MessageThread
	details   *views.ConversationInfo
	help      *views.HelpView
	callView  *views.CallView
	incoming  *views.CallPrompt
	verdict   relation.Verdict
	beforeTop tview.Primitive

	components map[string]ui.Component

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application for the session user.
func NewApp(c *client.Client, sessionName string, logger *zap.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:         tview.NewApplication(),
		theme:       theme,
		pages:       ui.NewPages(),
		vm:          model.NewViewModel(c, sessionName),
		client:      c,
		registry:    keys.NewRegistry(),
		logger:      logger,
		sessionInfo: ui.NewSessionInfo(theme),
		menu:        ui.NewMenu(theme),
		crumbs:      ui.NewCrumbs(theme),
		flashBar:    ui.NewFlashBar(theme),
		prompt:      ui.NewPrompt(theme),
		convList:    views.NewConversationList(theme),
		thread:      views.NewMessageThread(theme, sessionName),
		details:     views.NewConversationInfo(theme),
		help:        views.NewHelpView(theme),
		callView:    views.NewCallView(theme),
		incoming:    views.NewCallPrompt(theme),
		ctx:         ctx,
		cancel:      cancel,
	}
	a.coord = present.NewCoordinator(callPrompter{a}, logger.Named("present"))
	a.components = map[string]ui.Component{
		pageConversations: a.convList,
		pageChat:          a.thread,
		pageDetails:       a.details,
		pageHelp:          a.help,
		pageCall:          a.callView,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func runeKey(r rune, desc string, visible bool, fn func()) *keys.Action {
	return &keys.Action{Key: tcell.KeyRune, Rune: r, Description: desc, Visible: visible, Handler: fn}
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("command", runeKey(':', "Command", true, func() { a.activatePrompt(ui.PromptCommand) }))
	a.registry.AddGlobal("help", runeKey('?', "Help", true, func() { a.push(pageHelp) }))
	a.registry.AddGlobal("quit", runeKey('q', "Quit/Back", true, a.quitOrBack))

	a.registry.AddView(pageConversations, "filter", runeKey('/', "Filter", false, func() { a.activatePrompt(ui.PromptFilter) }))
	a.registry.AddView(pageConversations, "sort", runeKey('s', "Sort", false, func() {
		a.vm.Flash.Info("Sorted by " + a.convList.CycleSort().String())
	}))
	a.registry.AddView(pageConversations, "clear", runeKey('0', "Clear filter", false, a.convList.ClearFilter))
	for n := 1; n <= 9; n++ {
		a.registry.AddView(pageConversations, "jump"+string(rune('0'+n)), runeKey(rune('0'+n), "Jump", false, func() {
			if peer := a.convList.PeerByIndex(n); peer != "" {
				a.openChat(peer)
			}
		}))
	}

	a.registry.AddView(pageChat, "compose", runeKey('i', "Compose", false, func() { a.app.SetFocus(a.thread.Composer()) }))
	a.registry.AddView(pageChat, "details", runeKey('d', "Details", false, a.showDetails))
	a.registry.AddView(pageChat, "voice", runeKey('c', "Voice call", false, func() { a.startCall(false) }))
	a.registry.AddView(pageChat, "video", runeKey('v', "Video call", false, func() { a.startCall(true) }))

	a.registry.AddView(pageDetails, "block", runeKey('b', "Block", false, func() { a.setBlocked(!a.verdict.BlockedByMe) }))
	a.registry.AddView(pageDetails, "mute", runeKey('m', "Mute", false, func() { a.setMuted(true) }))
	a.registry.AddView(pageDetails, "unmute", runeKey('u', "Unmute", false, func() { a.setMuted(false) }))

	a.registry.AddView(pageCall, "mute", runeKey('m', "Mute", false, func() {
		a.controls(func(c *call.Controls) { c.Muted = !c.Muted })
	}))
	a.registry.AddView(pageCall, "speaker", runeKey('o', "Speaker", false, func() {
		a.controls(func(c *call.Controls) { c.Audio = c.Audio.Toggle() })
	}))
	a.registry.AddView(pageCall, "camera", runeKey('k', "Camera", false, func() {
		a.controls(func(c *call.Controls) { c.ToggleCamera() })
	}))
	a.registry.AddView(pageCall, "switch", runeKey('w', "Switch camera", false, a.switchCamera))
	a.registry.AddView(pageCall, "end", runeKey('e', "End", false, a.hangUp))
}

func (a *App) setupCallbacks() {
	a.convList.SetSelectedFunc(func(row, _ int) {
		if peer := a.convList.PeerByIndex(row); peer != "" {
			a.openChat(peer)
		}
	})

	a.thread.SetOnSend(func(text string) {
		go func() {
			if err := a.vm.Send(a.ctx, text); err != nil {
				a.logger.Debug("send failed", zap.Error(err))
			}
		}()
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.closePrompt()
		switch mode {
		case ui.PromptFilter:
			a.convList.SetFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.closePrompt)

	a.incoming.SetOnAnswer(a.answer)

	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(ui.Trail(stack, a.components))
		if len(stack) > 0 {
			a.coord.ScreenActivated(stack[len(stack)-1])
		}
		a.updateMenu()
	})
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(a.sessionInfo, 30, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 16, 0, false)

	a.pages.AddPage(pageConversations, a.convList, true, false)
	a.pages.AddPage(pageChat, a.thread, true, false)
	a.pages.AddPage(pageDetails, a.details, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)
	a.pages.AddPage(pageCall, a.callView, true, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)
	a.root.SetBackgroundColor(a.theme.BgColor)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.handleKey)
	a.pages.Reset(pageConversations)
	a.app.SetFocus(a.convList)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if a.pages.HasOverlay() {
		switch {
		case event.Key() == tcell.KeyRune && event.Rune() == 'a':
			a.answer(a.incoming.Incoming(), true)
			return nil
		case event.Key() == tcell.KeyRune && event.Rune() == 'r':
			a.answer(a.incoming.Incoming(), false)
			return nil
		}
		return event
	}

	focused := a.app.GetFocus()
	if focused == a.prompt.InputField {
		return event
	}
	if focused == a.thread.Composer() {
		if event.Key() == tcell.KeyEscape {
			a.app.SetFocus(a.thread.Messages())
			return nil
		}
		return event
	}

	if event.Key() == tcell.KeyEscape {
		a.back()
		return nil
	}
	if a.registry.HandleEvent(a.pages.Current(), event) {
		return nil
	}
	return event
}

func (a *App) push(page string) {
	if a.pages.Current() == page {
		return
	}
	a.pages.Push(page)
	a.focusPage(page)
	a.render()
}

func (a *App) back() {
	if a.pages.Depth() <= 1 {
		return
	}
	popped := a.pages.Pop()
	if popped == pageChat {
		a.vm.CloseChat()
	}
	a.coord.ScreenDestroyed(popped)
	a.focusPage(a.pages.Current())
	a.render()
}

func (a *App) quitOrBack() {
	if a.pages.Depth() > 1 {
		a.back()
		return
	}
	a.Stop()
}

func (a *App) focusPage(page string) {
	switch page {
	case pageConversations:
		a.app.SetFocus(a.convList)
	case pageChat:
		a.app.SetFocus(a.thread.Messages())
	case pageDetails:
		a.app.SetFocus(a.details)
	case pageHelp:
		a.app.SetFocus(a.help)
	case pageCall:
		a.app.SetFocus(a.callView)
	}
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt.InputField)
}

func (a *App) closePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	a.focusPage(a.pages.Current())
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.push(pageHelp)
	case "open":
		peer := a.resolvePeer(cmd.Args)
		if peer == "" {
			a.vm.Flash.Warn("usage: :open <peer>")
			return
		}
		a.openChat(peer)
	case "call":
		a.startCall(cmd.Args == "video")
	case "block", "unblock":
		a.setBlocked(cmd.Name == "block")
	case "mute", "unmute":
		a.setMuted(cmd.Name == "mute")
	case "":
	default:
		a.vm.Flash.Warn("unknown command: " + cmd.Name)
	}
	a.render()
}

// resolvePeer matches arg against known conversation names, falling back to
// treating it as a user id.
func (a *App) resolvePeer(arg string) string {
	if arg == "" {
		return ""
	}
	for _, c := range a.vm.GetConversations() {
		if strings.EqualFold(c.PeerName, arg) || c.PeerID == arg {
			return c.PeerID
		}
	}
	return arg
}

func (a *App) openChat(peer string) {
	name := peer
	if c, ok := a.vm.Conversation(peer); ok && c.PeerName != "" {
		name = c.PeerName
	}
	a.thread.SetPeer(peer, name)
	a.thread.Update(nil)
	if a.pages.Current() != pageChat {
		a.pages.Reset(pageConversations)
		a.push(pageChat)
	}
	go a.vm.OpenChat(a.ctx, peer)
}

// peer returns the conversation the details and call commands act on.
func (a *App) peer() string {
	if p := a.vm.ActivePeer(); p != "" {
		return p
	}
	a.vm.Flash.Warn("open a conversation first")
	return ""
}

func (a *App) showDetails() {
	peer := a.peer()
	if peer == "" {
		return
	}
	a.push(pageDetails)
	go a.loadDetails(peer)
}

func (a *App) loadDetails(peer string) {
	profile, verdict, err := a.vm.PeerDetails(a.ctx, peer)
	if err != nil {
		a.vm.Flash.Err(err)
	}
	summary, _ := a.vm.Conversation(peer)
	a.app.QueueUpdateDraw(func() {
		a.verdict = verdict
		a.details.Update(profile, summary, verdict)
	})
}

func (a *App) setBlocked(blocked bool) {
	peer := a.peer()
	if peer == "" {
		return
	}
	go func() {
		if _, err := a.vm.SetBlocked(a.ctx, peer, blocked); err != nil {
			a.vm.Flash.Err(err)
			return
		}
		if a.pageIs(pageDetails) {
			a.loadDetails(peer)
		}
	}()
}

func (a *App) setMuted(muted bool) {
	peer := a.peer()
	if peer == "" {
		return
	}
	go func() {
		if err := a.vm.SetMuted(a.ctx, peer, muted); err != nil {
			a.vm.Flash.Err(err)
		}
	}()
}

func (a *App) pageIs(page string) bool {
	cur := make(chan string, 1)
	a.app.QueueUpdate(func() { cur <- a.pages.Current() })
	select {
	case p := <-cur:
		return p == page
	case <-a.ctx.Done():
		return false
	}
}

func (a *App) startCall(video bool) {
	if a.peer() == "" {
		return
	}
	go func() {
		if err := a.vm.StartCall(a.ctx, video); err != nil {
			if client.IsBlocked(err) {
				a.vm.Flash.Warn(client.Message(err))
			} else {
				a.vm.Flash.Err(err)
			}
			return
		}
		a.app.QueueUpdateDraw(func() { a.push(pageCall) })
	}()
}

func (a *App) answer(c call.IncomingCall, accept bool) {
	if c.ID == "" {
		return
	}
	a.hideIncoming(c.ID)
	go func() {
		if !accept {
			if err := a.vm.Decline(a.ctx, c.ID); err != nil {
				a.vm.Flash.Err(err)
			}
			return
		}
		if err := a.vm.Answer(a.ctx, c); err != nil {
			a.vm.Flash.Err(err)
			return
		}
		a.app.QueueUpdateDraw(func() { a.push(pageCall) })
	}()
}

func (a *App) hangUp() {
	go func() {
		if err := a.vm.HangUp(a.ctx); err != nil {
			a.vm.Flash.Err(err)
		}
	}()
}

func (a *App) controls(fn func(*call.Controls)) {
	if err := a.vm.UpdateControls(fn); err != nil {
		a.vm.Flash.Warn(err.Error())
	}
}

// switchCamera flips the camera; the switch settles after a short delay
// standing in for the media engine's acknowledgement.
func (a *App) switchCamera() {
	started := false
	a.controls(func(c *call.Controls) { started = c.BeginSwitch() })
	if !started {
		return
	}
	time.AfterFunc(500*time.Millisecond, func() {
		_ = a.vm.UpdateControls(func(c *call.Controls) { c.EndSwitch() })
	})
}

func (a *App) showIncoming(c call.IncomingCall) {
	a.beforeTop = a.app.GetFocus()
	a.incoming.Show(c)
	a.pages.ShowOverlay(overlayIncoming, a.incoming, 44, 9)
	a.app.SetFocus(a.incoming)
}

func (a *App) hideIncoming(callID string) {
	if a.incoming.CallID() != callID || !a.pages.HideOverlay(overlayIncoming) {
		return
	}
	if a.beforeTop != nil {
		a.app.SetFocus(a.beforeTop)
	} else {
		a.focusPage(a.pages.Current())
	}
}

// callPrompter adapts the app to the coordinator. Coordinator calls arrive
// on stream goroutines and are marshalled onto the UI goroutine.
type callPrompter struct{ a *App }

func (p callPrompter) ShowCallPrompt(_ string, c call.IncomingCall) {
	p.a.app.QueueUpdateDraw(func() { p.a.showIncoming(c) })
}

func (p callPrompter) DismissCallPrompt(callID string) {
	p.a.app.QueueUpdateDraw(func() { p.a.hideIncoming(callID) })
}

func (a *App) updateMenu() {
	var hints []ui.MenuHint
	if c, ok := a.components[a.pages.Current()]; ok {
		hints = append(hints, c.Hints()...)
	}
	hints = append(hints, a.registry.Hints("")...)
	a.menu.Update(hints)
}

// render copies view model state into the widgets. UI goroutine only.
func (a *App) render() {
	a.convList.Update(a.vm.GetConversations())
	if a.vm.ActivePeer() == a.thread.PeerID() {
		a.thread.Update(a.vm.GetMessages())
	}

	callState := ""
	if c := a.vm.Call(); c != nil {
		name := c.PeerID
		if s, ok := a.vm.Conversation(c.PeerID); ok && s.PeerName != "" {
			name = s.PeerName
		}
		a.callView.Update(name, &c.Session, c.Controls)
		callState = string(c.Session.Status)
		a.crumbs.SetCall(fmt.Sprintf("%s (%s)", name, callState))
	} else {
		a.callView.Update("", nil, call.Controls{})
		a.crumbs.SetCall("")
	}

	data := &ui.SessionData{Session: a.vm.Self(), Call: callState}
	if st := a.vm.GetSessionStatus(); st != nil {
		data.Status = st.Status
		data.Conversations = st.ConversationCount
		data.Unread = st.UnreadCount
		data.Uptime = st.Uptime
	}
	data.Conversations = max(data.Conversations, len(a.vm.GetConversations()))
	a.sessionInfo.Update(data)
	a.flashBar.Update(a.vm.Flash.Get())
	a.updateMenu()
}

// Run starts the TUI application.
func (a *App) Run() error {
	go a.load()
	return a.app.Run()
}

func (a *App) load() {
	if err := a.vm.LoadSessionStatus(a.ctx); err != nil {
		a.vm.Flash.Warn(client.Message(err))
	}
	if err := a.vm.LoadConversations(a.ctx); err != nil {
		a.vm.Flash.Warn(client.Message(err))
	}
	a.app.QueueUpdateDraw(a.render)

	go func() {
		if err := a.vm.WatchConversations(a.ctx); err != nil {
			a.logger.Warn("conversation stream stopped", zap.Error(err))
			a.vm.Flash.Warn("Conversation updates stopped: " + client.Message(err))
		}
	}()
	go a.watchIncomingCalls()
	a.refreshLoop()
}

func (a *App) watchIncomingCalls() {
	events := make(chan call.Event, 8)
	go a.coord.Run(a.ctx, events)
	err := a.client.WatchIncomingCalls(a.ctx, func(e call.Event) {
		select {
		case events <- e:
		case <-a.ctx.Done():
		}
	})
	if err != nil {
		a.logger.Warn("incoming call stream stopped", zap.Error(err))
	}
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.vm.RefreshCh():
		case <-ticker.C:
			_ = a.vm.LoadSessionStatus(a.ctx)
		case <-a.ctx.Done():
			return
		}
		a.app.QueueUpdateDraw(func() {
			if a.vm.Call() == nil && a.pages.Current() == pageCall {
				a.back()
			}
			a.render()
		})
	}
}

// Stop shuts down the TUI.
func (a *App) Stop() {
	a.coord.ScreenDestroyed(a.pages.Current())
	a.cancel()
	a.app.Stop()
}
