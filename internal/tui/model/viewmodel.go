package model

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matheus3301/chatsync/internal/call"
	"github.com/matheus3301/chatsync/internal/client"
	dm "github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/relation"
)

// Backend is the slice of the daemon client the TUI uses.
type Backend interface {
	Status(ctx context.Context) (client.SessionStatus, error)
	GetProfile(ctx context.Context, userID string) (dm.UserProfile, error)
	ListConversations(ctx context.Context) ([]dm.ConversationSummary, error)
	MarkRead(ctx context.Context, peerID string) error
	WatchConversations(ctx context.Context, fn func([]dm.ConversationSummary)) error
	SendMessage(ctx context.Context, peerID string, kind dm.MessageKind, body, attachmentName string) (dm.Message, error)
	WatchMessages(ctx context.Context, peerID string, fn func(msgs []dm.Message, previous int)) error
	InitiateCall(ctx context.Context, peerID string, video bool) (dm.CallSession, error)
	AcceptCall(ctx context.Context, callID string) (dm.CallSession, error)
	RejectCall(ctx context.Context, callID string) (dm.CallSession, error)
	EndCall(ctx context.Context, callID string) (dm.CallSession, error)
	WatchCall(ctx context.Context, callID string, fn func(call.StatusChanged)) error
	CanInteract(ctx context.Context, peerID string) (relation.Verdict, error)
	SetBlocked(ctx context.Context, peerID string, blocked bool) (relation.Verdict, error)
	SetMuted(ctx context.Context, peerID string, muted bool) (relation.Verdict, error)
}

var ErrNoChat = errors.New("no conversation open")

var ErrNoCall = errors.New("no active call")

// ActiveCall is the call this client is part of.
type ActiveCall struct {
	Session  dm.CallSession
	PeerID   string
	Controls call.Controls
}

// ViewModel caches state from the daemon streams and signals UI refreshes.
// Watch callbacks run on stream goroutines; readers get copies.
type ViewModel struct {
	mu sync.RWMutex

	backend       Backend
	self          string
	status        *client.SessionStatus
	conversations []dm.ConversationSummary
	activePeer    string
	messages      []dm.Message
	chatCancel    context.CancelFunc
	call          *ActiveCall
	callCancel    context.CancelFunc

	Flash *Flash

	refreshCh chan struct{}
}

// NewViewModel creates a view model for the session user self.
func NewViewModel(b Backend, self string) *ViewModel {
	return &ViewModel{
		backend:   b,
		self:      self,
		Flash:     NewFlash(),
		refreshCh: make(chan struct{}, 1),
	}
}

// Self returns the session user id.
func (vm *ViewModel) Self() string { return vm.self }

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// LoadSessionStatus fetches current session status.
func (vm *ViewModel) LoadSessionStatus(ctx context.Context) error {
	st, err := vm.backend.Status(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = &st
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadConversations fetches the conversation list once.
func (vm *ViewModel) LoadConversations(ctx context.Context) error {
	list, err := vm.backend.ListConversations(ctx)
	if err != nil {
		return err
	}
	vm.setConversations(list)
	return nil
}

// WatchConversations keeps the conversation list current until ctx is done.
func (vm *ViewModel) WatchConversations(ctx context.Context) error {
	return vm.backend.WatchConversations(ctx, vm.setConversations)
}

func (vm *ViewModel) setConversations(list []dm.ConversationSummary) {
	vm.mu.Lock()
	vm.conversations = list
	vm.mu.Unlock()
	vm.signalRefresh()
}

// OpenChat makes peerID the active conversation, follows its messages and
// marks it read. Any previously open conversation is closed.
func (vm *ViewModel) OpenChat(ctx context.Context, peerID string) {
	vm.CloseChat()

	chatCtx, cancel := context.WithCancel(ctx)
	vm.mu.Lock()
	vm.activePeer = peerID
	vm.messages = nil
	vm.chatCancel = cancel
	vm.mu.Unlock()
	vm.signalRefresh()

	go func() {
		err := vm.backend.WatchMessages(chatCtx, peerID, func(msgs []dm.Message, _ int) {
			vm.mu.Lock()
			if vm.activePeer == peerID {
				vm.messages = msgs
			}
			vm.mu.Unlock()
			vm.signalRefresh()
		})
		if err != nil && chatCtx.Err() == nil {
			vm.Flash.Warn("Message stream stopped: " + client.Message(err))
			vm.signalRefresh()
		}
	}()

	if err := vm.backend.MarkRead(ctx, peerID); err != nil {
		vm.Flash.Err(err)
	}
}

// CloseChat stops following the active conversation.
func (vm *ViewModel) CloseChat() {
	vm.mu.Lock()
	cancel := vm.chatCancel
	vm.chatCancel = nil
	vm.activePeer = ""
	vm.messages = nil
	vm.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Send sends text to the active conversation.
func (vm *ViewModel) Send(ctx context.Context, text string) error {
	peer := vm.ActivePeer()
	if peer == "" {
		return ErrNoChat
	}
	_, err := vm.backend.SendMessage(ctx, peer, dm.KindText, text, "")
	if err != nil {
		if client.IsBlocked(err) {
			vm.Flash.Warn(client.Message(err))
		} else {
			vm.Flash.set("Send failed: "+client.Message(err), FlashErr, 10*time.Second)
		}
		vm.signalRefresh()
		return err
	}
	// Reading our own thread keeps it read.
	_ = vm.backend.MarkRead(ctx, peer)
	return nil
}

// SetBlocked blocks or unblocks peerID and reports the new verdict.
func (vm *ViewModel) SetBlocked(ctx context.Context, peerID string, blocked bool) (relation.Verdict, error) {
	v, err := vm.backend.SetBlocked(ctx, peerID, blocked)
	if err != nil {
		return v, err
	}
	if blocked {
		vm.Flash.Info("Blocked " + peerID)
	} else {
		vm.Flash.Info("Unblocked " + peerID)
	}
	vm.signalRefresh()
	return v, nil
}

// SetMuted mutes or unmutes peerID.
func (vm *ViewModel) SetMuted(ctx context.Context, peerID string, muted bool) error {
	if _, err := vm.backend.SetMuted(ctx, peerID, muted); err != nil {
		return err
	}
	if muted {
		vm.Flash.Info("Muted " + peerID)
	} else {
		vm.Flash.Info("Unmuted " + peerID)
	}
	vm.signalRefresh()
	return nil
}

// PeerDetails loads the profile and relationship shown on the details page.
func (vm *ViewModel) PeerDetails(ctx context.Context, peerID string) (dm.UserProfile, relation.Verdict, error) {
	p, err := vm.backend.GetProfile(ctx, peerID)
	if err != nil {
		p = dm.UserProfile{ID: peerID}
	}
	v, err := vm.backend.CanInteract(ctx, peerID)
	return p, v, err
}

// StartCall rings the active conversation's peer.
func (vm *ViewModel) StartCall(ctx context.Context, video bool) error {
	peer := vm.ActivePeer()
	if peer == "" {
		return ErrNoChat
	}
	if vm.Call() != nil {
		return errors.New("already in a call")
	}
	sess, err := vm.backend.InitiateCall(ctx, peer, video)
	if err != nil {
		return err
	}
	vm.trackCall(ctx, sess, peer)
	vm.Flash.Info("Calling " + peer + "...")
	return nil
}

// Answer accepts an incoming call and makes it the active call.
func (vm *ViewModel) Answer(ctx context.Context, incoming call.IncomingCall) error {
	sess, err := vm.backend.AcceptCall(ctx, incoming.ID)
	if err != nil {
		return err
	}
	vm.trackCall(ctx, sess, incoming.Caller.ID)
	return nil
}

// Decline rejects an incoming call.
func (vm *ViewModel) Decline(ctx context.Context, callID string) error {
	_, err := vm.backend.RejectCall(ctx, callID)
	return err
}

// HangUp ends the active call.
func (vm *ViewModel) HangUp(ctx context.Context) error {
	c := vm.Call()
	if c == nil {
		return ErrNoCall
	}
	_, err := vm.backend.EndCall(ctx, c.Session.CallID)
	return err
}

func (vm *ViewModel) trackCall(ctx context.Context, sess dm.CallSession, peer string) {
	callCtx, cancel := context.WithCancel(ctx)
	vm.mu.Lock()
	vm.call = &ActiveCall{Session: sess, PeerID: peer, Controls: call.NewControls(sess.IsVideo)}
	vm.callCancel = cancel
	vm.mu.Unlock()
	vm.signalRefresh()

	go func() {
		defer cancel()
		_ = vm.backend.WatchCall(callCtx, sess.CallID, func(e call.StatusChanged) {
			vm.applyCallStatus(e)
		})
	}()
}

func (vm *ViewModel) applyCallStatus(e call.StatusChanged) {
	vm.mu.Lock()
	if vm.call == nil || vm.call.Session.CallID != e.ID {
		vm.mu.Unlock()
		return
	}
	vm.call.Session.Status = e.Status
	var cancel context.CancelFunc
	if e.Status.Terminal() {
		vm.call = nil
		cancel, vm.callCancel = vm.callCancel, nil
	}
	vm.mu.Unlock()

	switch e.Status {
	case dm.CallAccepted:
		vm.Flash.Info("Call connected")
	case dm.CallRejected:
		vm.Flash.Warn("Call declined")
	case dm.CallEnded:
		vm.Flash.Info("Call ended")
	}
	if cancel != nil {
		cancel()
	}
	vm.signalRefresh()
}

// UpdateControls applies fn to the active call's controls.
func (vm *ViewModel) UpdateControls(fn func(*call.Controls)) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.call == nil {
		return ErrNoCall
	}
	fn(&vm.call.Controls)
	vm.signalRefresh()
	return nil
}

// Call returns a copy of the active call, or nil.
func (vm *ViewModel) Call() *ActiveCall {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.call == nil {
		return nil
	}
	c := *vm.call
	return &c
}

// ActivePeer returns the peer of the open conversation.
func (vm *ViewModel) ActivePeer() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.activePeer
}

// GetConversations returns a snapshot of the conversation list.
func (vm *ViewModel) GetConversations() []dm.ConversationSummary {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.conversations
}

// Conversation returns the summary for peerID.
func (vm *ViewModel) Conversation(peerID string) (dm.ConversationSummary, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, c := range vm.conversations {
		if c.PeerID == peerID {
			return c, true
		}
	}
	return dm.ConversationSummary{}, false
}

// GetMessages returns a snapshot of the open conversation's messages.
func (vm *ViewModel) GetMessages() []dm.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.messages
}

// GetSessionStatus returns a snapshot of session status.
func (vm *ViewModel) GetSessionStatus() *client.SessionStatus {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}
