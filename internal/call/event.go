package call

import "github.com/matheus3301/chatsync/internal/model"

// Event is delivered on inbound and outbound call streams. It is either an
// IncomingCall or a StatusChanged.
type Event interface {
	CallID() string
}

// IncomingCall announces a pending call addressed to the listening user.
type IncomingCall struct {
	ID      string
	Caller  model.UserProfile
	IsVideo bool
}

func (e IncomingCall) CallID() string { return e.ID }

// StatusChanged reports a call leaving the pending state.
type StatusChanged struct {
	ID     string
	Status model.CallStatus
}

func (e StatusChanged) CallID() string { return e.ID }
