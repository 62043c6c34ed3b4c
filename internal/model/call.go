package model

import (
	"fmt"

	"github.com/matheus3301/chatsync/internal/store"
)

// CallStatus is the signalling state of a call session.
type CallStatus string

const (
	CallPending  CallStatus = "pending"
	CallAccepted CallStatus = "accepted"
	CallRejected CallStatus = "rejected"
	CallEnded    CallStatus = "ended"
)

// ParseCallStatus validates a status string.
func ParseCallStatus(s string) (CallStatus, error) {
	switch st := CallStatus(s); st {
	case CallPending, CallAccepted, CallRejected, CallEnded:
		return st, nil
	default:
		return "", fmt.Errorf("unknown call status %q", s)
	}
}

// Terminal reports whether no transition leaves st.
func (st CallStatus) Terminal() bool {
	return st == CallRejected || st == CallEnded
}

// CallSession is one signalling record. Caller and receiver roles are significant.
type CallSession struct {
	CallID     string
	CallerID   string
	ReceiverID string
	IsVideo    bool
	Status     CallStatus
	CreatedAt  int64
}

// Fields maps c to its calls document. The id is the document id.
func (c CallSession) Fields() map[string]any {
	return map[string]any{
		"callerId":    c.CallerID,
		"receiverId":  c.ReceiverID,
		"isVideoCall": c.IsVideo,
		"status":      string(c.Status),
		"timestamp":   c.CreatedAt,
	}
}

// CallFromDoc reads a calls document. An unreadable status is reported as ended
// so that consumers stop waiting on the record.
func CallFromDoc(d store.Doc) CallSession {
	st, err := ParseCallStatus(d.String("status"))
	if err != nil {
		st = CallEnded
	}
	return CallSession{
		CallID:     d.ID,
		CallerID:   d.String("callerId"),
		ReceiverID: d.String("receiverId"),
		IsVideo:    d.Bool("isVideoCall"),
		Status:     st,
		CreatedAt:  d.Int64("timestamp"),
	}
}
