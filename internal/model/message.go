package model

import (
	"fmt"

	"github.com/matheus3301/chatsync/internal/store"
)

// MessageKind is the payload type of a chat message.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
	KindVideo MessageKind = "video"
)

// ParseMessageKind validates a kind string. Empty means text.
func ParseMessageKind(s string) (MessageKind, error) {
	switch k := MessageKind(s); k {
	case "":
		return KindText, nil
	case KindText, KindImage, KindFile, KindVideo:
		return k, nil
	default:
		return "", fmt.Errorf("unknown message kind %q", s)
	}
}

// Message is one chat message between two users.
type Message struct {
	SenderID       string
	ReceiverID     string
	Body           string
	Kind           MessageKind
	AttachmentName string
	Timestamp      int64
}

// MessageIdentity is the tuple two deliveries must share to be the same message.
type MessageIdentity struct {
	SenderID   string
	ReceiverID string
	Body       string
	Timestamp  int64
}

// Identity returns the dedup key of m.
func (m Message) Identity() MessageIdentity {
	return MessageIdentity{SenderID: m.SenderID, ReceiverID: m.ReceiverID, Body: m.Body, Timestamp: m.Timestamp}
}

// Fields maps m to its chat document.
func (m Message) Fields() map[string]any {
	kind := m.Kind
	if kind == "" {
		kind = KindText
	}
	f := map[string]any{
		"senderId":   m.SenderID,
		"receiverId": m.ReceiverID,
		"message":    m.Body,
		"type":       string(kind),
		"timeStamp":  m.Timestamp,
	}
	if m.AttachmentName != "" {
		f["fileName"] = m.AttachmentName
	}
	return f
}

// MessageFromDoc reads a chat document. Unknown kinds degrade to text.
func MessageFromDoc(d store.Doc) Message {
	kind, err := ParseMessageKind(d.String("type"))
	if err != nil {
		kind = KindText
	}
	return Message{
		SenderID:       d.String("senderId"),
		ReceiverID:     d.String("receiverId"),
		Body:           d.String("message"),
		Kind:           kind,
		AttachmentName: d.String("fileName"),
		Timestamp:      d.Int64("timeStamp"),
	}
}
