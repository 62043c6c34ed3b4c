package model

import "github.com/matheus3301/chatsync/internal/store"

// ConversationSummary is the owning user's view of one unordered pair.
type ConversationSummary struct {
	DocID         string
	PairKey       PairKey
	PeerID        string
	PeerName      string
	PeerImage     string
	LastMessage   string
	LastTimestamp int64
	LastSenderID  string
	UnreadCount   int64
}

// SummaryDoc is the directional conversations document: sender/receiver are
// fixed by whoever created it, but it describes the pair in both directions.
type SummaryDoc struct {
	SenderID      string
	SenderName    string
	SenderImage   string
	ReceiverID    string
	ReceiverName  string
	ReceiverImage string
	LastMessage   string
	Timestamp     int64
	LastSenderID  string
	UnreadCount   int64
}

// Fields maps s to its conversations document.
func (s SummaryDoc) Fields() map[string]any {
	return map[string]any{
		"senderId":      s.SenderID,
		"senderName":    s.SenderName,
		"senderImage":   s.SenderImage,
		"receiverId":    s.ReceiverID,
		"receiverName":  s.ReceiverName,
		"receiverImage": s.ReceiverImage,
		"lastMessage":   s.LastMessage,
		"timeStamp":     s.Timestamp,
		"lastSenderId":  s.LastSenderID,
		"unreadCount":   s.UnreadCount,
	}
}

// SummaryDocFromDoc reads a conversations document.
func SummaryDocFromDoc(d store.Doc) SummaryDoc {
	return SummaryDoc{
		SenderID:      d.String("senderId"),
		SenderName:    d.String("senderName"),
		SenderImage:   d.String("senderImage"),
		ReceiverID:    d.String("receiverId"),
		ReceiverName:  d.String("receiverName"),
		ReceiverImage: d.String("receiverImage"),
		LastMessage:   d.String("lastMessage"),
		Timestamp:     d.Int64("timeStamp"),
		LastSenderID:  d.String("lastSenderId"),
		UnreadCount:   d.Int64("unreadCount"),
	}
}

// Pair returns the unordered pair the document describes.
func (s SummaryDoc) Pair() PairKey {
	return NewPairKey(s.SenderID, s.ReceiverID)
}

// For orients the document towards self: peer fields come from whichever side
// is not self. The stored unread count only counts for the side that did not
// send last, so self sees 0 after its own message.
func (s SummaryDoc) For(self, docID string) ConversationSummary {
	out := ConversationSummary{
		DocID:         docID,
		PairKey:       s.Pair(),
		LastMessage:   s.LastMessage,
		LastTimestamp: s.Timestamp,
		LastSenderID:  s.LastSenderID,
		UnreadCount:   max(s.UnreadCount, 0),
	}
	if s.SenderID == self {
		out.PeerID, out.PeerName, out.PeerImage = s.ReceiverID, s.ReceiverName, s.ReceiverImage
	} else {
		out.PeerID, out.PeerName, out.PeerImage = s.SenderID, s.SenderName, s.SenderImage
	}
	if s.LastSenderID == self {
		out.UnreadCount = 0
	}
	return out
}
