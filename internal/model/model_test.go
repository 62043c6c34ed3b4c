package model

import (
	"testing"

	"github.com/matheus3301/chatsync/internal/store"
)

func TestPairKeyIsUnordered(t *testing.T) {
	if NewPairKey("alice", "bob") != NewPairKey("bob", "alice") {
		t.Fatal("pair key depends on order")
	}
	k := NewPairKey("bob", "alice")
	if got := k.Other("alice"); got != "bob" {
		t.Errorf("Other(alice) = %q, want bob", got)
	}
	if got := k.Other("bob"); got != "alice" {
		t.Errorf("Other(bob) = %q, want alice", got)
	}
}

func TestSummaryOrientation(t *testing.T) {
	s := SummaryDoc{
		SenderID: "alice", SenderName: "Alice",
		ReceiverID: "bob", ReceiverName: "Bob",
		LastMessage: "hi", Timestamp: 10, LastSenderID: "alice", UnreadCount: 2,
	}
	forBob := s.For("bob", "d1")
	if forBob.PeerID != "alice" || forBob.PeerName != "Alice" {
		t.Errorf("For(bob) peer = %s/%s, want alice/Alice", forBob.PeerID, forBob.PeerName)
	}
	forAlice := s.For("alice", "d1")
	if forAlice.PeerID != "bob" || forAlice.PairKey != forBob.PairKey {
		t.Errorf("For(alice) = %+v", forAlice)
	}
	if forBob.UnreadCount != 2 {
		t.Errorf("For(bob) unread = %d, want 2", forBob.UnreadCount)
	}
	if forAlice.UnreadCount != 0 {
		t.Errorf("For(alice) unread = %d, want 0 for the last sender", forAlice.UnreadCount)
	}
}

func TestMessageFromDocDefaults(t *testing.T) {
	d := store.Doc{Fields: map[string]any{
		"senderId": "a", "receiverId": "b", "message": "pic", "type": "sticker", "timeStamp": float64(42),
	}}
	m := MessageFromDoc(d)
	if m.Kind != KindText {
		t.Errorf("Kind = %q, want text for unknown type", m.Kind)
	}
	if m.Timestamp != 42 {
		t.Errorf("Timestamp = %d, want 42", m.Timestamp)
	}
}

func TestCallStatusTerminal(t *testing.T) {
	tests := []struct {
		status CallStatus
		want   bool
	}{
		{CallPending, false},
		{CallAccepted, false},
		{CallRejected, true},
		{CallEnded, true},
	}
	for _, tc := range tests {
		if got := tc.status.Terminal(); got != tc.want {
			t.Errorf("%s.Terminal() = %v, want %v", tc.status, got, tc.want)
		}
	}
	if _, err := ParseCallStatus("ringing"); err == nil {
		t.Error("ParseCallStatus(ringing) should fail")
	}
}
