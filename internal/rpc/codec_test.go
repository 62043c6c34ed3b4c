package rpc

import (
	"testing"

	"github.com/matheus3301/chatsync/internal/call"
	"github.com/matheus3301/chatsync/internal/model"
)

func TestSummaryListThroughStruct(t *testing.T) {
	in := []model.ConversationSummary{
		{DocID: "d1", PairKey: model.NewPairKey("alice", "bob"), PeerID: "bob", PeerName: "Bob",
			LastMessage: "hi", LastTimestamp: 1_700_000_000_123, LastSenderID: "bob", UnreadCount: 3},
		{DocID: "d2", PairKey: model.NewPairKey("alice", "carol"), PeerID: "carol"},
	}
	s, err := Encode(SummaryList(in))
	if err != nil {
		t.Fatal(err)
	}
	out := DecodeSummaryList(s)
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("decoded %+v, want %+v", out, in)
	}
}

func TestEventsKeepTheirType(t *testing.T) {
	events := []call.Event{
		call.IncomingCall{ID: "c1", Caller: model.UserProfile{ID: "alice", Name: "Alice"}, IsVideo: true},
		call.StatusChanged{ID: "c1", Status: model.CallRejected},
	}
	for _, e := range events {
		s, err := Encode(EventFields(e))
		if err != nil {
			t.Fatal(err)
		}
		if got := DecodeEvent(s); got != e {
			t.Errorf("DecodeEvent = %#v, want %#v", got, e)
		}
	}
}

func TestDecodeToleratesMissingFields(t *testing.T) {
	s, err := Encode(map[string]any{"call_id": "c9"})
	if err != nil {
		t.Fatal(err)
	}
	if c := DecodeCall(s); c.CallID != "c9" || c.Status != model.CallEnded {
		t.Errorf("DecodeCall = %+v", c)
	}
	if e := DecodeEvent(s); e != nil {
		t.Errorf("DecodeEvent without type = %#v", e)
	}
	if m := DecodeMessage(s); m.Kind != model.KindText {
		t.Errorf("DecodeMessage kind = %q", m.Kind)
	}
}
