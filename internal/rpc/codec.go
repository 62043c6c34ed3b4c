package rpc

import (
	"fmt"

	"github.com/matheus3301/chatsync/internal/call"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/relation"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encode converts fields to a Struct. Values must be JSON-like: strings,
// numbers, bools, nil, []any and map[string]any.
func Encode(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return s, nil
}

// Str returns the string field key, or "".
func Str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// Int returns the numeric field key truncated to int64.
func Int(s *structpb.Struct, key string) int64 {
	return int64(s.GetFields()[key].GetNumberValue())
}

// Bool returns the bool field key.
func Bool(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

// Structs returns the struct elements of the list field key.
func Structs(s *structpb.Struct, key string) []*structpb.Struct {
	values := s.GetFields()[key].GetListValue().GetValues()
	out := make([]*structpb.Struct, 0, len(values))
	for _, v := range values {
		if st := v.GetStructValue(); st != nil {
			out = append(out, st)
		}
	}
	return out
}

func ProfileFields(p model.UserProfile) map[string]any {
	return map[string]any{
		"id":                    p.ID,
		"name":                  p.Name,
		"image":                 p.Image,
		"email":                 p.Email,
		"available":             p.Available,
		"online_status_visible": p.OnlineStatusVisible,
	}
}

func DecodeProfile(s *structpb.Struct) model.UserProfile {
	return model.UserProfile{
		ID:                  Str(s, "id"),
		Name:                Str(s, "name"),
		Image:               Str(s, "image"),
		Email:               Str(s, "email"),
		Available:           Bool(s, "available"),
		OnlineStatusVisible: Bool(s, "online_status_visible"),
	}
}

func SummaryFields(c model.ConversationSummary) map[string]any {
	return map[string]any{
		"doc_id":         c.DocID,
		"pair_key":       string(c.PairKey),
		"peer_id":        c.PeerID,
		"peer_name":      c.PeerName,
		"peer_image":     c.PeerImage,
		"last_message":   c.LastMessage,
		"last_timestamp": c.LastTimestamp,
		"last_sender_id": c.LastSenderID,
		"unread_count":   c.UnreadCount,
	}
}

func DecodeSummary(s *structpb.Struct) model.ConversationSummary {
	return model.ConversationSummary{
		DocID:         Str(s, "doc_id"),
		PairKey:       model.PairKey(Str(s, "pair_key")),
		PeerID:        Str(s, "peer_id"),
		PeerName:      Str(s, "peer_name"),
		PeerImage:     Str(s, "peer_image"),
		LastMessage:   Str(s, "last_message"),
		LastTimestamp: Int(s, "last_timestamp"),
		LastSenderID:  Str(s, "last_sender_id"),
		UnreadCount:   Int(s, "unread_count"),
	}
}

// SummaryList encodes summaries under the "conversations" key.
func SummaryList(list []model.ConversationSummary) map[string]any {
	items := make([]any, len(list))
	for i, c := range list {
		items[i] = SummaryFields(c)
	}
	return map[string]any{"conversations": items}
}

func DecodeSummaryList(s *structpb.Struct) []model.ConversationSummary {
	items := Structs(s, "conversations")
	out := make([]model.ConversationSummary, len(items))
	for i, it := range items {
		out[i] = DecodeSummary(it)
	}
	return out
}

func MessageFields(m model.Message) map[string]any {
	return map[string]any{
		"sender_id":       m.SenderID,
		"receiver_id":     m.ReceiverID,
		"body":            m.Body,
		"kind":            string(m.Kind),
		"attachment_name": m.AttachmentName,
		"timestamp":       m.Timestamp,
	}
}

func DecodeMessage(s *structpb.Struct) model.Message {
	kind, err := model.ParseMessageKind(Str(s, "kind"))
	if err != nil {
		kind = model.KindText
	}
	return model.Message{
		SenderID:       Str(s, "sender_id"),
		ReceiverID:     Str(s, "receiver_id"),
		Body:           Str(s, "body"),
		Kind:           kind,
		AttachmentName: Str(s, "attachment_name"),
		Timestamp:      Int(s, "timestamp"),
	}
}

// MessagesUpdate encodes one message sync emission.
func MessagesUpdate(msgs []model.Message, previous int) map[string]any {
	items := make([]any, len(msgs))
	for i, m := range msgs {
		items[i] = MessageFields(m)
	}
	return map[string]any{"messages": items, "previous": previous}
}

// DecodeMessagesUpdate returns the messages and the count held before the update.
func DecodeMessagesUpdate(s *structpb.Struct) ([]model.Message, int) {
	items := Structs(s, "messages")
	out := make([]model.Message, len(items))
	for i, it := range items {
		out[i] = DecodeMessage(it)
	}
	return out, int(Int(s, "previous"))
}

func CallFields(c model.CallSession) map[string]any {
	return map[string]any{
		"call_id":     c.CallID,
		"caller_id":   c.CallerID,
		"receiver_id": c.ReceiverID,
		"video":       c.IsVideo,
		"status":      string(c.Status),
		"created_at":  c.CreatedAt,
	}
}

func DecodeCall(s *structpb.Struct) model.CallSession {
	st, err := model.ParseCallStatus(Str(s, "status"))
	if err != nil {
		st = model.CallEnded
	}
	return model.CallSession{
		CallID:     Str(s, "call_id"),
		CallerID:   Str(s, "caller_id"),
		ReceiverID: Str(s, "receiver_id"),
		IsVideo:    Bool(s, "video"),
		Status:     st,
		CreatedAt:  Int(s, "created_at"),
	}
}

// Event type tags.
const (
	EventIncoming = "incoming"
	EventStatus   = "status"
)

func EventFields(e call.Event) map[string]any {
	switch e := e.(type) {
	case call.IncomingCall:
		return map[string]any{
			"type":    EventIncoming,
			"call_id": e.ID,
			"caller":  ProfileFields(e.Caller),
			"video":   e.IsVideo,
		}
	case call.StatusChanged:
		return map[string]any{
			"type":    EventStatus,
			"call_id": e.ID,
			"status":  string(e.Status),
		}
	}
	return map[string]any{"call_id": e.CallID()}
}

// DecodeEvent returns nil for an unknown type tag.
func DecodeEvent(s *structpb.Struct) call.Event {
	switch Str(s, "type") {
	case EventIncoming:
		return call.IncomingCall{
			ID:      Str(s, "call_id"),
			Caller:  DecodeProfile(s.GetFields()["caller"].GetStructValue()),
			IsVideo: Bool(s, "video"),
		}
	case EventStatus:
		st, err := model.ParseCallStatus(Str(s, "status"))
		if err != nil {
			st = model.CallEnded
		}
		return call.StatusChanged{ID: Str(s, "call_id"), Status: st}
	}
	return nil
}

func VerdictFields(v relation.Verdict) map[string]any {
	return map[string]any{
		"blocked_by_me":    v.BlockedByMe,
		"blocked_by_other": v.BlockedByOther,
		"allowed":          v.Allowed(),
		"reason":           v.Reason(),
	}
}

func DecodeVerdict(s *structpb.Struct) relation.Verdict {
	return relation.Verdict{
		BlockedByMe:    Bool(s, "blocked_by_me"),
		BlockedByOther: Bool(s, "blocked_by_other"),
	}
}
