package inbox

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/store"
)

const previewLen = 100

// RecordMessage updates the pair's summary document for a sent message,
// creating it with both users' profile fields when neither orientation exists.
// The stored unread count belongs to whoever did not send last: it grows in the
// store while the same side keeps sending and restarts at 1 when the other side
// replies.
func (a *Aggregator) RecordMessage(ctx context.Context, msg model.Message) error {
	existing, err := a.summaryDoc(ctx, msg.SenderID, msg.ReceiverID)
	if err != nil {
		return err
	}

	last := Preview(msg)
	if existing != nil {
		sameSender := []store.Cond{{Field: "lastSenderId", Op: store.OpEq, Value: msg.SenderID}}
		err := a.db.UpdateIf(ctx, model.Conversations, existing.ID, sameSender, summaryPatch(msg, last, store.Increment(1)))
		if errors.Is(err, store.ErrConditionFailed) {
			err = a.db.Update(ctx, model.Conversations, existing.ID, summaryPatch(msg, last, 1))
		}
		if err != nil {
			return fmt.Errorf("update conversation %s: %w", existing.ID, err)
		}
		return nil
	}

	sender := a.profiles.Lookup(ctx, msg.SenderID)
	receiver := a.profiles.Lookup(ctx, msg.ReceiverID)
	sd := model.SummaryDoc{
		SenderID:      msg.SenderID,
		SenderName:    sender.Name,
		SenderImage:   sender.Image,
		ReceiverID:    msg.ReceiverID,
		ReceiverName:  receiver.Name,
		ReceiverImage: receiver.Image,
		LastMessage:   last,
		Timestamp:     msg.Timestamp,
		LastSenderID:  msg.SenderID,
		UnreadCount:   1,
	}
	if _, err := a.db.Add(ctx, model.Conversations, sd.Fields()); err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func summaryPatch(msg model.Message, last string, unread any) map[string]any {
	return map[string]any{
		"lastMessage":  last,
		"timeStamp":    msg.Timestamp,
		"lastSenderId": msg.SenderID,
		"unreadCount":  unread,
	}
}

func (a *Aggregator) summaryDoc(ctx context.Context, x, y string) (*store.Doc, error) {
	for _, q := range []store.Query{
		store.Collection(model.Conversations).Eq("senderId", x).Eq("receiverId", y),
		store.Collection(model.Conversations).Eq("senderId", y).Eq("receiverId", x),
	} {
		d, err := a.db.First(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("find conversation: %w", err)
		}
		if d != nil {
			return d, nil
		}
	}
	return nil, nil
}

// Preview renders the lastMessage text for msg.
func Preview(msg model.Message) string {
	switch msg.Kind {
	case model.KindImage:
		return "[image]"
	case model.KindVideo:
		return "[video]"
	case model.KindFile:
		if msg.AttachmentName != "" {
			return "[file] " + msg.AttachmentName
		}
		return "[file]"
	}
	return truncate(msg.Body, previewLen)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
