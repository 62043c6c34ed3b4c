package api

import (
	"context"
	"time"

	"github.com/matheus3301/chatsync/internal/inbox"
	"github.com/matheus3301/chatsync/internal/rpc"
	"github.com/matheus3301/chatsync/internal/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// SessionService implements chatsync.v1.SessionService.
type SessionService struct {
	sessionName string
	storePath   string
	startedAt   time.Time
	machine     *status.Machine
	inbox       *inbox.Aggregator
}

// NewSessionService creates a new session service. agg may be nil.
func NewSessionService(sessionName, storePath string, machine *status.Machine, agg *inbox.Aggregator) *SessionService {
	return &SessionService{
		sessionName: sessionName,
		storePath:   storePath,
		startedAt:   time.Now(),
		machine:     machine,
		inbox:       agg,
	}
}

func (s *SessionService) GetSessionStatus(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	current, reason, since := s.machine.Snapshot()

	resp := map[string]any{
		"session":        s.sessionName,
		"status":         string(current),
		"status_message": reason,
		"since_ms":       since.UnixMilli(),
		"uptime_ms":      time.Since(s.startedAt).Milliseconds(),
		"store_path":     s.storePath,
	}

	if s.inbox != nil {
		var unread int64
		list := s.inbox.Snapshot()
		for _, c := range list {
			unread += c.UnreadCount
		}
		resp["conversation_count"] = len(list)
		resp["unread_count"] = unread
	}

	return rpc.Encode(resp)
}
