package api

import (
	"context"

	"github.com/matheus3301/chatsync/internal/relation"
	"github.com/matheus3301/chatsync/internal/rpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// RelationshipService implements chatsync.v1.RelationshipService. All writes
// are on the session user's side of the relationship.
type RelationshipService struct {
	self  string
	guard *relation.Guard
}

// NewRelationshipService creates a relationship service for the session user.
func NewRelationshipService(self string, guard *relation.Guard) *RelationshipService {
	return &RelationshipService{self: self, guard: guard}
}

func (s *RelationshipService) CanInteract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	peer, err := required(req, "peer_id")
	if err != nil {
		return nil, err
	}
	v, err := s.guard.CanInteract(ctx, s.self, peer)
	if err != nil {
		return nil, toStatus("resolve relationship", err)
	}
	return rpc.Encode(rpc.VerdictFields(v))
}

func (s *RelationshipService) SetBlocked(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.write(ctx, req, func(peer string) error {
		return s.guard.SetBlocked(ctx, s.self, peer, rpc.Bool(req, "blocked"))
	})
}

func (s *RelationshipService) SetMuted(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.write(ctx, req, func(peer string) error {
		return s.guard.SetMuted(ctx, s.self, peer, rpc.Bool(req, "muted"))
	})
}

func (s *RelationshipService) SetNickname(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.write(ctx, req, func(peer string) error {
		return s.guard.SetNickname(ctx, s.self, peer, rpc.Str(req, "nickname"))
	})
}

// write applies fn and answers with the resulting verdict.
func (s *RelationshipService) write(ctx context.Context, req *structpb.Struct, fn func(peer string) error) (*structpb.Struct, error) {
	peer, err := required(req, "peer_id")
	if err != nil {
		return nil, err
	}
	if err := fn(peer); err != nil {
		return nil, toStatus("update relationship", err)
	}
	return s.CanInteract(ctx, req)
}
