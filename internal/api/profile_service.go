package api

import (
	"context"

	"github.com/matheus3301/chatsync/internal/profile"
	"github.com/matheus3301/chatsync/internal/rpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProfileService implements chatsync.v1.ProfileService.
type ProfileService struct {
	self string
	dir  *profile.Directory
}

// NewProfileService creates a profile service for the session user.
func NewProfileService(self string, dir *profile.Directory) *ProfileService {
	return &ProfileService{self: self, dir: dir}
}

// RegisterProfile writes the session user's public profile.
func (s *ProfileService) RegisterProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p := rpc.DecodeProfile(req)
	p.ID = s.self
	if p.Name == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "name is required")
	}
	if err := s.dir.Register(ctx, p); err != nil {
		return nil, toStatus("register profile", err)
	}
	return rpc.Encode(rpc.ProfileFields(p))
}

// GetProfile returns user_id's profile, or the session user's when omitted.
func (s *ProfileService) GetProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := rpc.Str(req, "user_id")
	if id == "" {
		id = s.self
	}
	p, err := s.dir.Get(ctx, id)
	if err != nil {
		return nil, toStatus("get profile", err)
	}
	if p == nil {
		return nil, grpcstatus.Errorf(codes.NotFound, "no profile for %s", id)
	}
	return rpc.Encode(rpc.ProfileFields(*p))
}

