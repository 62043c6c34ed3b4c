package api

import (
	"context"
	"errors"

	"github.com/matheus3301/chatsync/internal/call"
	"github.com/matheus3301/chatsync/internal/relation"
	"github.com/matheus3301/chatsync/internal/store"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStatus maps domain errors to gRPC status codes.
func toStatus(op string, err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, call.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, call.ErrAlreadyPending):
		code = codes.AlreadyExists
	case errors.Is(err, call.ErrInvalidTransition), errors.Is(err, store.ErrConditionFailed):
		code = codes.FailedPrecondition
	case errors.Is(err, relation.ErrBlocked):
		// The reason is shown to the user as is.
		return grpcstatus.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}
	return grpcstatus.Errorf(code, "%s: %v", op, err)
}

// required returns the string field key or an InvalidArgument error.
func required(req *structpb.Struct, key string) (string, error) {
	v := req.GetFields()[key].GetStringValue()
	if v == "" {
		return "", grpcstatus.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

func empty() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}
}
