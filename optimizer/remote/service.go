// Package remote serves an optimizer.Optimizer over gRPC and calls one.
//
// The service has a single unary method. Requests and responses travel as
// google.protobuf.BytesValue holding the JSON form of optimizer.Request and
// the resulting assign path, so no generated code is needed. Backend
// failures are carried as gRPC status codes:
//
//	optimizer.ErrRejected, ErrInvalidRequest  codes.InvalidArgument
//	optimizer.ErrUnavailable                  codes.Unavailable
//	context.Canceled                          codes.Canceled
//	context.DeadlineExceeded                  codes.DeadlineExceeded
//	anything else                             codes.Internal
package remote

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/zero-day-ai/tensorpath/optimizer"
)

// Backend is the name reported in errors returned by Client.
const Backend = "remote"

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tensorpath.optimizer.v1.Optimizer"

const optimizeMethod = "/" + ServiceName + "/Optimize"

// requestIDKey is the metadata key carrying the per-call request ID.
const requestIDKey = "x-request-id"

type optimizeHandler interface {
	Optimize(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*optimizeHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Optimize", Handler: handleOptimize},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tensorpath/optimizer/v1/optimizer.proto",
}

func handleOptimize(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(optimizeHandler).Optimize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: optimizeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(optimizeHandler).Optimize(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// toStatus converts an optimizer error into a gRPC status error.
func toStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, optimizer.ErrInvalidRequest), errors.Is(err, optimizer.ErrRejected):
		code = codes.InvalidArgument
	case errors.Is(err, optimizer.ErrUnavailable):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return status.Error(code, err.Error())
}

// fromStatus converts a gRPC error from a call for op into an optimizer.Error.
func fromStatus(op optimizer.Op, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return &optimizer.Error{Op: op, Backend: Backend, Err: optimizer.ErrFailed, Detail: err.Error()}
	}

	var sentinel error
	switch st.Code() {
	case codes.InvalidArgument:
		sentinel = optimizer.ErrRejected
	case codes.Unavailable:
		sentinel = optimizer.ErrUnavailable
	case codes.Canceled:
		sentinel = fmt.Errorf("%w: %w", optimizer.ErrFailed, context.Canceled)
	case codes.DeadlineExceeded:
		sentinel = fmt.Errorf("%w: %w", optimizer.ErrFailed, context.DeadlineExceeded)
	default:
		sentinel = optimizer.ErrFailed
	}
	return &optimizer.Error{Op: op, Backend: Backend, Err: sentinel, Detail: st.Message()}
}
