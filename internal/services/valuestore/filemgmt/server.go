package filemgmt

import (
	"context"

	"google.golang.org/grpc"

	apperrors "github.com/louisbranch/valuestore/internal/platform/errors"
)

// ReadFileServer serves ReadFile. It backs local development servers and
// transport tests. Coded errors it returns reach clients as statuses with
// the matching gRPC code.
type ReadFileServer interface {
	ReadFile(ctx context.Context, req *ReadFileRequest) (*ReadFileResponse, error)
}

// NewServiceDesc describes a service exposing ReadFile under fullMethod.
func NewServiceDesc(fullMethod string) (*grpc.ServiceDesc, error) {
	service, method, err := splitMethod(fullMethod)
	if err != nil {
		return nil, err
	}
	return &grpc.ServiceDesc{
		ServiceName: service,
		HandlerType: (*ReadFileServer)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: method,
			Handler:    readFileHandler(fullMethod),
		}},
		Streams: []grpc.StreamDesc{},
	}, nil
}

// RegisterReadFileServer registers srv on registrar under fullMethod. The
// server must be built with ServerOption.
func RegisterReadFileServer(registrar grpc.ServiceRegistrar, srv ReadFileServer, fullMethod string) error {
	if fullMethod == "" {
		fullMethod = DefaultReadFileMethod
	}
	desc, err := NewServiceDesc(fullMethod)
	if err != nil {
		return err
	}
	registrar.RegisterService(desc, srv)
	return nil
}

func readFileHandler(fullMethod string) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(ReadFileRequest)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			resp, err := srv.(ReadFileServer).ReadFile(ctx, req.(*ReadFileRequest))
			if err != nil {
				return nil, apperrors.StatusOf(err)
			}
			return resp, nil
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, handler)
	}
}
