package filemgmt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc"
)

// DefaultReadFileMethod is the full gRPC method name of ReadFile.
const DefaultReadFileMethod = "/file_mgmt.FileMgmt/ReadFile"

// Reader performs a single ReadFile call.
type Reader interface {
	ReadFile(ctx context.Context, req *ReadFileRequest) (*ReadFileResponse, error)
}

// Client calls ReadFile over an existing connection.
type Client struct {
	conn   grpc.ClientConnInterface
	method string
}

// NewClient returns a client invoking method on conn. An empty method uses
// DefaultReadFileMethod.
func NewClient(conn grpc.ClientConnInterface, method string) (*Client, error) {
	if conn == nil {
		return nil, errors.New("file service connection is required")
	}
	method = strings.TrimSpace(method)
	if method == "" {
		method = DefaultReadFileMethod
	}
	if _, _, err := splitMethod(method); err != nil {
		return nil, err
	}
	return &Client{conn: conn, method: method}, nil
}

// ReadFile implements Reader.
func (c *Client) ReadFile(ctx context.Context, req *ReadFileRequest) (*ReadFileResponse, error) {
	resp := new(ReadFileResponse)
	if err := c.conn.Invoke(ctx, c.method, req, resp, grpc.ForceCodec(Codec{})); err != nil {
		return nil, err
	}
	return resp, nil
}

// splitMethod splits "/pkg.Service/Method" into its service and method.
func splitMethod(fullMethod string) (string, string, error) {
	trimmed := strings.TrimPrefix(fullMethod, "/")
	service, method, ok := strings.Cut(trimmed, "/")
	if !ok || trimmed == fullMethod || service == "" || method == "" || strings.Contains(method, "/") {
		return "", "", fmt.Errorf("invalid gRPC method %q, want /package.Service/Method", fullMethod)
	}
	return service, method, nil
}
