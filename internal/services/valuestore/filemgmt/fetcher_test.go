package filemgmt

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	apperrors "github.com/louisbranch/valuestore/internal/platform/errors"
	"github.com/louisbranch/valuestore/internal/services/valuestore/domain"
)

var testIdentity = Identity{SiteID: "site-1", DriveID: "drive-1", FolderPath: "Värdeförråd"}

type fileServer struct {
	mu       sync.Mutex
	files    map[string][]byte
	err      error
	block    bool
	requests []ReadFileRequest
}

func (s *fileServer) ReadFile(ctx context.Context, req *ReadFileRequest) (*ReadFileResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, *req)
	err, block := s.err, s.block
	content, ok := s.files[req.FileName]
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no file %s", req.FileName)
	}
	return &ReadFileResponse{Content: content}, nil
}

func startFileServer(t *testing.T, srv ReadFileServer, method string) *grpc.ClientConn {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := grpc.NewServer(ServerOption())
	if err := RegisterReadFileServer(server, srv, method); err != nil {
		t.Fatalf("register: %v", err)
	}
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newTestFetcher(t *testing.T, srv *fileServer, timeout time.Duration) *Fetcher {
	t.Helper()
	conn := startFileServer(t, srv, "")
	client, err := NewClient(conn, "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return NewFetcher(client, Config{Identity: testIdentity, Timeout: timeout, Logger: zerolog.Nop()})
}

func TestFetchSendsIdentityAndReturnsContent(t *testing.T) {
	srv := &fileServer{files: map[string][]byte{"rates.xlsx": []byte("workbook")}}
	fetcher := newTestFetcher(t, srv, time.Second)

	data, err := fetcher.Fetch(context.Background(), "rates.xlsx")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "workbook" {
		t.Fatalf("content = %q, want %q", data, "workbook")
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(srv.requests))
	}
	want := ReadFileRequest{SiteID: "site-1", DriveID: "drive-1", Path: "Värdeförråd", FileName: "rates.xlsx"}
	if srv.requests[0] != want {
		t.Fatalf("request = %+v, want %+v", srv.requests[0], want)
	}
}

func TestFetchClassifiesRPCErrorsAsNotFound(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{name: "not found", err: nil},
		{name: "permission denied", err: status.Error(codes.PermissionDenied, "denied")},
		{name: "internal", err: status.Error(codes.Internal, "boom")},
		{name: "coded server error", err: apperrors.New(apperrors.CodeFileNotFound, "no such workbook")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := newTestFetcher(t, &fileServer{err: tc.err}, time.Second)

			data, err := fetcher.Fetch(context.Background(), "missing.xlsx")
			if err == nil {
				t.Fatalf("expected error, got %d bytes", len(data))
			}
			if code := apperrors.CodeOf(err); code != apperrors.CodeFileNotFound {
				t.Fatalf("code = %q, want %q", code, apperrors.CodeFileNotFound)
			}
			if !domain.IsPermanent(err) {
				t.Fatal("expected not-found to be permanent")
			}
			var coded *apperrors.Error
			if !errors.As(err, &coded) || coded.Metadata["file_name"] != "missing.xlsx" {
				t.Fatalf("metadata = %v, want file_name missing.xlsx", coded)
			}
		})
	}
}

func TestFetchTimeoutIsRetryable(t *testing.T) {
	fetcher := newTestFetcher(t, &fileServer{block: true}, 50*time.Millisecond)

	_, err := fetcher.Fetch(context.Background(), "slow.xlsx")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if code := apperrors.CodeOf(err); code != apperrors.CodeFetchFailed {
		t.Fatalf("code = %q, want %q", code, apperrors.CodeFetchFailed)
	}
	if domain.IsPermanent(err) {
		t.Fatal("expected timeout to be retryable")
	}
}

type readerFunc func(ctx context.Context, req *ReadFileRequest) (*ReadFileResponse, error)

func (fn readerFunc) ReadFile(ctx context.Context, req *ReadFileRequest) (*ReadFileResponse, error) {
	return fn(ctx, req)
}

func TestFetchNonRPCErrorIsRetryable(t *testing.T) {
	fetcher := NewFetcher(readerFunc(func(context.Context, *ReadFileRequest) (*ReadFileResponse, error) {
		return nil, errors.New("connection reset")
	}), Config{Identity: testIdentity, Logger: zerolog.Nop()})

	_, err := fetcher.Fetch(context.Background(), "rates.xlsx")
	if code := apperrors.CodeOf(err); code != apperrors.CodeFetchFailed {
		t.Fatalf("code = %q, want %q", code, apperrors.CodeFetchFailed)
	}
	if domain.IsPermanent(err) {
		t.Fatal("expected transport failure to be retryable")
	}
}

func TestFetchRequiresFileName(t *testing.T) {
	called := false
	fetcher := NewFetcher(readerFunc(func(context.Context, *ReadFileRequest) (*ReadFileResponse, error) {
		called = true
		return &ReadFileResponse{}, nil
	}), Config{Logger: zerolog.Nop()})

	_, err := fetcher.Fetch(context.Background(), "  ")
	if code := apperrors.CodeOf(err); code != apperrors.CodeMissingParameter {
		t.Fatalf("code = %q, want %q", code, apperrors.CodeMissingParameter)
	}
	if called {
		t.Fatal("expected no remote call")
	}
}

func TestClientUsesConfiguredMethod(t *testing.T) {
	srv := &fileServer{files: map[string][]byte{"a.xlsx": []byte("a")}}
	conn := startFileServer(t, srv, "/docs.Library/Get")

	client, err := NewClient(conn, "/docs.Library/Get")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	resp, err := client.ReadFile(context.Background(), &ReadFileRequest{FileName: "a.xlsx"})
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(resp.Content) != "a" {
		t.Fatalf("content = %q, want %q", resp.Content, "a")
	}

	other, err := NewClient(conn, "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = other.ReadFile(context.Background(), &ReadFileRequest{FileName: "a.xlsx"})
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("code = %v, want %v", status.Code(err), codes.Unimplemented)
	}
}

func TestNewClientRejectsMalformedMethod(t *testing.T) {
	conn, err := grpc.NewClient("127.0.0.1:1", grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer conn.Close()

	for _, method := range []string{"ReadFile", "/ReadFile", "/svc/", "/a/b/c"} {
		if _, err := NewClient(conn, method); err == nil {
			t.Fatalf("NewClient(%q) expected error", method)
		}
	}
	if _, err := NewClient(nil, ""); err == nil {
		t.Fatal("expected error for nil connection")
	}
}
