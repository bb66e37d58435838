// Package grpc holds the client and server helpers shared by the worker's
// gRPC integrations.
package grpc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DialStage names the phase a dial failed in.
type DialStage string

const (
	DialStageConnect DialStage = "connect"
	DialStageHealth  DialStage = "health"
)

// DialError reports which phase of reaching a peer failed.
type DialError struct {
	Stage DialStage
	Addr  string
	Err   error
}

func (e *DialError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("grpc %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("grpc %s %s: %v", e.Stage, e.Addr, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// DialConfig describes a peer connection.
type DialConfig struct {
	Addr string
	// Timeout bounds the health wait; the connection itself is lazy.
	Timeout time.Duration
	// WaitForHealth blocks until grpc.health.v1 reports SERVING for
	// HealthService. Peers without a health service must leave it off.
	WaitForHealth bool
	HealthService string
	// Options replaces DefaultClientDialOptions when non-nil.
	Options []gogrpc.DialOption
	Logf    func(string, ...any)
}

// DefaultClientDialOptions is plaintext with otel client stats, which is
// what every in-cluster peer of the worker expects.
func DefaultClientDialOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// Dial creates a client for cfg.Addr and, when asked, waits for the peer to
// report healthy. The connection is closed if the wait fails.
func Dial(ctx context.Context, cfg DialConfig) (*gogrpc.ClientConn, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, &DialError{Stage: DialStageConnect, Err: fmt.Errorf("address is required")}
	}
	opts := cfg.Options
	if opts == nil {
		opts = DefaultClientDialOptions()
	}

	conn, err := gogrpc.NewClient(addr, opts...)
	if err != nil {
		return nil, &DialError{Stage: DialStageConnect, Addr: addr, Err: err}
	}
	if !cfg.WaitForHealth {
		return conn, nil
	}

	waitCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := WaitForHealth(waitCtx, conn, cfg.HealthService, cfg.Logf); err != nil {
		_ = conn.Close()
		return nil, &DialError{Stage: DialStageHealth, Addr: addr, Err: err}
	}
	return conn, nil
}
