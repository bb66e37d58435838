package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthProbeTimeout = time.Second
	healthBackoffStart = 200 * time.Millisecond
	healthBackoffMax   = time.Second
)

// WaitForHealth probes the peer until service reports SERVING, backing off
// between probes. It gives up when ctx ends.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("health wait: connection is nil")
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}

	client := healthpb.NewHealthClient(conn)
	backoff := healthBackoffStart
	for probe := 1; ; probe++ {
		status, err := checkHealth(ctx, client, service)
		if status == healthpb.HealthCheckResponse_SERVING {
			logf("%s healthy after %d probe(s)", conn.Target(), probe)
			return nil
		}
		reason := status.String()
		if err != nil {
			reason = err.Error()
		}
		logf("%s not healthy yet (probe %d): %s", conn.Target(), probe, reason)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("health of %s: %w", conn.Target(), ctx.Err())
		case <-timer.C:
		}
		backoff = min(backoff*2, healthBackoffMax)
	}
}

func checkHealth(ctx context.Context, client healthpb.HealthClient, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	return resp.GetStatus(), err
}

// HealthServer serves grpc.health.v1 for the worker process.
type HealthServer struct {
	server   *gogrpc.Server
	statuses *health.Server
	lis      net.Listener
	done     chan struct{}
}

// StartHealthServer listens on addr and reports the overall service and each
// named service as SERVING.
func StartHealthServer(addr string, services ...string) (*HealthServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("health listen %s: %w", addr, err)
	}

	s := &HealthServer{
		server:   gogrpc.NewServer(gogrpc.StatsHandler(otelgrpc.NewServerHandler())),
		statuses: health.NewServer(),
		lis:      lis,
		done:     make(chan struct{}),
	}
	healthpb.RegisterHealthServer(s.server, s.statuses)
	for _, service := range append([]string{""}, services...) {
		s.SetServing(service, true)
	}

	go func() {
		defer close(s.done)
		_ = s.server.Serve(lis)
	}()
	return s, nil
}

func (s *HealthServer) Addr() net.Addr {
	return s.lis.Addr()
}

// SetServing reports service as SERVING or NOT_SERVING.
func (s *HealthServer) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.statuses.SetServingStatus(service, status)
}

// Stop reports every service NOT_SERVING, then drains in-flight probes.
func (s *HealthServer) Stop() {
	if s == nil {
		return
	}
	s.statuses.Shutdown()
	s.server.GracefulStop()
	select {
	case <-s.done:
	case <-time.After(2 * healthProbeTimeout):
	}
}
