// Package timeouts defines shared timeout constants used across the worker.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// FileFetch caps one ReadFile round trip to the file-management service,
// including transfer of the workbook bytes.
const FileFetch = 30 * time.Second

// JobComplete caps a single complete/fail command sent to the workflow engine.
const JobComplete = 10 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
