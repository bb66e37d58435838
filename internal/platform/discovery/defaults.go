// Package discovery centralizes in-cluster service addressing conventions.
package discovery

import (
	"strconv"
	"strings"
)

const (
	// ServiceFileMgmt is the file-management gRPC service identity.
	ServiceFileMgmt = "file-mgmt"
	// ServiceZeebe is the workflow engine gateway identity.
	ServiceZeebe = "zeebe"
	// ServiceValueStore is the valuestore worker identity.
	ServiceValueStore = "valuestore"
)

type endpoint struct {
	host string
	port int
}

// The worker runs next to services owned by other teams, so hosts carry
// their namespace instead of following a single naming scheme.
var grpcEndpoints = map[string]endpoint{
	ServiceFileMgmt:   {host: "file-mgmt.worker-services", port: 50051},
	ServiceZeebe:      {host: "camunda-zeebe-gateway.camunda-zeebe", port: 26500},
	ServiceValueStore: {host: "valuestore", port: 8089},
}

var httpEndpoints = map[string]endpoint{
	ServiceValueStore: {host: "valuestore", port: 8080},
}

// DefaultGRPCAddr returns the canonical in-network gRPC address for a service.
func DefaultGRPCAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), grpcEndpoints)
}

// DefaultHTTPAddr returns the canonical in-network HTTP address for a service.
func DefaultHTTPAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), httpEndpoints)
}

// DefaultGRPCPort returns the port a service listens on for gRPC, or 0.
func DefaultGRPCPort(service string) int {
	return grpcEndpoints[strings.TrimSpace(service)].port
}

// DefaultHTTPPort returns the port a service listens on for HTTP, or 0.
func DefaultHTTPPort(service string) int {
	return httpEndpoints[strings.TrimSpace(service)].port
}

// OrDefaultGRPCAddr returns value when set, otherwise the service convention.
func OrDefaultGRPCAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultGRPCAddr(service)
}

func defaultAddr(service string, endpoints map[string]endpoint) string {
	ep, ok := endpoints[service]
	if !ok || ep.port <= 0 || ep.host == "" {
		return ""
	}
	return ep.host + ":" + strconv.Itoa(ep.port)
}
