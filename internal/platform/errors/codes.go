// Package errors provides the coded error type shared by the worker's
// resolution pipeline and its presentation layers.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeMissingParameter is returned when no value store name was supplied.
	CodeMissingParameter Code = "MISSING_PARAMETER"

	// CodeFileNotFound is returned when the file service could not locate,
	// or refused access to, the requested workbook.
	CodeFileNotFound Code = "FILE_NOT_FOUND"

	// CodeFetchFailed covers transport failures that may succeed on retry.
	CodeFetchFailed Code = "FETCH_FAILED"

	// CodeIngestFailed is returned when the workbook bytes cannot be read.
	CodeIngestFailed Code = "INGEST_FAILED"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeMissingParameter:
		return codes.InvalidArgument
	case CodeFileNotFound:
		return codes.NotFound
	case CodeFetchFailed:
		return codes.Unavailable
	case CodeIngestFailed:
		return codes.DataLoss
	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeMissingParameter:
		return http.StatusBadRequest
	case CodeFileNotFound:
		return http.StatusNotFound
	case CodeFetchFailed:
		return http.StatusBadGateway
	case CodeIngestFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
