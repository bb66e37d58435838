package errors

import (
	stderrors "errors"
	"maps"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"
)

// Domain is reported as the ErrorInfo domain of converted statuses.
const Domain = "valuestore.worker"

// Error is a failure classified by Code. Message is safe to show to callers;
// Metadata carries lookup context such as the requested file name.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// New returns an Error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap returns an Error that unwraps to cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// With returns a copy of e with key set in its metadata.
func (e *Error) With(key, value string) *Error {
	out := *e
	out.Metadata = maps.Clone(e.Metadata)
	if out.Metadata == nil {
		out.Metadata = make(map[string]string, 1)
	}
	out.Metadata[key] = value
	return &out
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so a bare New(code, "") works
// as an errors.Is target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the first Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var coded *Error
	if stderrors.As(err, &coded) && coded != nil {
		return coded.Code
	}
	return CodeUnknown
}

// ToGRPCStatus converts e to a status error with an ErrorInfo detail. The
// detail is dropped if it cannot be attached.
func (e *Error) ToGRPCStatus() error {
	st := status.New(e.Code.GRPCCode(), e.Error())
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   string(e.Code),
		Domain:   Domain,
		Metadata: e.Metadata,
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

// StatusOf converts err for a gRPC response. Errors without a code pass
// through unchanged so the server can map them itself.
func StatusOf(err error) error {
	var coded *Error
	if !stderrors.As(err, &coded) || coded == nil {
		return err
	}
	return coded.ToGRPCStatus()
}
