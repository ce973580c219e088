package openwrap

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error codes reported through ResponseListener.OnFailure when no HTTP
// status is available for the failure. When the server did answer, the raw
// status code is reported instead.
const (
	CodeParseError   = 204
	CodeAuthFailure  = 401
	CodeTimeout      = 408
	CodeNetworkError = 410
	CodeServerError  = 500
	CodeNoConnection = 502
)

// TransportError is a network dispatch failure with its wire-level code.
type TransportError struct {
	Code    int
	Message string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error %d: %s", e.Code, e.Message)
}

// IdentifierResolutionError reports a failed advertising identifier lookup.
// It is absorbed by the loader and never surfaced as a pipeline failure.
type IdentifierResolutionError struct {
	Cause error
}

func (e *IdentifierResolutionError) Error() string {
	return fmt.Sprintf("resolve advertising identifier: %v", e.Cause)
}

func (e *IdentifierResolutionError) Unwrap() error { return e.Cause }

// errEmptyIdentifier covers sources that return neither a value nor an error.
var errEmptyIdentifier = errors.New("identifier source returned no identifier")

// statusError carries a non-2xx HTTP response through the retry loop.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.code, e.message)
}

// classifyTransportError maps an underlying dispatch failure to the fixed
// error taxonomy. HTTP status codes pass through untouched; everything else
// falls into one of the well-known buckets, defaulting to a generic network
// error.
func classifyTransportError(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}

	var se *statusError
	if errors.As(err, &se) {
		return &TransportError{Code: se.code, Message: se.message}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Code: CodeTimeout, Message: err.Error()}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Code: CodeTimeout, Message: err.Error()}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{Code: CodeNoConnection, Message: err.Error()}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &TransportError{Code: CodeNoConnection, Message: err.Error()}
	}

	return &TransportError{Code: CodeNetworkError, Message: err.Error()}
}
