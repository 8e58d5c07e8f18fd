package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrGenerationInProgress is returned when a submission arrives while a
// generation is already loading
var ErrGenerationInProgress = errors.New("a recipe generation is already in progress")

// ErrShuttingDown is returned for submissions after the controller began shutting down
var ErrShuttingDown = errors.New("the generation controller is shutting down")

// ErrorKind classifies pipeline failures
type ErrorKind string

// Failure kinds, in pipeline order
const (
	KindNetwork           ErrorKind = "network_error"
	KindHTTPClient        ErrorKind = "http_client_error"
	KindHTTPOther         ErrorKind = "http_other_error"
	KindRetryExhausted    ErrorKind = "retry_exhausted"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindInvalidJSON       ErrorKind = "invalid_json"
	KindSchemaViolation   ErrorKind = "schema_violation"
	KindCanceled          ErrorKind = "canceled"
	KindInternal          ErrorKind = "internal"
)

// PipelineError is the single error type produced by the transport and
// validation stages
type PipelineError struct {
	Kind       ErrorKind
	StatusCode int    // HTTP status for KindHTTPClient and KindHTTPOther
	Field      string // offending field for KindSchemaViolation
	Attempts   int    // attempts made, for KindRetryExhausted
	Message    string
	Err        error
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	var msg string
	switch e.Kind {
	case KindHTTPClient, KindHTTPOther:
		msg = fmt.Sprintf("%s: http %d: %s", e.Kind, e.StatusCode, e.Message)
	case KindRetryExhausted:
		msg = fmt.Sprintf("%s after %d attempts", e.Kind, e.Attempts)
	case KindSchemaViolation:
		msg = fmt.Sprintf("%s: field %q: %s", e.Kind, e.Field, e.Message)
	default:
		msg = string(e.Kind)
		if e.Message != "" {
			msg += ": " + e.Message
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed
func (e *PipelineError) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindHTTPOther
}

// NewNetworkError wraps a transport-level failure
func NewNetworkError(err error) *PipelineError {
	return &PipelineError{Kind: KindNetwork, Err: err}
}

// NewHTTPError classifies a non-success HTTP status. 400 is terminal,
// every other status is retryable.
func NewHTTPError(status int, message string) *PipelineError {
	kind := KindHTTPOther
	if status == http.StatusBadRequest {
		kind = KindHTTPClient
	}
	return &PipelineError{Kind: kind, StatusCode: status, Message: message}
}

// NewRetryExhausted wraps the last retryable failure once the budget is spent
func NewRetryExhausted(attempts int, last error) *PipelineError {
	return &PipelineError{Kind: KindRetryExhausted, Attempts: attempts, Err: last}
}

// NewCanceled wraps a context cancellation or deadline
func NewCanceled(err error) *PipelineError {
	return &PipelineError{Kind: KindCanceled, Err: err}
}

// NewMalformedResponse reports a provider envelope without the generated text
func NewMalformedResponse(message string, err error) *PipelineError {
	return &PipelineError{Kind: KindMalformedResponse, Message: message, Err: err}
}

// NewInvalidJSON reports generated text that is not JSON
func NewInvalidJSON(err error) *PipelineError {
	return &PipelineError{Kind: KindInvalidJSON, Err: err}
}

// NewSchemaViolation reports the first missing or invalid required field
func NewSchemaViolation(field, message string) *PipelineError {
	return &PipelineError{Kind: KindSchemaViolation, Field: field, Message: message}
}

// KindOf returns the kind of the outermost PipelineError in err's chain,
// KindCanceled for bare context errors and KindInternal otherwise
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if isContextError(err) {
		return KindCanceled
	}
	return KindInternal
}

// IsRetryable reports whether err is a retryable pipeline failure
func IsRetryable(err error) bool {
	var pe *PipelineError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Retryable()
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
