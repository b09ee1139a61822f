package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the category of a validation failure.
type Kind string

const (
	KindUnsupported  Kind = "unsupported"   // No authority owns the country code
	KindInvalidInput Kind = "invalid_input" // Request rejected before any network I/O
	KindTransport    Kind = "transport"     // Network-level failure, no response
	KindTimeout      Kind = "timeout"       // Attempt exceeded its deadline
	KindProtocol     Kind = "protocol"      // Non-success HTTP status
	KindRemoteFault  Kind = "remote_fault"  // Authority answered with an application error
	KindSchema       Kind = "schema"        // Response body had an unexpected shape
)

// ClassifiedError is a failure produced at the point it happened, carrying
// everything the retry engine and the transport layer need to react to it.
type ClassifiedError struct {
	Kind      Kind
	Authority string
	Message   string
	Retryable bool

	// HTTPStatus is the upstream status code, 0 when not applicable.
	HTTPStatus int

	// RetryAfter is the raw Retry-After header value, "" when absent.
	RetryAfter string

	Cause error
}

func (e *ClassifiedError) Error() string {
	return e.Message
}

func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// RetryAfterDelay returns the server-requested delay. Only a non-negative
// integer number of seconds is honored.
func (e *ClassifiedError) RetryAfterDelay() (time.Duration, bool) {
	return ParseRetryAfter(e.RetryAfter)
}

// MaxRetryAfter caps a server-requested delay.
const MaxRetryAfter = time.Hour

// ParseRetryAfter parses a Retry-After value expressed in whole seconds.
// HTTP-date values and anything else non-numeric are rejected. Values above
// MaxRetryAfter are clamped to it.
func ParseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return MaxRetryAfter, true
	}
	if err != nil {
		return 0, false
	}
	if secs > int64(MaxRetryAfter/time.Second) {
		return MaxRetryAfter, true
	}
	return time.Duration(secs) * time.Second, true
}

// IsRetryableStatus reports whether an HTTP status signals a transient condition.
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status < 600)
}

// AsClassified extracts a ClassifiedError from an error chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsRetryable reports whether err is a classified error marked retryable.
func IsRetryable(err error) bool {
	ce, ok := AsClassified(err)
	return ok && ce.Retryable
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) Kind {
	if ce, ok := AsClassified(err); ok {
		return ce.Kind
	}
	return ""
}

// NewUnsupportedError reports a country code that no authority owns.
func NewUnsupportedError(countryCode string) *ClassifiedError {
	return &ClassifiedError{
		Kind:    KindUnsupported,
		Message: fmt.Sprintf("no VAT validator registered for %s", countryCode),
	}
}

// NewInvalidInputError reports a request rejected before network I/O.
func NewInvalidInputError(authority, message string) *ClassifiedError {
	return &ClassifiedError{
		Kind:      KindInvalidInput,
		Authority: authority,
		Message:   message,
	}
}

// NewTransportError wraps a network-level failure. Transport failures are retryable.
func NewTransportError(authority, prefix string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Kind:      KindTransport,
		Authority: authority,
		Message:   fmt.Sprintf("%s: %v", prefix, cause),
		Retryable: true,
		Cause:     cause,
	}
}

// NewTimeoutError reports an attempt that exceeded its deadline.
func NewTimeoutError(authority string, after time.Duration) *ClassifiedError {
	return &ClassifiedError{
		Kind:      KindTimeout,
		Authority: authority,
		Message:   fmt.Sprintf("request timed out after %d ms", after.Milliseconds()),
		Retryable: true,
	}
}

// NewProtocolError reports a non-success HTTP status. The error is retryable
// for 429 and 5xx.
func NewProtocolError(authority, prefix string, status int, retryAfter string) *ClassifiedError {
	return &ClassifiedError{
		Kind:       KindProtocol,
		Authority:  authority,
		Message:    fmt.Sprintf("%s: HTTP %d %s", prefix, status, http.StatusText(status)),
		Retryable:  IsRetryableStatus(status),
		HTTPStatus: status,
		RetryAfter: retryAfter,
	}
}

// NewSchemaError reports a response whose body could not be interpreted.
func NewSchemaError(authority, message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Kind:      KindSchema,
		Authority: authority,
		Message:   message,
		Cause:     cause,
	}
}
