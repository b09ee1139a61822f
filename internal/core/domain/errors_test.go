package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Duration
		wantOK bool
	}{
		{"2", 2 * time.Second, true},
		{"0", 0, true},
		{" 30 ", 30 * time.Second, true},
		{"", 0, false},
		{"-1", 0, false},
		{"+5", 0, false},
		{"1.5", 0, false},
		{"abc", 0, false},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0, false},
		{"3600", time.Hour, true},
		{"3601", MaxRetryAfter, true},
		{"9223372037", MaxRetryAfter, true},
		{"99999999999", MaxRetryAfter, true},
		{"99999999999999999999999", MaxRetryAfter, true},
	}

	for _, tt := range tests {
		got, ok := ParseRetryAfter(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseRetryAfter(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIsRetryableStatus(t *testing.T) {
	tests := []struct {
		status int
		expect bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{599, true},
		{400, false},
		{404, false},
		{600, false},
		{200, false},
	}

	for _, tt := range tests {
		if got := IsRetryableStatus(tt.status); got != tt.expect {
			t.Errorf("IsRetryableStatus(%d) = %v, want %v", tt.status, got, tt.expect)
		}
	}
}

func TestProtocolErrorMessage(t *testing.T) {
	err := NewProtocolError(AuthorityVIES, "Error calling EU VAT API", 500, "")
	if err.Error() != "Error calling EU VAT API: HTTP 500 Internal Server Error" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !err.Retryable || err.HTTPStatus != 500 {
		t.Errorf("expected retryable 500, got retryable=%v status=%d", err.Retryable, err.HTTPStatus)
	}

	notFound := NewProtocolError(AuthorityVIES, "Error calling EU VAT API", 404, "")
	if notFound.Retryable {
		t.Error("404 must not be retryable")
	}
}

func TestClassifiedErrorUnwrapping(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := fmt.Errorf("outer: %w", NewTransportError(AuthorityUID, "Error calling Swiss VAT Service", cause))

	ce, ok := AsClassified(wrapped)
	if !ok {
		t.Fatal("expected classified error in chain")
	}
	if ce.Kind != KindTransport {
		t.Errorf("expected transport kind, got %s", ce.Kind)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if !IsRetryable(wrapped) {
		t.Error("transport errors must be retryable")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("plain errors have no kind")
	}
}

func TestRetryAfterDelay(t *testing.T) {
	err := NewProtocolError(AuthorityVIES, "x", 429, "3")
	d, ok := err.RetryAfterDelay()
	if !ok || d != 3*time.Second {
		t.Errorf("expected 3s, got %v (%v)", d, ok)
	}

	err.RetryAfter = "soon"
	if _, ok := err.RetryAfterDelay(); ok {
		t.Error("non-numeric Retry-After must be ignored")
	}
}
