package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/vatcheck/internal/core/domain"
)

func newViesServer(t *testing.T, handler func(w http.ResponseWriter, req viesRequest)) (*ViesProvider, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected method POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		var req viesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		handler(w, req)
	}))
	return NewViesProvider(ViesConfig{Endpoint: server.URL}), server.Close
}

func TestNormalizeViesNumber(t *testing.T) {
	tests := []struct {
		country string
		vat     string
		want    string
	}{
		{"DE", "DE129274202", "129274202"},
		{"DE", "129274202", "129274202"},
		{"DE", "de 129-274.202", "129274202"},
		{"EL", "EL090027346", "090027346"},
		{"EL", "GR090027346", "090027346"},
		{"NL", "NL803441526B01", "803441526B01"},
		{"AT", "ATU63611700", "U63611700"},
		{"CY", "CY99000230P", "99000230P"},
	}

	for _, tt := range tests {
		if got := NormalizeViesNumber(tt.country, tt.vat); got != tt.want {
			t.Errorf("NormalizeViesNumber(%q, %q) = %q, want %q", tt.country, tt.vat, got, tt.want)
		}
	}
}

func TestViesProvider_Valid(t *testing.T) {
	var got viesRequest
	p, stop := newViesServer(t, func(w http.ResponseWriter, req viesRequest) {
		got = req
		_, _ = w.Write([]byte(`{"countryCode":"DE","vatNumber":"129274202","valid":true}`))
	})
	defer stop()

	valid, err := p.Validate(context.Background(), "DE", "DE129274202")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !valid {
		t.Error("expected valid=true")
	}
	if got.CountryCode != "DE" || got.VatNumber != "129274202" {
		t.Errorf("unexpected request payload: %+v", got)
	}
}

func TestViesProvider_GreekPrefix(t *testing.T) {
	var got viesRequest
	p, stop := newViesServer(t, func(w http.ResponseWriter, req viesRequest) {
		got = req
		_, _ = w.Write([]byte(`{"valid":false}`))
	})
	defer stop()

	valid, err := p.Validate(context.Background(), "EL", "EL090027346")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if valid {
		t.Error("expected valid=false")
	}
	if got.CountryCode != "EL" || got.VatNumber != "090027346" {
		t.Errorf("unexpected request payload: %+v", got)
	}
}

func TestViesProvider_HTTPErrors(t *testing.T) {
	tests := []struct {
		status     int
		retryAfter string
		retryable  bool
		message    string
	}{
		{500, "", true, "Error calling EU VAT API: HTTP 500 Internal Server Error"},
		{503, "7", true, "Error calling EU VAT API: HTTP 503 Service Unavailable"},
		{429, "2", true, "Error calling EU VAT API: HTTP 429 Too Many Requests"},
		{400, "", false, "Error calling EU VAT API: HTTP 400 Bad Request"},
		{404, "", false, "Error calling EU VAT API: HTTP 404 Not Found"},
	}

	for _, tt := range tests {
		p, stop := newViesServer(t, func(w http.ResponseWriter, _ viesRequest) {
			if tt.retryAfter != "" {
				w.Header().Set("Retry-After", tt.retryAfter)
			}
			w.WriteHeader(tt.status)
		})

		_, err := p.Validate(context.Background(), "FR", "FR59542051180")
		stop()

		ce, ok := domain.AsClassified(err)
		if !ok {
			t.Fatalf("status %d: expected classified error, got %v", tt.status, err)
		}
		if ce.Kind != domain.KindProtocol {
			t.Errorf("status %d: expected protocol kind, got %s", tt.status, ce.Kind)
		}
		if ce.Retryable != tt.retryable {
			t.Errorf("status %d: retryable = %v, want %v", tt.status, ce.Retryable, tt.retryable)
		}
		if ce.HTTPStatus != tt.status {
			t.Errorf("status %d: HTTPStatus = %d", tt.status, ce.HTTPStatus)
		}
		if ce.RetryAfter != tt.retryAfter {
			t.Errorf("status %d: RetryAfter = %q, want %q", tt.status, ce.RetryAfter, tt.retryAfter)
		}
		if ce.Error() != tt.message {
			t.Errorf("status %d: message = %q, want %q", tt.status, ce.Error(), tt.message)
		}
	}
}

func TestViesProvider_RemoteFaults(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		kind      domain.Kind
		retryable bool
		message   string
	}{
		{
			name:      "member state unavailable",
			body:      `{"actionSucceed":false,"errorWrappers":[{"error":"MS_UNAVAILABLE","message":"down"}]}`,
			kind:      domain.KindRemoteFault,
			retryable: false,
			message:   "EU VAT service unavailable for PL",
		},
		{
			name:      "concurrent request limit",
			body:      `{"actionSucceed":false,"errorWrappers":[{"error":"MS_MAX_CONCURRENT_REQ"}]}`,
			kind:      domain.KindRemoteFault,
			retryable: true,
			message:   "EU VAT API rate limit: MS_MAX_CONCURRENT_REQ",
		},
		{
			name:      "other fault code",
			body:      `{"actionSucceed":false,"errorWrappers":[{"error":"INVALID_INPUT"}]}`,
			kind:      domain.KindRemoteFault,
			retryable: false,
			message:   "EU VAT API error: INVALID_INPUT",
		},
		{
			name:      "empty wrapper list",
			body:      `{"actionSucceed":false,"errorWrappers":[]}`,
			kind:      domain.KindRemoteFault,
			retryable: false,
			message:   "EU VAT API error: Unknown error",
		},
		{
			name:      "empty fault code",
			body:      `{"actionSucceed":false,"errorWrappers":[{"error":""}]}`,
			kind:      domain.KindRemoteFault,
			retryable: false,
			message:   "EU VAT API error: Unknown error",
		},
		{
			name:    "wrapper without error field",
			body:    `{"actionSucceed":false,"errorWrappers":[{"message":"oops"}]}`,
			kind:    domain.KindSchema,
			message: "Invalid response schema from EU VAT API",
		},
		{
			name:    "unrecognized shape",
			body:    `{"foo":"bar"}`,
			kind:    domain.KindSchema,
			message: "Invalid response schema from EU VAT API",
		},
		{
			name:    "not json",
			body:    `<html>maintenance</html>`,
			kind:    domain.KindSchema,
			message: "Invalid response schema from EU VAT API",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, stop := newViesServer(t, func(w http.ResponseWriter, _ viesRequest) {
				_, _ = w.Write([]byte(tt.body))
			})
			defer stop()

			_, err := p.Validate(context.Background(), "PL", "PL7342867148")
			ce, ok := domain.AsClassified(err)
			if !ok {
				t.Fatalf("expected classified error, got %v", err)
			}
			if ce.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", ce.Kind, tt.kind)
			}
			if ce.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", ce.Retryable, tt.retryable)
			}
			if ce.Error() != tt.message {
				t.Errorf("message = %q, want %q", ce.Error(), tt.message)
			}
		})
	}
}

func TestViesProvider_MemberOutageDegradesHealth(t *testing.T) {
	p, stop := newViesServer(t, func(w http.ResponseWriter, _ viesRequest) {
		_, _ = w.Write([]byte(`{"actionSucceed":false,"errorWrappers":[{"error":"MS_UNAVAILABLE"}]}`))
	})
	defer stop()

	_, _ = p.Validate(context.Background(), "PL", "PL7342867148")

	stats := p.GetHealth().MonitorStats
	if stats == nil || stats.Status != StatusDegraded {
		t.Fatalf("expected degraded status, got %+v", stats)
	}
	if len(stats.UnavailableMembers) != 1 || stats.UnavailableMembers[0] != "PL" {
		t.Errorf("expected PL to be reported unavailable, got %v", stats.UnavailableMembers)
	}
}

func TestViesProvider_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	p := NewViesProvider(ViesConfig{Endpoint: url})
	_, err := p.Validate(context.Background(), "DE", "DE129274202")

	ce, ok := domain.AsClassified(err)
	if !ok || ce.Kind != domain.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !ce.Retryable {
		t.Error("transport errors must be retryable")
	}
	if errors.Unwrap(err) == nil {
		t.Error("expected the network cause to be preserved")
	}
}

func TestViesProvider_SupportedCountries(t *testing.T) {
	p := NewViesProvider(ViesConfig{})
	codes := p.SupportedCountries()
	if len(codes) != 28 {
		t.Errorf("expected 28 codes, got %d", len(codes))
	}
	if p.Endpoint() != DefaultViesEndpoint {
		t.Errorf("unexpected default endpoint %s", p.Endpoint())
	}
}
