package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vietddude/vatcheck/internal/core/domain"
)

const uidSuccessBody = `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">` +
	`<s:Body><ValidateVatNumberResponse xmlns="http://www.uid.admin.ch/xmlns/uid-wse">` +
	`<ValidateVatNumberResult>%s</ValidateVatNumberResult>` +
	`</ValidateVatNumberResponse></s:Body></s:Envelope>`

const uidFaultBody = `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>` +
	`<s:Fault><faultcode>%s</faultcode><faultstring xml:lang="en">%s</faultstring></s:Fault>` +
	`</s:Body></s:Envelope>`

func newUIDServer(t *testing.T, status int, body string) (*UIDProvider, *string, func()) {
	t.Helper()
	var received string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "text/xml; charset=utf-8" {
			t.Errorf("unexpected content type %q", ct)
		}
		if action := r.Header.Get("SOAPAction"); action != DefaultUIDSOAPAction {
			t.Errorf("unexpected SOAPAction %q", action)
		}
		data, _ := io.ReadAll(r.Body)
		received = string(data)
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	return NewUIDProvider(UIDConfig{Endpoint: server.URL}), &received, server.Close
}

func TestBuildUIDEnvelope(t *testing.T) {
	want := `<?xml version="1.0" encoding="utf-8"?><soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:uid="http://www.uid.admin.ch/xmlns/uid-wse"><soap:Body><uid:ValidateVatNumber><uid:vatNumber>CHE-116.281.710</uid:vatNumber></uid:ValidateVatNumber></soap:Body></soap:Envelope>`
	got, err := BuildUIDEnvelope("CHE-116.281.710")
	if err != nil || got != want {
		t.Errorf("unexpected envelope (err %v):\n%s", err, got)
	}

	got, err = BuildUIDEnvelope("CHE-116.281.710 MWST")
	if err != nil || !strings.Contains(got, "<uid:vatNumber>CHE-116.281.710 MWST</uid:vatNumber>") {
		t.Errorf("expected number sent as-is (err %v), got %s", err, got)
	}

	got, err = BuildUIDEnvelope("<x>")
	if err != nil || !strings.Contains(got, "&lt;x&gt;") {
		t.Errorf("expected escaped number (err %v), got %s", err, got)
	}
}

func TestUIDProvider_Result(t *testing.T) {
	for _, literal := range []string{"true", "false"} {
		p, received, stop := newUIDServer(t, http.StatusOK, fmt.Sprintf(uidSuccessBody, literal))

		valid, err := p.Validate(context.Background(), "CH", "CHE-116.281.710")
		stop()

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if valid != (literal == "true") {
			t.Errorf("literal %s: got valid=%v", literal, valid)
		}
		if !strings.Contains(*received, "<uid:vatNumber>CHE-116.281.710</uid:vatNumber>") {
			t.Errorf("number not sent verbatim: %s", *received)
		}
	}
}

func TestUIDProvider_Classification(t *testing.T) {
	fault := func(code, msg string) string {
		return fmt.Sprintf(uidFaultBody, code, msg)
	}

	tests := []struct {
		name      string
		status    int
		body      string
		kind      domain.Kind
		retryable bool
		message   string
	}{
		{
			name:      "server fault on 500",
			status:    500,
			body:      fault("soap:Server", "Internal error"),
			kind:      domain.KindRemoteFault,
			retryable: true,
			message:   "SOAP Fault calling Swiss VAT Service: soap:Server - Internal error",
		},
		{
			name:      "client fault on 500",
			status:    500,
			body:      fault("s:Client", "Invalid UID"),
			kind:      domain.KindRemoteFault,
			retryable: false,
			message:   "SOAP Fault calling Swiss VAT Service: s:Client - Invalid UID",
		},
		{
			name:      "client fault on 200",
			status:    200,
			body:      fault("Client", "Bad request"),
			kind:      domain.KindRemoteFault,
			retryable: false,
			message:   "SOAP Fault calling Swiss VAT Service: Client - Bad request",
		},
		{
			name:      "503 without fault",
			status:    503,
			body:      "<html>Service Unavailable</html>",
			kind:      domain.KindProtocol,
			retryable: true,
			message:   "Error calling Swiss VAT Service: HTTP 503 Service Unavailable",
		},
		{
			name:      "403 without fault",
			status:    403,
			body:      "",
			kind:      domain.KindProtocol,
			retryable: false,
			message:   "Error calling Swiss VAT Service: HTTP 403 Forbidden",
		},
		{
			name:    "missing result",
			status:  200,
			body:    `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body/></s:Envelope>`,
			kind:    domain.KindSchema,
			message: "Invalid response from Swiss VAT validation service",
		},
		{
			name:    "non-literal result",
			status:  200,
			body:    fmt.Sprintf(uidSuccessBody, "maybe"),
			kind:    domain.KindSchema,
			message: `Invalid response from Swiss VAT validation service: unexpected result "maybe"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, stop := newUIDServer(t, tt.status, tt.body)
			defer stop()

			_, err := p.Validate(context.Background(), "CH", "CHE-116.281.710")
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
			if tt.kind == domain.KindRemoteFault && ce.HTTPStatus != 0 {
				t.Errorf("remote faults carry no HTTP status, got %d", ce.HTTPStatus)
			}
		})
	}
}

func TestUIDProvider_RetryAfterCaptured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "4")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewUIDProvider(UIDConfig{Endpoint: server.URL})
	_, err := p.Validate(context.Background(), "CH", "CHE-116.281.710")

	ce, ok := domain.AsClassified(err)
	if !ok || ce.HTTPStatus != 429 || ce.RetryAfter != "4" || !ce.Retryable {
		t.Fatalf("unexpected error %+v", err)
	}
	if p.Monitor.CheckProviderStatus() != StatusThrottled {
		t.Error("expected the monitor to report throttling")
	}
}

func TestUIDProvider_CountryMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a foreign country code")
	}))
	defer server.Close()

	p := NewUIDProvider(UIDConfig{Endpoint: server.URL})
	_, err := p.Validate(context.Background(), "DE", "DE129274202")

	ce, ok := domain.AsClassified(err)
	if !ok || ce.Kind != domain.KindInvalidInput || ce.Retryable {
		t.Fatalf("expected non-retryable invalid input, got %v", err)
	}
	if ce.Error() != "Invalid country code for Swiss VAT validation" {
		t.Errorf("unexpected message %q", ce.Error())
	}
}

func TestParseSOAPReply_Prefixes(t *testing.T) {
	body := `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soapenv:Body><soapenv:Fault><faultcode> soapenv:Server </faultcode>` +
		`<faultstring>Timeout</faultstring></soapenv:Fault></soapenv:Body></soapenv:Envelope>`

	reply := parseSOAPReply([]byte(body), uidResultElement)
	if reply.Fault == nil {
		t.Fatal("expected fault")
	}
	if reply.Fault.Code != "soapenv:Server" || reply.Fault.String != "Timeout" {
		t.Errorf("unexpected fault %+v", reply.Fault)
	}

	// A Fault without both children is not a fault.
	partial := parseSOAPReply([]byte(`<Envelope><Body><Fault><faultstring>x</faultstring></Fault></Body></Envelope>`), uidResultElement)
	if partial.Fault != nil {
		t.Errorf("expected no fault, got %+v", partial.Fault)
	}
}
