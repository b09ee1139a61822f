package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vietddude/vatcheck/internal/core/domain"
)

const (
	// DefaultUIDEndpoint is the public UID-WSE service endpoint.
	DefaultUIDEndpoint = "https://www.uid-wse.admin.ch/V5.0/PublicServices.svc"

	// DefaultUIDSOAPAction is the operation header for ValidateVatNumber.
	DefaultUIDSOAPAction = "http://www.uid.admin.ch/xmlns/uid-wse/IPublicServices/ValidateVatNumber"

	uidResultElement = "ValidateVatNumberResult"
	uidErrPrefix     = "Error calling Swiss VAT Service"
)

const uidEnvelope = `<?xml version="1.0" encoding="utf-8"?>` +
	`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:uid="http://www.uid.admin.ch/xmlns/uid-wse">` +
	`<soap:Body><uid:ValidateVatNumber><uid:vatNumber>%s</uid:vatNumber></uid:ValidateVatNumber></soap:Body>` +
	`</soap:Envelope>`

// UIDConfig configures the Swiss validator.
type UIDConfig struct {
	Endpoint   string
	SOAPAction string
	Client     *http.Client
	Logger     *slog.Logger
}

// UIDProvider validates Swiss VAT numbers against the UID register SOAP service.
type UIDProvider struct {
	*BaseProvider
	soapAction string
}

// NewUIDProvider creates the Swiss validator.
func NewUIDProvider(cfg UIDConfig) *UIDProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultUIDEndpoint
	}
	if cfg.SOAPAction == "" {
		cfg.SOAPAction = DefaultUIDSOAPAction
	}
	return &UIDProvider{
		BaseProvider: NewBaseProvider(domain.AuthorityUID, cfg.Endpoint, []string{"CH"}, cfg.Client, cfg.Logger),
		soapAction:   cfg.SOAPAction,
	}
}

// BuildUIDEnvelope renders the ValidateVatNumber request body. The number is
// sent verbatim apart from XML escaping.
func BuildUIDEnvelope(vatNumber string) (string, error) {
	var escaped strings.Builder
	if err := xml.EscapeText(&escaped, []byte(vatNumber)); err != nil {
		return "", fmt.Errorf("escape vat number: %w", err)
	}
	return fmt.Sprintf(uidEnvelope, escaped.String()), nil
}

// Validate performs a single UID lookup.
func (p *UIDProvider) Validate(ctx context.Context, countryCode, vatNumber string) (bool, error) {
	if countryCode != "CH" {
		return false, domain.NewInvalidInputError(p.name, "Invalid country code for Swiss VAT validation")
	}

	envelope, err := BuildUIDEnvelope(vatNumber)
	if err != nil {
		return false, err
	}

	resp, latency, err := p.post(ctx, "text/xml; charset=utf-8",
		map[string]string{"SOAPAction": p.soapAction},
		[]byte(envelope),
	)
	if err != nil {
		p.RecordFailure(string(domain.KindTransport))
		return false, domain.NewTransportError(p.name, uidErrPrefix, err)
	}

	reply := parseSOAPReply(resp.Body, uidResultElement)

	valid, err := p.classify(resp, reply)
	if err != nil {
		p.RecordFailure(string(domain.KindOf(err)))
		if reply.Unparseable {
			p.log.Debug("UID response was not well-formed XML", "status", resp.StatusCode)
		}
		return false, err
	}

	p.RecordSuccess(latency)
	p.log.Debug("UID lookup completed", "valid", valid, "latency", latency)
	return valid, nil
}

// classify applies, in order: HTTP status without fault, SOAP fault, missing
// result element, result literal.
func (p *UIDProvider) classify(resp *rawResponse, reply soapReply) (bool, error) {
	if !resp.ok() && reply.Fault == nil {
		retryAfter := resp.Header.Get("Retry-After")
		if resp.StatusCode == http.StatusTooManyRequests {
			p.Monitor.RecordThrottle(retryAfter)
		}
		return false, domain.NewProtocolError(p.name, uidErrPrefix, resp.StatusCode, retryAfter)
	}

	if reply.Fault != nil {
		p.Monitor.RecordFault()
		return false, &domain.ClassifiedError{
			Kind:      domain.KindRemoteFault,
			Authority: p.name,
			Message: fmt.Sprintf("SOAP Fault calling Swiss VAT Service: %s - %s",
				reply.Fault.Code, reply.Fault.String),
			Retryable: !strings.Contains(reply.Fault.Code, "Client"),
		}
	}

	if !reply.HasResult {
		return false, domain.NewSchemaError(p.name, "Invalid response from Swiss VAT validation service", nil)
	}

	switch reply.Result {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, domain.NewSchemaError(p.name,
			fmt.Sprintf("Invalid response from Swiss VAT validation service: unexpected result %q", reply.Result), nil)
	}
}
