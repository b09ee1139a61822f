package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/vietddude/vatcheck/internal/core/domain"
)

// DefaultViesEndpoint is the public VIES REST endpoint.
const DefaultViesEndpoint = "https://ec.europa.eu/taxation_customs/vies/rest-api/check-vat-number"

// VIES fault codes with dedicated handling.
const (
	viesMemberUnavailable = "MS_UNAVAILABLE"
	viesMaxConcurrentReq  = "MS_MAX_CONCURRENT_REQ"
)

const viesErrPrefix = "Error calling EU VAT API"

// ViesConfig configures the EU validator.
type ViesConfig struct {
	Endpoint  string
	Countries []string
	Client    *http.Client
	Logger    *slog.Logger
}

// ViesProvider validates EU VAT numbers against the VIES REST API.
type ViesProvider struct {
	*BaseProvider
}

// NewViesProvider creates the EU validator. Empty fields fall back to the
// public endpoint and every EU member state plus XI.
func NewViesProvider(cfg ViesConfig) *ViesProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultViesEndpoint
	}
	if len(cfg.Countries) == 0 {
		cfg.Countries = domain.CountryCodesFor(domain.AuthorityVIES)
	}
	return &ViesProvider{
		BaseProvider: NewBaseProvider(domain.AuthorityVIES, cfg.Endpoint, cfg.Countries, cfg.Client, cfg.Logger),
	}
}

type viesRequest struct {
	CountryCode string `json:"countryCode"`
	VatNumber   string `json:"vatNumber"`
}

type viesResponse struct {
	Valid         *bool              `json:"valid"`
	ActionSucceed *bool              `json:"actionSucceed"`
	ErrorWrappers []viesErrorWrapper `json:"errorWrappers"`
}

type viesErrorWrapper struct {
	Error   *string `json:"error"`
	Message string  `json:"message,omitempty"`
}

// Validate performs a single VIES lookup.
func (p *ViesProvider) Validate(ctx context.Context, countryCode, vatNumber string) (bool, error) {
	countryCode = strings.ToUpper(countryCode)

	payload, err := json.Marshal(viesRequest{
		CountryCode: countryCode,
		VatNumber:   NormalizeViesNumber(countryCode, vatNumber),
	})
	if err != nil {
		return false, fmt.Errorf("marshal request: %w", err)
	}

	resp, latency, err := p.post(ctx, "application/json", map[string]string{"Accept": "application/json"}, payload)
	if err != nil {
		p.RecordFailure(string(domain.KindTransport))
		return false, domain.NewTransportError(p.name, viesErrPrefix, err)
	}

	if !resp.ok() {
		retryAfter := resp.Header.Get("Retry-After")
		if resp.StatusCode == http.StatusTooManyRequests {
			p.Monitor.RecordThrottle(retryAfter)
		}
		p.RecordFailure(string(domain.KindProtocol))
		return false, domain.NewProtocolError(p.name, viesErrPrefix, resp.StatusCode, retryAfter)
	}

	valid, err := p.interpret(countryCode, resp.Body)
	if err != nil {
		p.RecordFailure(string(domain.KindOf(err)))
		return false, err
	}

	p.RecordSuccess(latency)
	p.log.Debug("VIES lookup completed", "country", countryCode, "valid", valid, "latency", latency)
	return valid, nil
}

// interpret maps a 2xx VIES body onto a result or a classified fault.
func (p *ViesProvider) interpret(countryCode string, body []byte) (bool, error) {
	var parsed viesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, domain.NewSchemaError(p.name, "Invalid response schema from EU VAT API", err)
	}

	if parsed.Valid != nil {
		return *parsed.Valid, nil
	}

	if parsed.ActionSucceed == nil || *parsed.ActionSucceed || parsed.ErrorWrappers == nil {
		return false, domain.NewSchemaError(p.name, "Invalid response schema from EU VAT API", nil)
	}

	for _, w := range parsed.ErrorWrappers {
		if w.Error == nil {
			return false, domain.NewSchemaError(p.name, "Invalid response schema from EU VAT API", nil)
		}
	}

	code := ""
	if len(parsed.ErrorWrappers) > 0 {
		code = *parsed.ErrorWrappers[0].Error
	}

	fault := &domain.ClassifiedError{
		Kind:      domain.KindRemoteFault,
		Authority: p.name,
	}

	switch code {
	case viesMemberUnavailable:
		p.Monitor.RecordMemberUnavailable(countryCode)
		fault.Message = fmt.Sprintf("EU VAT service unavailable for %s", countryCode)
	case viesMaxConcurrentReq:
		p.Monitor.RecordThrottle("")
		fault.Message = fmt.Sprintf("EU VAT API rate limit: %s", code)
		fault.Retryable = true
	case "":
		p.Monitor.RecordFault()
		fault.Message = "EU VAT API error: Unknown error"
	default:
		p.Monitor.RecordFault()
		fault.Message = fmt.Sprintf("EU VAT API error: %s", code)
	}

	return false, fault
}

// NormalizeViesNumber strips separators and the leading country prefix from a
// VAT number. Greek numbers may carry either the EL or the GR prefix.
func NormalizeViesNumber(countryCode, vatNumber string) string {
	cleaned := strings.ToUpper(strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, vatNumber))

	prefixes := []string{strings.ToUpper(countryCode)}
	if prefixes[0] == "EL" {
		prefixes = append(prefixes, "GR")
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(cleaned, prefix) {
			return cleaned[len(prefix):]
		}
	}
	return cleaned
}
