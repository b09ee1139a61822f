package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vietddude/vatcheck/internal/core/domain"
)

// ValidateRequest is the inbound validation payload.
type ValidateRequest struct {
	CountryCode string `json:"countryCode"`
	VAT         string `json:"vat"`
}

// rawValidateRequest keeps fields raw so a missing field and a field of the
// wrong type report the same message.
type rawValidateRequest struct {
	CountryCode json.RawMessage `json:"countryCode"`
	VAT         json.RawMessage `json:"vat"`
}

// shapeError is a request rejected before reaching an authority.
type shapeError struct {
	status  int
	message string
}

func (e *shapeError) Error() string { return e.message }

// parseValidateRequest decodes and checks field presence and length.
// Messages for every failing field are joined with ", ".
func parseValidateRequest(body []byte) (ValidateRequest, error) {
	var raw rawValidateRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return ValidateRequest{}, &shapeError{status: 400, message: "Invalid JSON body"}
		}
	}

	var (
		req      ValidateRequest
		problems []string
	)

	if !stringField(raw.CountryCode, &req.CountryCode) {
		problems = append(problems, "'countryCode' is required")
	} else if utf8.RuneCountInString(req.CountryCode) != 2 {
		problems = append(problems, "Country code must be 2 characters")
	}

	if !stringField(raw.VAT, &req.VAT) {
		problems = append(problems, "'vat' is required")
	} else if utf8.RuneCountInString(req.VAT) < 3 {
		problems = append(problems, "VAT number must be at least 3 characters")
	}

	if len(problems) > 0 {
		return ValidateRequest{}, &shapeError{status: 400, message: strings.Join(problems, ", ")}
	}
	return req, nil
}

func stringField(raw json.RawMessage, dst *string) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// checkFormat verifies the VAT number against the country's expected shape.
func checkFormat(req ValidateRequest) error {
	country, ok := domain.LookupCountry(req.CountryCode)
	if !ok || country.Code != req.CountryCode {
		return &shapeError{status: 501, message: fmt.Sprintf("Unsupported country code %s", req.CountryCode)}
	}
	if !country.Matches(req.VAT) {
		return &shapeError{status: 400, message: fmt.Sprintf("Invalid VAT number for country %s", req.CountryCode)}
	}
	return nil
}
