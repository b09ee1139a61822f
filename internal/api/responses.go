package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vietddude/vatcheck/internal/core/domain"
)

const (
	detailsValid   = "VAT number is valid for the given country code."
	detailsInvalid = "VAT number is invalid for the given country code."
)

// ValidateResponse is returned when an authority answered.
type ValidateResponse struct {
	Validated bool   `json:"validated"`
	Details   string `json:"details"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CountryResponse describes a routable country.
type CountryResponse struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Authority string `json:"authority"`
}

func newValidateResponse(valid bool) ValidateResponse {
	if valid {
		return ValidateResponse{Validated: true, Details: detailsValid}
	}
	return ValidateResponse{Validated: false, Details: detailsInvalid}
}

// StatusFor maps a validation error onto an HTTP status code.
func StatusFor(err error) int {
	var se *shapeError
	if errors.As(err, &se) {
		return se.status
	}

	switch domain.KindOf(err) {
	case domain.KindUnsupported:
		return http.StatusNotImplemented
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, ErrorResponse{Code: status, Message: message})
}

func writeStatus(w http.ResponseWriter, status int) {
	writeJSON(w, status, ErrorResponse{Code: status, Message: http.StatusText(status)})
}
