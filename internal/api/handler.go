// Package api exposes VAT validation over HTTP.
package api

import (
	"context"
	_ "embed"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vietddude/vatcheck/internal/core/domain"
)

//go:embed openapi.yaml
var openAPISpec []byte

// maxBodyBytes bounds inbound request bodies.
const maxBodyBytes = 64 << 10

// Validator is the validation entry point the API delegates to.
type Validator interface {
	Validate(ctx context.Context, countryCode, vatNumber string) (bool, error)
	SupportedCountries() []string
	Owner(countryCode string) (string, bool)
}

// Handler handles VAT validation endpoints.
type Handler struct {
	logger         *slog.Logger
	validator      Validator
	requestTimeout time.Duration
}

// New creates a new Handler. A zero requestTimeout disables the bound.
func New(validator Validator, logger *slog.Logger, requestTimeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		validator:      validator,
		requestTimeout: requestTimeout,
	}
}

// Router builds the full HTTP handler with middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(Recovery(h.logger))
	r.Use(middleware.RealIP)
	r.Use(Logger(h.logger))
	r.Use(ResponseTime)
	r.Use(SecureHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed)
	})

	h.Register(r)
	return r
}

// Register registers the VAT routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api-spec", h.handleAPISpec)
	r.Get("/v1/countries", h.handleCountries)

	r.Group(func(r chi.Router) {
		r.Use(h.validateShape)
		r.Post("/", h.handleValidate)
		r.Post("/v1/vat/validate", h.handleValidate)
	})
}

type validateRequestKey struct{}

// validateShape rejects malformed requests before any authority is contacted.
func (h *Handler) validateShape(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeStatus(w, http.StatusRequestEntityTooLarge)
				return
			}
			writeError(w, &shapeError{status: http.StatusBadRequest, message: "Invalid request body"})
			return
		}

		req, err := parseValidateRequest(body)
		if err == nil {
			err = checkFormat(req)
		}
		if err != nil {
			h.logger.WarnContext(r.Context(), "rejected validation request",
				"request_id", RequestID(r.Context()),
				"error", err.Error(),
			)
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), validateRequestKey{}, req)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := ctx.Value(validateRequestKey{}).(ValidateRequest)
	if !ok {
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	valid, err := h.validator.Validate(ctx, req.CountryCode, req.VAT)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			h.logger.ErrorContext(ctx, "validation timed out",
				"request_id", RequestID(ctx),
				"country", req.CountryCode,
			)
			writeJSON(w, http.StatusGatewayTimeout, ErrorResponse{
				Code:    http.StatusGatewayTimeout,
				Message: "VAT validation timed out",
			})
			return
		}

		attrs := []any{
			"request_id", RequestID(ctx),
			"country", req.CountryCode,
			"error", err.Error(),
		}
		if ce, ok := domain.AsClassified(err); ok {
			attrs = append(attrs, "kind", ce.Kind, "authority", ce.Authority, "retryable", ce.Retryable)
		}
		h.logger.ErrorContext(ctx, "validation failed", attrs...)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newValidateResponse(valid))
}

func (h *Handler) handleCountries(w http.ResponseWriter, r *http.Request) {
	var out []CountryResponse
	for _, code := range h.validator.SupportedCountries() {
		owner, _ := h.validator.Owner(code)
		c := CountryResponse{Code: code, Authority: owner}
		if country, ok := domain.LookupCountry(code); ok {
			c.Name = country.Name
		}
		out = append(out, c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}
