package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/vatcheck/internal/core/domain"
)

func TestNewCoordinator_DuplicateCode(t *testing.T) {
	eu := &stubValidator{name: "vies", countries: []string{"DE", "FR"}}
	other := &stubValidator{name: "other", countries: []string{"fr"}}

	_, err := NewCoordinator(eu, other)
	if !errors.Is(err, ErrDuplicateValidator) {
		t.Fatalf("expected ErrDuplicateValidator, got %v", err)
	}
}

func TestCoordinator_RoutesUppercased(t *testing.T) {
	eu := &stubValidator{name: "vies", countries: []string{"de", "FR"}}
	ch := &stubValidator{name: "uid", countries: []string{"CH"}}

	c, err := NewCoordinator(eu, ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := c.Validate(context.Background(), "de", "DE129274202")
	if err != nil || !got {
		t.Fatalf("unexpected result %v, %v", got, err)
	}
	if eu.calls != 1 || ch.calls != 0 {
		t.Errorf("expected one call to vies, got vies=%d uid=%d", eu.calls, ch.calls)
	}
	if eu.lastCode != "DE" || eu.lastVAT != "DE129274202" {
		t.Errorf("unexpected delegated args %q %q", eu.lastCode, eu.lastVAT)
	}

	if _, err := c.Validate(context.Background(), "CH", "CHE-116.281.710"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.calls != 1 {
		t.Errorf("expected one call to uid, got %d", ch.calls)
	}
}

func TestCoordinator_Unsupported(t *testing.T) {
	eu := &stubValidator{name: "vies", countries: []string{"DE"}}
	c, _ := NewCoordinator(eu)

	_, err := c.Validate(context.Background(), "us", "123456789")

	ce, ok := domain.AsClassified(err)
	if !ok || ce.Kind != domain.KindUnsupported {
		t.Fatalf("expected unsupported error, got %v", err)
	}
	if ce.Retryable {
		t.Error("unsupported errors must not be retryable")
	}
	if eu.calls != 0 {
		t.Errorf("expected no delegation, got %d calls", eu.calls)
	}
}

func TestCoordinator_PassesErrorsThrough(t *testing.T) {
	fault := &domain.ClassifiedError{Kind: domain.KindRemoteFault, Message: "EU VAT API error: X"}
	eu := &stubValidator{name: "vies", countries: []string{"DE"}, results: []error{fault}}
	c, _ := NewCoordinator(eu)

	_, err := c.Validate(context.Background(), "DE", "DE129274202")
	if err != fault {
		t.Errorf("expected the validator's error unchanged, got %v", err)
	}
}

func TestCoordinator_Introspection(t *testing.T) {
	eu := &stubValidator{name: "vies", countries: []string{"FR", "DE"}}
	ch := &stubValidator{name: "uid", countries: []string{"CH"}}
	c, _ := NewCoordinator(eu, ch)

	codes := c.SupportedCountries()
	want := []string{"CH", "DE", "FR"}
	if len(codes) != len(want) {
		t.Fatalf("expected %v, got %v", want, codes)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("expected %v, got %v", want, codes)
		}
	}

	owner, ok := c.Owner("ch")
	if !ok || owner.Name() != "uid" {
		t.Errorf("expected uid to own CH, got %v", owner)
	}
	if len(c.Validators()) != 2 {
		t.Errorf("expected 2 validators, got %d", len(c.Validators()))
	}
}
