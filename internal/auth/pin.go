package auth

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

var pinTracer = otel.Tracer("clinic.internal.auth.pin")

// ErrMalformedPIN is returned for PINs that are not 4 to 8 digits.
var ErrMalformedPIN = errors.New("pin must be 4 to 8 digits")

// PINSource lists the bcrypt hashes of every active PIN.
type PINSource interface {
	ActivePINHashes(ctx context.Context) ([]string, error)
}

// PINVerifier checks a submitted PIN against the active PIN codes.
type PINVerifier struct {
	source PINSource
}

// NewPINVerifier creates a verifier.
func NewPINVerifier(source PINSource) *PINVerifier {
	return &PINVerifier{source: source}
}

// ValidPINFormat reports whether pin is 4 to 8 ASCII digits.
func ValidPINFormat(pin string) bool {
	if len(pin) < 4 || len(pin) > 8 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Verify reports whether pin matches any active PIN.
func (v *PINVerifier) Verify(ctx context.Context, pin string) (bool, error) {
	ctx, span := pinTracer.Start(ctx, "pin.verify")
	defer span.End()

	if !ValidPINFormat(pin) {
		return false, ErrMalformedPIN
	}
	hashes, err := v.source.ActivePINHashes(ctx)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("load pin codes: %w", err)
	}
	span.SetAttributes(attribute.Int("clinic.active_pins", len(hashes)))

	for _, h := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(pin)) == nil {
			return true, nil
		}
	}
	return false, nil
}

// HashPIN returns the bcrypt hash stored for a PIN code.
func HashPIN(pin string) (string, error) {
	if !ValidPINFormat(pin) {
		return "", ErrMalformedPIN
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(b), nil
}
