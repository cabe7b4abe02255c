package protocol

import (
	"errors"
	"testing"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrProtoTooLarge,
		ErrDecode,
		ErrRateLimit,
		ErrInternal,
		ErrNoDecision,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestVariantError_UnwrapsSentinel(t *testing.T) {
	var err error = &VariantError{Type: "Action"}
	if !errors.Is(err, ErrVariantInvariant) {
		t.Fatalf("expected ErrVariantInvariant, got %v", err)
	}
	err = &VariantError{Type: "Action", Fields: []string{"walk", "speak"}}
	if !errors.Is(err, ErrVariantInvariant) {
		t.Fatalf("expected ErrVariantInvariant, got %v", err)
	}
}
