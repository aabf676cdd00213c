package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := NewTokenSigner(key)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}

	token, claims, err := signer.Sign(42, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != claims || got.UserID != 42 {
		t.Fatalf("unexpected claims %+v", got)
	}

	// Same key material verifies across signer instances.
	other, _ := NewTokenSigner("0x" + key)
	if _, err := other.Verify(token); err != nil {
		t.Fatalf("verify with reloaded key: %v", err)
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	signer, _ := NewTokenSigner("")
	token, _, _ := signer.Sign(1, time.Hour)

	forged, _, _ := signer.Sign(2, time.Hour)
	mixed := strings.Split(forged, ".")[0] + "." + strings.Split(token, ".")[1]
	if _, err := signer.Verify(mixed); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}

	stranger, _ := NewTokenSigner("")
	if _, err := stranger.Verify(token); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected foreign key rejected, got %v", err)
	}

	for _, bad := range []string{"", "abc", "a.b.c", "!!.??"} {
		if _, err := signer.Verify(bad); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("%q: expected ErrTokenMalformed, got %v", bad, err)
		}
	}
}

func TestTokenKeyValidation(t *testing.T) {
	if _, err := NewTokenSigner("zz"); err == nil {
		t.Fatalf("expected hex error")
	}
	if _, err := NewTokenSigner("abcd"); err == nil {
		t.Fatalf("expected length error")
	}
}
