package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-0123456789abcdef")

func TestSignAndVerifyAccessToken(t *testing.T) {
	now := time.Now().UTC()
	raw, expiresIn, err := signAccessToken(testSecret, "user-123", 15*time.Minute, now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if expiresIn != 900 {
		t.Errorf("expiresIn = %d, want 900", expiresIn)
	}

	sub, err := VerifyAccess(testSecret, raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "user-123" {
		t.Errorf("sub = %q, want user-123", sub)
	}
}

func TestVerifyAccessRejectsExpired(t *testing.T) {
	issued := time.Now().UTC().Add(-time.Hour)
	raw, _, err := signAccessToken(testSecret, "user-123", 15*time.Minute, issued)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyAccess(testSecret, raw); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestVerifyAccessAllowsSmallClockDrift(t *testing.T) {
	// expired 2s ago, within the 5s leeway
	issued := time.Now().UTC().Add(-15*time.Minute - 2*time.Second)
	raw, _, err := signAccessToken(testSecret, "user-123", 15*time.Minute, issued)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyAccess(testSecret, raw); err != nil {
		t.Fatalf("token inside leeway rejected: %v", err)
	}
}

func TestVerifyAccessRejectsWrongSecret(t *testing.T) {
	raw, _, err := signAccessToken(testSecret, "user-123", 15*time.Minute, time.Now().UTC())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyAccess([]byte("another-secret"), raw); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestVerifyAccessRejectsWrongTokenType(t *testing.T) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": "user-123",
		"iat": now.Unix(),
		"exp": now.Add(15 * time.Minute).Unix(),
		"typ": "refresh",
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyAccess(testSecret, raw); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestVerifyAccessRejectsMissingExpiry(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "user-123",
		"typ": accessTokenType,
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyAccess(testSecret, raw); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestVerifyAccessRejectsMissingSubject(t *testing.T) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(15 * time.Minute).Unix(),
		"typ": accessTokenType,
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyAccess(testSecret, raw); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestVerifyAccessRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := VerifyAccess(testSecret, raw); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("VerifyAccess(%q): got %v, want ErrUnauthorized", raw, err)
		}
	}
}
