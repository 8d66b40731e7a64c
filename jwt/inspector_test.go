package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("inspector-test-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestInspectRegisteredClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	iat := time.Now().Add(-time.Minute).Truncate(time.Second)
	token := signedToken(t, jwt.RegisteredClaims{
		Subject:   "42",
		Issuer:    "auth.example",
		Audience:  jwt.ClaimStrings{"web"},
		ID:        "jti-1",
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(iat),
	})

	claims, err := NewInspector().Inspect(token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if claims.Subject != "42" || claims.Issuer != "auth.example" || claims.ID != "jti-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "web" {
		t.Fatalf("unexpected audience: %v", claims.Audience)
	}
	if !claims.ExpiresAt.Equal(exp) || !claims.IssuedAt.Equal(iat) {
		t.Fatalf("unexpected times: exp=%v iat=%v", claims.ExpiresAt, claims.IssuedAt)
	}
	if !claims.NotBefore.IsZero() {
		t.Fatalf("expected zero nbf, got %v", claims.NotBefore)
	}
	if claims.Expired(time.Now()) {
		t.Fatal("token should not be expired")
	}
	if !claims.Expired(exp) {
		t.Fatal("token should be expired at exp")
	}
}

func TestInspectIgnoresSignature(t *testing.T) {
	token := signedToken(t, jwt.RegisteredClaims{Subject: "7"})
	tampered := token[:len(token)-2] + "xx"

	claims, err := NewInspector().Inspect(tampered)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if claims.Subject != "7" {
		t.Fatalf("expected subject 7, got %q", claims.Subject)
	}
}

func TestInspectOpaqueToken(t *testing.T) {
	for _, token := range []string{"", "opaque-token", "a.b", "a.b.c"} {
		if _, err := NewInspector().Inspect(token); !errors.Is(err, ErrNotJWT) {
			t.Fatalf("token %q: expected ErrNotJWT, got %v", token, err)
		}
	}
}

func TestClaimsWithoutExpiryNeverExpire(t *testing.T) {
	if (Claims{}).Expired(time.Now().Add(100 * 365 * 24 * time.Hour)) {
		t.Fatal("claims without exp must not report expired")
	}
}
