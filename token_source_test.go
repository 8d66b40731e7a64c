package authsession

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/authsession/store"
	gojwt "github.com/golang-jwt/jwt/v5"
)

func signedTestToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{
		Subject:   "user-7",
		Issuer:    "auth.example.com",
		ExpiresAt: gojwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret-test-secret-test-sec"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestTokenSourceAnonymous(t *testing.T) {
	m := buildTestManager(t, DefaultConfig(), newFakeTransport(nil), store.NewMemory(nil))

	if _, err := m.TokenSource().Token(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := m.Claims(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated from Claims, got %v", err)
	}
}

func TestTokenSourceCarriesJWTExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := signedTestToken(t, exp)
	m := buildTestManager(t, DefaultConfig(), newFakeTransport(nil), store.NewMemory(map[string]string{"token": raw}))

	tok, err := m.TokenSource().Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok.AccessToken != raw || tok.Type() != "Bearer" {
		t.Fatalf("unexpected token %+v", tok)
	}
	if !tok.Expiry.Equal(exp) {
		t.Fatalf("expected expiry %v, got %v", exp, tok.Expiry)
	}

	claims, err := m.Claims()
	if err != nil {
		t.Fatalf("Claims failed: %v", err)
	}
	if claims.Subject != "user-7" || claims.Issuer != "auth.example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokenSourceOpaqueTokenHasNoExpiry(t *testing.T) {
	m := buildTestManager(t, DefaultConfig(), newFakeTransport(nil), store.NewMemory(map[string]string{"token": "opaque"}))

	tok, err := m.TokenSource().Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if !tok.Expiry.IsZero() {
		t.Fatalf("expected zero expiry, got %v", tok.Expiry)
	}
}

func TestHTTPClientFollowsSession(t *testing.T) {
	seen := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := buildTestManager(t, DefaultConfig(), newFakeTransport(nil), store.NewMemory(map[string]string{"token": "T"}))
	client := m.HTTPClient(context.Background())

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
	if got := <-seen; got != "Bearer T" {
		t.Fatalf("expected Bearer T, got %q", got)
	}

	m.Logout(context.Background())
	if _, err := client.Get(srv.URL); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated after logout, got %v", err)
	}
}
