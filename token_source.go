package authsession

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

type managerTokenSource struct {
	m *Manager
}

// TokenSource exposes the held token as an oauth2.TokenSource. Each call reads
// the current session, so a logout is observed immediately. When the token is
// a JWT its exp claim becomes the token Expiry.
func (m *Manager) TokenSource() oauth2.TokenSource {
	return managerTokenSource{m: m}
}

func (s managerTokenSource) Token() (*oauth2.Token, error) {
	if s.m == nil {
		return nil, ErrManagerNotReady
	}
	token := s.m.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	out := &oauth2.Token{
		AccessToken: token,
		TokenType:   s.m.config.Header.Scheme,
	}
	if claims, err := s.m.inspector.Inspect(token); err == nil {
		out.Expiry = claims.ExpiresAt
	}
	return out, nil
}

// HTTPClient returns a client that authorizes every request with the session
// token, for calling other services that accept the same credential. Requests
// fail with ErrNotAuthenticated while the session is anonymous.
//
// The token is read per request rather than through oauth2.ReuseTokenSource,
// which would keep sending a token after Logout. An *http.Client stored in ctx
// under oauth2.HTTPClient supplies the base round tripper.
func (m *Manager) HTTPClient(ctx context.Context) *http.Client {
	base := http.DefaultTransport
	if ctx != nil {
		if hc, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && hc != nil && hc.Transport != nil {
			base = hc.Transport
		}
	}
	return &http.Client{
		Transport: &oauth2.Transport{Source: m.TokenSource(), Base: base},
	}
}
