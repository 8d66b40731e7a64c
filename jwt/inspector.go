package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when a token is not a decodable JWT.
var ErrNotJWT = errors.New("token is not a jwt")

// Claims holds the registered claims of an unverified token. Zero times mean
// the claim was absent.
type Claims struct {
	Subject   string    `json:"sub,omitempty"`
	Issuer    string    `json:"iss,omitempty"`
	Audience  []string  `json:"aud,omitempty"`
	ID        string    `json:"jti,omitempty"`
	ExpiresAt time.Time `json:"exp,omitzero"`
	IssuedAt  time.Time `json:"iat,omitzero"`
	NotBefore time.Time `json:"nbf,omitzero"`
}

// Expired reports whether the exp claim is set and not after now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !c.ExpiresAt.After(now)
}

// Inspector decodes tokens with an unverifying parser.
type Inspector struct {
	parser *jwt.Parser
}

// NewInspector returns an Inspector. JSON numbers in custom claims decode as
// json.Number so large identifiers are not rounded.
func NewInspector() *Inspector {
	return &Inspector{parser: jwt.NewParser(jwt.WithJSONNumber())}
}

// Inspect decodes the registered claims of token.
func (i *Inspector) Inspect(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return Claims{}, ErrNotJWT
	}

	var rc jwt.RegisteredClaims
	if _, _, err := i.parser.ParseUnverified(token, &rc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	out := Claims{
		Subject:  rc.Subject,
		Issuer:   rc.Issuer,
		Audience: []string(rc.Audience),
		ID:       rc.ID,
	}
	if rc.ExpiresAt != nil {
		out.ExpiresAt = rc.ExpiresAt.Time
	}
	if rc.IssuedAt != nil {
		out.IssuedAt = rc.IssuedAt.Time
	}
	if rc.NotBefore != nil {
		out.NotBefore = rc.NotBefore.Time
	}
	return out, nil
}
