package authsession

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MrEthical07/authsession/transport"
)

// State is the logical state of a [Session].
type State uint8

const (
	// StateAnonymous means no token is held.
	StateAnonymous State = iota
	// StateAuthenticated means a token is held; the profile may still be unknown.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// UserProfile is the opaque user record returned by the remote service. It is
// never inspected by the manager; use [Decode] to read it.
type UserProfile = json.RawMessage

// Payload is the raw JSON body of a successful remote call.
type Payload = json.RawMessage

// Credentials are passed to the login endpoint unexamined.
type Credentials = any

// RegistrationData is passed to the register endpoint unexamined.
type RegistrationData = any

// Session is a point-in-time snapshot of the manager state.
//
// IsAuthenticated is true exactly when Token is non-empty. User is nil when
// anonymous and may be nil while authenticated until a profile is fetched.
type Session struct {
	User            UserProfile `json:"user"`
	Token           string      `json:"token,omitempty"`
	IsAuthenticated bool        `json:"is_authenticated"`
}

// State returns the logical state of the snapshot.
func (s Session) State() State {
	if s.IsAuthenticated {
		return StateAuthenticated
	}
	return StateAnonymous
}

// Transport is the HTTP-calling collaborator. Non-2xx answers must be reported
// as *transport.StatusError so remote error messages can be surfaced.
//
// [transport.Client] is the production implementation.
type Transport interface {
	Post(ctx context.Context, path string, body any) (*transport.Response, error)
	Put(ctx context.Context, path string, body any) (*transport.Response, error)
	Get(ctx context.Context, path string) (*transport.Response, error)
	SetAuthHeader(value string)
	ClearAuthHeader()
	AuthHeader() (string, bool)
}

// PersistentStore is durable key-value storage surviving process restarts.
// Each call is atomic on its own.
//
// The store package provides memory, file and Redis implementations and an
// encrypting wrapper for any of them.
type PersistentStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Decode unmarshals a raw JSON value such as a [UserProfile] or [Payload].
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, errors.New("authsession: empty json value")
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

// normalizeUser maps an absent or JSON null user to nil.
func normalizeUser(raw json.RawMessage) UserProfile {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return cloneRaw(raw)
}
