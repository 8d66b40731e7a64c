package authsession

import (
	"errors"
	"strings"
)

// Config defines the behaviour of a [Manager].
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Endpoints      EndpointConfig
	Store          StoreConfig
	Header         HeaderConfig
	Messages       MessageConfig
	Sequencing     SequencingPolicy
	ProfileFailure ProfileFailurePolicy
	Audit          AuditConfig
	Metrics        MetricsConfig
}

/*
====================================
ENDPOINT CONFIG
====================================
*/

// EndpointConfig holds the remote paths consumed by the manager, relative to
// the transport base URL.
type EndpointConfig struct {
	Login          string
	Register       string
	Profile        string
	UpdateProfile  string
	ChangePassword string
}

/*
====================================
STORE / HEADER CONFIG
====================================
*/

// StoreConfig controls how the token is persisted.
type StoreConfig struct {
	TokenKey string
}

// HeaderConfig controls the Authorization header value: "<Scheme> <token>".
type HeaderConfig struct {
	Scheme string
}

/*
====================================
MESSAGES
====================================
*/

// MessageConfig holds the fixed messages surfaced when the remote service gives
// no structured error.
type MessageConfig struct {
	LoginFailed          string
	RegisterFailed       string
	ProfileFailed        string
	UpdateProfileFailed  string
	ChangePasswordFailed string
	Superseded           string
}

/*
====================================
POLICIES
====================================
*/

// SequencingPolicy decides what happens when operations overlap.
type SequencingPolicy uint8

const (
	// SequenceCompletionOrder applies every completion; the one that settles
	// last wins. A login that resolves after a logout re-authenticates.
	SequenceCompletionOrder SequencingPolicy = iota
	// SequenceCallOrder discards completions overtaken by a more recent call.
	SequenceCallOrder
)

func (p SequencingPolicy) String() string {
	switch p {
	case SequenceCompletionOrder:
		return "completion_order"
	case SequenceCallOrder:
		return "call_order"
	default:
		return "invalid"
	}
}

// ProfileFailurePolicy decides which profile failures invalidate the session.
type ProfileFailurePolicy uint8

const (
	// ProfileFailureLogout treats any profile failure as an invalid session.
	ProfileFailureLogout ProfileFailurePolicy = iota
	// ProfileFailureLogoutOnRejection only logs out when the remote service
	// answers 401 or 403; transport errors and other statuses leave the session.
	ProfileFailureLogoutOnRejection
)

func (p ProfileFailurePolicy) String() string {
	switch p {
	case ProfileFailureLogout:
		return "logout"
	case ProfileFailureLogoutOnRejection:
		return "logout_on_rejection"
	default:
		return "invalid"
	}
}

/*
====================================
AUDIT / METRICS
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration matching the remote service contract:
// /api/auth endpoints, a "token" store key and Bearer credentials.
func DefaultConfig() Config {
	return Config{
		Endpoints: EndpointConfig{
			Login:          "/api/auth/login",
			Register:       "/api/auth/register",
			Profile:        "/api/auth/profile",
			UpdateProfile:  "/api/profile/profile",
			ChangePassword: "/api/profile/profile/change-password",
		},
		Store: StoreConfig{
			TokenKey: "token",
		},
		Header: HeaderConfig{
			Scheme: "Bearer",
		},
		Messages: MessageConfig{
			LoginFailed:          "login failed",
			RegisterFailed:       "registration failed",
			ProfileFailed:        "failed to fetch user info",
			UpdateProfileFailed:  "failed to update profile",
			ChangePasswordFailed: "failed to change password",
			Superseded:           "operation superseded by a newer call",
		},
		Sequencing:     SequenceCompletionOrder,
		ProfileFailure: ProfileFailureLogout,
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	endpoints := map[string]string{
		"Login":          c.Endpoints.Login,
		"Register":       c.Endpoints.Register,
		"Profile":        c.Endpoints.Profile,
		"UpdateProfile":  c.Endpoints.UpdateProfile,
		"ChangePassword": c.Endpoints.ChangePassword,
	}
	for _, name := range []string{"Login", "Register", "Profile", "UpdateProfile", "ChangePassword"} {
		if strings.TrimSpace(endpoints[name]) == "" {
			return errors.New("Endpoints " + name + " must be set")
		}
	}

	if strings.TrimSpace(c.Store.TokenKey) == "" {
		return errors.New("Store TokenKey must be set")
	}

	scheme := c.Header.Scheme
	if strings.TrimSpace(scheme) == "" {
		return errors.New("Header Scheme must be set")
	}
	if strings.ContainsAny(scheme, " \t\r\n") {
		return errors.New("Header Scheme must not contain whitespace")
	}

	if c.Messages.LoginFailed == "" ||
		c.Messages.RegisterFailed == "" ||
		c.Messages.ProfileFailed == "" ||
		c.Messages.UpdateProfileFailed == "" ||
		c.Messages.ChangePasswordFailed == "" ||
		c.Messages.Superseded == "" {
		return errors.New("Messages must all be non-empty")
	}

	if c.Sequencing > SequenceCallOrder {
		return errors.New("unsupported Sequencing policy")
	}
	if c.ProfileFailure > ProfileFailureLogoutOnRejection {
		return errors.New("unsupported ProfileFailure policy")
	}

	if c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must be >= 0")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
