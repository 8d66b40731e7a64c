package authsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/authsession/internal/audit"
	"github.com/MrEthical07/authsession/jwt"
	"github.com/MrEthical07/authsession/transport"
)

// Manager owns the client-side authentication session: the in-memory token and
// user, the persisted token and the Authorization header on the transport.
//
// The three are changed together under one lock, so no caller ever observes
// the store holding a token the transport does not carry, or the reverse.
// Remote calls run without the lock held.
type Manager struct {
	config    Config
	transport Transport
	store     PersistentStore
	logger    *slog.Logger
	metrics   *Metrics
	audit     *audit.Dispatcher
	inspector *jwt.Inspector
	now       func() time.Time

	mu      sync.Mutex
	token   string
	user    UserProfile
	version uint64
}

/*
====================================
LOGIN / REGISTER
====================================
*/

type loginEnvelope struct {
	AccessToken string          `json:"access_token"`
	User        json.RawMessage `json:"user"`
}

// Login posts credentials to the login endpoint. On success the token is
// persisted, installed on the transport and held in memory, and the raw
// response body is returned. On any failure the session is left unchanged.
//
// A structured remote rejection yields an *AuthError of KindRemote whose
// message is the server text; anything else yields KindUnknown with the
// configured login failure message.
func (m *Manager) Login(ctx context.Context, credentials Credentials) (Payload, error) {
	if m == nil {
		return nil, ErrManagerNotReady
	}
	ctx, _ = transport.EnsureRequestID(ctx)
	version := m.advance()

	m.logger.DebugContext(ctx, "login started", "op", OpLogin)

	resp, err := m.call(ctx, func(ctx context.Context) (*transport.Response, error) {
		return m.transport.Post(ctx, m.config.Endpoints.Login, credentials)
	})
	if err != nil {
		return nil, m.loginFailed(ctx, m.remoteFailure(OpLogin, m.config.Messages.LoginFailed, err))
	}

	var env loginEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil || env.AccessToken == "" {
		cause := ErrInvalidResponse
		if err != nil {
			cause = fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
		return nil, m.loginFailed(ctx, &AuthError{
			Op:      OpLogin,
			Kind:    KindUnknown,
			Message: m.config.Messages.LoginFailed,
			Status:  resp.StatusCode,
			Err:     cause,
		})
	}
	user := normalizeUser(env.User)

	m.mu.Lock()
	if m.stale(version) {
		m.mu.Unlock()
		return nil, m.superseded(ctx, OpLogin)
	}
	if err := m.store.Set(ctx, m.config.Store.TokenKey, env.AccessToken); err != nil {
		m.mu.Unlock()
		m.metrics.Inc(MetricStoreFailure)
		return nil, m.loginFailed(ctx, &AuthError{
			Op:      OpLogin,
			Kind:    KindUnknown,
			Message: m.config.Messages.LoginFailed,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("%w: %w", ErrStoreFailure, err),
		})
	}
	m.token = env.AccessToken
	m.user = user
	m.transport.SetAuthHeader(m.authValue(env.AccessToken))
	m.mu.Unlock()

	m.metrics.Inc(MetricLoginSuccess)
	m.emitAudit(ctx, auditEventLoginSuccess, OpLogin, nil, nil)
	m.logger.InfoContext(ctx, "session authenticated", "op", OpLogin, "has_user", user != nil)

	return cloneRaw(resp.Body), nil
}

func (m *Manager) loginFailed(ctx context.Context, err *AuthError) error {
	m.metrics.Inc(MetricLoginFailure)
	m.emitAudit(ctx, auditEventLoginFailure, OpLogin, err, nil)
	m.logger.WarnContext(ctx, "login failed",
		"op", OpLogin,
		"kind", err.Kind.String(),
		"status", err.Status,
		"error", err.Unwrap(),
	)
	return err
}

// Register posts registration data and returns the raw response body. It never
// changes the session; a caller wanting to be logged in must call Login.
func (m *Manager) Register(ctx context.Context, data RegistrationData) (Payload, error) {
	if m == nil {
		return nil, ErrManagerNotReady
	}
	ctx, _ = transport.EnsureRequestID(ctx)

	m.logger.DebugContext(ctx, "register started", "op", OpRegister)

	resp, err := m.call(ctx, func(ctx context.Context) (*transport.Response, error) {
		return m.transport.Post(ctx, m.config.Endpoints.Register, data)
	})
	if err != nil {
		fail := m.remoteFailure(OpRegister, m.config.Messages.RegisterFailed, err)
		m.metrics.Inc(MetricRegisterFailure)
		m.emitAudit(ctx, auditEventRegisterFailure, OpRegister, fail, nil)
		m.logger.WarnContext(ctx, "register failed", "op", OpRegister, "kind", fail.Kind.String(), "status", fail.Status)
		return nil, fail
	}

	m.metrics.Inc(MetricRegisterSuccess)
	m.emitAudit(ctx, auditEventRegisterSuccess, OpRegister, nil, nil)
	m.logger.InfoContext(ctx, "registered", "op", OpRegister)

	return cloneRaw(resp.Body), nil
}

/*
====================================
LOGOUT
====================================
*/

// Logout resets the session to anonymous, removes the persisted token and
// clears the transport Authorization header. It makes no network call and is
// idempotent. A store removal error is logged and counted, never returned.
func (m *Manager) Logout(ctx context.Context) {
	if m == nil {
		return
	}
	ctx, _ = transport.EnsureRequestID(ctx)

	m.mu.Lock()
	m.version++
	wasAuthenticated := m.token != ""
	m.resetLocked(ctx)
	m.mu.Unlock()

	m.metrics.Inc(MetricLogout)
	m.emitAudit(ctx, auditEventLogout, OpLogout, nil, nil)
	m.logger.InfoContext(ctx, "session cleared", "op", OpLogout, "was_authenticated", wasAuthenticated)
}

// resetLocked moves to anonymous. Callers hold m.mu.
func (m *Manager) resetLocked(ctx context.Context) {
	m.token = ""
	m.user = nil
	if err := m.store.Remove(ctx, m.config.Store.TokenKey); err != nil {
		m.metrics.Inc(MetricStoreFailure)
		m.logger.WarnContext(ctx, "persisted token not removed", "error", err)
	}
	m.transport.ClearAuthHeader()
}

/*
====================================
PROFILE
====================================
*/

// Profile fetches the current user with whatever credential the transport
// carries and stores it on the session. The token is never touched on success.
//
// On failure the session is invalidated according to Config.ProfileFailure and
// the returned *AuthError carries the configured profile failure message. A
// success body without a "user" member counts as a failure.
func (m *Manager) Profile(ctx context.Context) (Payload, error) {
	if m == nil {
		return nil, ErrManagerNotReady
	}
	ctx, _ = transport.EnsureRequestID(ctx)
	version := m.currentVersion()

	m.logger.DebugContext(ctx, "profile started", "op", OpProfile)

	resp, err := m.call(ctx, func(ctx context.Context) (*transport.Response, error) {
		return m.transport.Get(ctx, m.config.Endpoints.Profile)
	})

	var user UserProfile
	if err == nil {
		user, err = decodeUserMember(resp.Body)
	}

	m.mu.Lock()
	if m.stale(version) {
		m.mu.Unlock()
		return nil, m.superseded(ctx, OpProfile)
	}

	if err != nil {
		status := statusOf(err)
		if m.config.ProfileFailure == ProfileFailureLogoutOnRejection &&
			status != http.StatusUnauthorized && status != http.StatusForbidden {
			m.mu.Unlock()
			fail := &AuthError{Op: OpProfile, Kind: KindUnknown, Message: m.config.Messages.ProfileFailed, Status: status, Err: err}
			m.metrics.Inc(MetricProfileFailure)
			m.emitAudit(ctx, auditEventProfileFailure, OpProfile, fail, nil)
			m.logger.WarnContext(ctx, "profile fetch failed, session kept", "op", OpProfile, "status", status, "error", err)
			return nil, fail
		}

		m.version++
		m.resetLocked(ctx)
		m.mu.Unlock()

		fail := &AuthError{Op: OpProfile, Kind: KindSessionInvalidated, Message: m.config.Messages.ProfileFailed, Status: status, Err: err}
		m.metrics.Inc(MetricProfileFailure)
		m.metrics.Inc(MetricSessionInvalidated)
		m.emitAudit(ctx, auditEventSessionInvalidated, OpProfile, fail, nil)
		m.logger.WarnContext(ctx, "profile fetch failed, session invalidated", "op", OpProfile, "status", status, "error", err)
		return nil, fail
	}

	applied := m.token != ""
	if applied {
		m.user = user
	}
	m.mu.Unlock()

	m.metrics.Inc(MetricProfileSuccess)
	m.emitAudit(ctx, auditEventProfileSuccess, OpProfile, nil, map[string]string{
		"applied": fmt.Sprint(applied),
	})
	m.logger.InfoContext(ctx, "profile fetched", "op", OpProfile, "applied", applied)

	return cloneRaw(resp.Body), nil
}

// UpdateProfile sends fields to the profile update endpoint. When the response
// carries a "user" member and the session that issued the call is still
// current, the stored user is replaced. Failures never change the session.
func (m *Manager) UpdateProfile(ctx context.Context, fields any) (Payload, error) {
	if m == nil {
		return nil, ErrManagerNotReady
	}
	ctx, _ = transport.EnsureRequestID(ctx)

	m.mu.Lock()
	issuedWith := m.token
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "profile update started", "op", OpUpdateProfile)

	resp, err := m.call(ctx, func(ctx context.Context) (*transport.Response, error) {
		return m.transport.Put(ctx, m.config.Endpoints.UpdateProfile, fields)
	})
	if err != nil {
		fail := m.remoteFailure(OpUpdateProfile, m.config.Messages.UpdateProfileFailed, err)
		m.metrics.Inc(MetricUpdateProfileFailure)
		m.emitAudit(ctx, auditEventUpdateProfileFailure, OpUpdateProfile, fail, nil)
		m.logger.WarnContext(ctx, "profile update failed", "op", OpUpdateProfile, "kind", fail.Kind.String(), "status", fail.Status)
		return nil, fail
	}

	applied := false
	if user, derr := decodeUserMember(resp.Body); derr == nil {
		m.mu.Lock()
		if m.token != "" && m.token == issuedWith {
			m.user = user
			applied = true
		}
		m.mu.Unlock()
	}

	m.metrics.Inc(MetricUpdateProfileSuccess)
	m.emitAudit(ctx, auditEventUpdateProfileSuccess, OpUpdateProfile, nil, map[string]string{
		"applied": fmt.Sprint(applied),
	})
	m.logger.InfoContext(ctx, "profile updated", "op", OpUpdateProfile, "applied", applied)

	return cloneRaw(resp.Body), nil
}

// ChangePassword posts a password change request. The session is unchanged
// whatever the outcome.
func (m *Manager) ChangePassword(ctx context.Context, data any) (Payload, error) {
	if m == nil {
		return nil, ErrManagerNotReady
	}
	ctx, _ = transport.EnsureRequestID(ctx)

	resp, err := m.call(ctx, func(ctx context.Context) (*transport.Response, error) {
		return m.transport.Post(ctx, m.config.Endpoints.ChangePassword, data)
	})
	if err != nil {
		fail := m.remoteFailure(OpChangePassword, m.config.Messages.ChangePasswordFailed, err)
		m.metrics.Inc(MetricChangePasswordFailure)
		m.emitAudit(ctx, auditEventChangePasswordFailure, OpChangePassword, fail, nil)
		m.logger.WarnContext(ctx, "password change failed", "op", OpChangePassword, "kind", fail.Kind.String(), "status", fail.Status)
		return nil, fail
	}

	m.metrics.Inc(MetricChangePasswordSuccess)
	m.emitAudit(ctx, auditEventChangePasswordSuccess, OpChangePassword, nil, nil)
	m.logger.InfoContext(ctx, "password changed", "op", OpChangePassword)

	return cloneRaw(resp.Body), nil
}

/*
====================================
REHYDRATE
====================================
*/

// Init re-installs the held token on the transport. It never reads the store,
// so a logout stays final even when its store removal failed. An anonymous
// manager is left as is. Init is idempotent and makes no network call.
func (m *Manager) Init(ctx context.Context) error {
	if m == nil {
		return ErrManagerNotReady
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" {
		m.transport.SetAuthHeader(m.authValue(m.token))
	}
	return nil
}

// rehydrate restores a persisted token into a freshly built manager with an
// unknown user. Only Build calls it.
func (m *Manager) rehydrate(ctx context.Context) error {
	ctx, _ = transport.EnsureRequestID(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok, err := m.store.Get(ctx, m.config.Store.TokenKey)
	if err != nil {
		m.metrics.Inc(MetricStoreFailure)
		m.logger.WarnContext(ctx, "persisted token not readable", "op", OpInit, "error", err)
		return &AuthError{
			Op:      OpInit,
			Kind:    KindUnknown,
			Message: "failed to read persisted session",
			Err:     fmt.Errorf("%w: %w", ErrStoreFailure, err),
		}
	}
	if !ok || token == "" {
		return nil
	}

	m.token = token
	m.user = nil
	m.transport.SetAuthHeader(m.authValue(token))

	m.metrics.Inc(MetricSessionRehydrated)
	m.emitAudit(ctx, auditEventSessionRehydrated, OpInit, nil, nil)
	m.logger.InfoContext(ctx, "session rehydrated", "op", OpInit)
	return nil
}

/*
====================================
ACCESSORS
====================================
*/

// Session returns a consistent snapshot of the current state.
func (m *Manager) Session() Session {
	if m == nil {
		return Session{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Session{
		User:            cloneRaw(m.user),
		Token:           m.token,
		IsAuthenticated: m.token != "",
	}
}

// State reports whether the manager currently holds a token.
func (m *Manager) State() State {
	return m.Session().State()
}

// IsAuthenticated reports whether a token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.Session().IsAuthenticated
}

// Token returns the held token, or "" when anonymous.
func (m *Manager) Token() string {
	return m.Session().Token
}

// User returns the last fetched profile, or nil when unknown.
func (m *Manager) User() UserProfile {
	return m.Session().User
}

// Claims decodes the held token as an unverified JWT. The result is
// informational; the remote service remains the only authority on validity.
func (m *Manager) Claims() (jwt.Claims, error) {
	token := m.Token()
	if token == "" {
		return jwt.Claims{}, ErrNotAuthenticated
	}
	return m.inspector.Inspect(token)
}

// MetricsSnapshot returns a copy of the in-process counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

// AuditDropped returns the number of audit events lost to backpressure.
func (m *Manager) AuditDropped() uint64 {
	if m == nil {
		return 0
	}
	return m.audit.Dropped()
}

// Close flushes pending audit events. The session itself is left as is.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.audit.Close()
}

/*
====================================
HELPERS
====================================
*/

func (m *Manager) advance() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
	return m.version
}

func (m *Manager) currentVersion() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// stale reports whether a completion captured at version must be discarded.
// Callers hold m.mu.
func (m *Manager) stale(version uint64) bool {
	return m.config.Sequencing == SequenceCallOrder && m.version != version
}

func (m *Manager) superseded(ctx context.Context, op Op) error {
	err := &AuthError{Op: op, Kind: KindSuperseded, Message: m.config.Messages.Superseded, Err: ErrSuperseded}
	m.metrics.Inc(MetricCompletionSuperseded)
	m.emitAudit(ctx, auditEventCompletionSuperseded, op, err, nil)
	m.logger.InfoContext(ctx, "completion discarded", "op", op)
	return err
}

func (m *Manager) authValue(token string) string {
	return m.config.Header.Scheme + " " + token
}

func (m *Manager) call(ctx context.Context, fn func(context.Context) (*transport.Response, error)) (*transport.Response, error) {
	start := m.now()
	resp, err := fn(ctx)
	m.metrics.Observe(MetricRemoteLatency, m.now().Sub(start))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrInvalidResponse
	}
	return resp, nil
}

// remoteFailure maps a transport error to an *AuthError, surfacing the
// server message verbatim when the body is {"error": "..."}.
func (m *Manager) remoteFailure(op Op, fallback string, err error) *AuthError {
	out := &AuthError{Op: op, Kind: KindUnknown, Message: fallback, Err: err}

	var se *transport.StatusError
	if errors.As(err, &se) {
		out.Status = se.StatusCode()
		if msg, ok := se.RemoteMessage(); ok {
			out.Kind = KindRemote
			out.Message = msg
		}
	}
	return out
}

func statusOf(err error) int {
	var se *transport.StatusError
	if errors.As(err, &se) {
		return se.StatusCode()
	}
	return 0
}

// decodeUserMember extracts the "user" member of a JSON object body. A missing
// member or a body that is not an object is ErrInvalidResponse.
func decodeUserMember(body []byte) (UserProfile, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: body is not an object", ErrInvalidResponse)
	}
	raw, ok := obj["user"]
	if !ok {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidResponse)
	}
	return normalizeUser(raw), nil
}

// String renders the state without the token.
func (m *Manager) String() string {
	s := m.Session()
	return fmt.Sprintf("authsession.Manager{state=%s user_known=%t}", s.State(), s.User != nil)
}
