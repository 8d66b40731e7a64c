package authsession

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation needs a token and none is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSuperseded is returned when a completion lost to a more recent call.
	ErrSuperseded = errors.New("operation superseded by a newer call")
	// ErrInvalidResponse is returned when a success response does not have the expected shape.
	ErrInvalidResponse = errors.New("invalid response payload")
	// ErrManagerNotReady is returned by methods called on a nil or unbuilt manager.
	ErrManagerNotReady = errors.New("session manager not initialized")
	// ErrTransportRequired is returned by Build without a transport.
	ErrTransportRequired = errors.New("transport required")
	// ErrStoreRequired is returned by Build without a persistent store.
	ErrStoreRequired = errors.New("persistent store required")
	// ErrStoreFailure wraps persistent store errors surfaced by the manager.
	ErrStoreFailure = errors.New("persistent store failure")
)

// ErrorKind classifies a failed operation.
type ErrorKind uint8

const (
	// KindUnknown: the call failed without a structured server message, or the
	// response did not have the expected shape.
	KindUnknown ErrorKind = iota
	// KindRemote: the server answered with a structured error message.
	KindRemote
	// KindSessionInvalidated: a profile fetch failed and the session was reset.
	KindSessionInvalidated
	// KindSuperseded: the completion was discarded in favour of a newer call.
	KindSuperseded
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindRemote:
		return "remote"
	case KindSessionInvalidated:
		return "session_invalidated"
	case KindSuperseded:
		return "superseded"
	default:
		return "invalid"
	}
}

// Op names a manager operation.
type Op string

const (
	OpLogin          Op = "login"
	OpRegister       Op = "register"
	OpLogout         Op = "logout"
	OpProfile        Op = "profile"
	OpUpdateProfile  Op = "update_profile"
	OpChangePassword Op = "change_password"
	OpInit           Op = "init"
)

// AuthError is the tagged failure of a manager operation. Error returns
// Message unchanged, so a remote message is surfaced verbatim.
type AuthError struct {
	Op      Op
	Kind    ErrorKind
	Message string
	// Status is the HTTP status of the remote answer, 0 when none was received.
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf returns the kind of an *AuthError anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return KindUnknown, false
}

// IsRemote reports whether err carries a server-supplied message.
func IsRemote(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindRemote
}

// IsSessionInvalidated reports whether err caused a forced logout.
func IsSessionInvalidated(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindSessionInvalidated
}
