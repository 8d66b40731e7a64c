package authsession

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/MrEthical07/authsession/internal/audit"
	"github.com/MrEthical07/authsession/transport"
)

// AuditEvent is one session lifecycle record delivered to an [AuditSink].
type AuditEvent = audit.Event

// AuditSink receives audit events from the manager's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards every event.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers events on a channel read through Events.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes events as JSON lines.
type JSONWriterSink = audit.JSONWriterSink

// LogSink logs events through slog.
type LogSink = audit.LogSink

// SinkFunc adapts a function to [AuditSink].
type SinkFunc = audit.SinkFunc

// FanoutSink delivers each event to several sinks.
type FanoutSink = audit.Fanout

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewLogSink logs successful events at level and failures one level higher.
func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	return audit.NewLogSink(logger, level)
}

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventRegisterSuccess       = "register_success"
	auditEventRegisterFailure       = "register_failure"
	auditEventLogout                = "logout"
	auditEventProfileSuccess        = "profile_success"
	auditEventProfileFailure        = "profile_failure"
	auditEventSessionInvalidated    = "session_invalidated"
	auditEventSessionRehydrated     = "session_rehydrated"
	auditEventUpdateProfileSuccess  = "update_profile_success"
	auditEventUpdateProfileFailure  = "update_profile_failure"
	auditEventChangePasswordSuccess = "change_password_success"
	auditEventChangePasswordFailure = "change_password_failure"
	auditEventCompletionSuperseded  = "completion_superseded"
)

func (m *Manager) emitAudit(ctx context.Context, eventType string, op Op, err error, metadata map[string]string) {
	if m == nil || m.audit == nil {
		return
	}

	event := AuditEvent{
		EventType: eventType,
		Operation: string(op),
		Success:   err == nil,
		Metadata:  metadata,
	}
	if id, ok := transport.RequestID(ctx); ok {
		event.RequestID = id
	}
	if err != nil {
		var ae *AuthError
		if errors.As(err, &ae) {
			event.ErrorKind = ae.Kind.String()
			event.Status = ae.Status
		} else {
			event.ErrorKind = KindUnknown.String()
		}
	}

	m.audit.Emit(ctx, event)
}
