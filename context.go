package authsession

import (
	"context"

	"github.com/MrEthical07/authsession/transport"
)

// WithRequestID attaches a request identifier to ctx. Manager operations
// generate one when ctx has none; the HTTP transport forwards it as
// X-Request-ID and it is recorded on log lines and audit events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return transport.WithRequestID(ctx, id)
}

// RequestIDFromContext returns the identifier attached by [WithRequestID].
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return transport.RequestID(ctx)
}
