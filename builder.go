package authsession

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/authsession/internal/audit"
	"github.com/MrEthical07/authsession/internal/logging"
	"github.com/MrEthical07/authsession/jwt"
)

// Builder assembles a [Manager]. A Builder can be used for a single Build.
type Builder struct {
	config    Config
	transport Transport
	store     PersistentStore
	logger    *slog.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithTransport sets the HTTP collaborator. Required.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithStore sets the persistent store. Required.
func (b *Builder) WithStore(s PersistentStore) *Builder {
	b.store = s
	return b
}

// WithLogger sets the structured logger. Records are stamped with the request
// id carried by the operation context. Without a logger nothing is logged.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit sink. Events flow only when Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the remote call latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the time source used for latency and token expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration, wires the manager and rehydrates the
// session from the store. No network call is made.
//
// A store read failure is returned together with nil; the caller may retry
// with a fresh Builder.
func (b *Builder) Build(ctx context.Context) (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.transport == nil {
		return nil, ErrTransportRequired
	}
	if b.store == nil {
		return nil, ErrStoreRequired
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		config:    cfg,
		transport: b.transport,
		store:     b.store,
		logger:    logging.Wrap(b.logger),
		metrics:   NewMetrics(cfg.Metrics),
		inspector: jwt.NewInspector(),
		now:       now,
	}
	m.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	if err := m.rehydrate(ctx); err != nil {
		m.Close()
		return nil, err
	}

	b.built = true
	return m, nil
}
