package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authsession"
	"github.com/MrEthical07/authsession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is satisfied by *authsession.Manager. A source that also
// reports IsAuthenticated gets the session state gauge.
type MetricsSource interface {
	MetricsSnapshot() authsession.MetricsSnapshot
	AuditDropped() uint64
}

// reading ties one instrument to the value it reports from a collection.
type reading struct {
	instrument metric.Int64Observable
	value      func(c *collection) int64
}

// collection is the state read once per callback and shared by every reading.
type collection struct {
	snapshot authsession.MetricsSnapshot
	dropped  uint64
	buckets  map[authsession.MetricID][8]uint64
}

func (c *collection) cumulative(id authsession.MetricID) [8]uint64 {
	if b, ok := c.buckets[id]; ok {
		return b
	}
	b := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(c.snapshot.Histograms[id]))
	c.buckets[id] = b
	return b
}

// OTelExporter publishes session metrics through observable instruments read
// in a single callback per collection.
type OTelExporter struct {
	source       MetricsSource
	readings     []reading
	registration metric.Registration
}

// NewOTelExporter registers instruments on meter that read from manager.
func NewOTelExporter(meter metric.Meter, manager *authsession.Manager) (*OTelExporter, error) {
	if manager == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, manager)
}

// NewOTelExporterFromSource registers instruments that read from source.
func NewOTelExporterFromSource(meter metric.Meter, source MetricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}

	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		if err := e.counter(meter, def.Name, def.Help, func(c *collection) int64 {
			return int64(c.snapshot.Counters[id])
		}); err != nil {
			return nil, err
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		id := def.ID
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			i := i
			if err := e.gauge(meter, def.Name+"_bucket_le_"+suffix, "Cumulative histogram bucket count.", func(c *collection) int64 {
				return int64(c.cumulative(id)[i])
			}); err != nil {
				return nil, err
			}
		}
		if err := e.gauge(meter, def.Name+"_count", "Histogram total sample count.", func(c *collection) int64 {
			b := c.cumulative(id)
			return int64(b[len(b)-1])
		}); err != nil {
			return nil, err
		}
	}

	if err := e.counter(meter, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, func(c *collection) int64 {
		return int64(c.dropped)
	}); err != nil {
		return nil, err
	}

	if _, ok := internaldefs.SessionGauge(source); ok {
		if err := e.gauge(meter, internaldefs.SessionAuthenticatedName, internaldefs.SessionAuthenticatedHelp, func(*collection) int64 {
			v, _ := internaldefs.SessionGauge(e.source)
			return v
		}); err != nil {
			return nil, err
		}
	}

	observables := make([]metric.Observable, len(e.readings))
	for i, r := range e.readings {
		observables[i] = r.instrument
	}
	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) counter(meter metric.Meter, name, help string, value func(*collection) int64) error {
	ins, err := meter.Int64ObservableCounter(name, metric.WithDescription(help))
	if err != nil {
		return fmt.Errorf("create observable counter %s: %w", name, err)
	}
	e.readings = append(e.readings, reading{instrument: ins, value: value})
	return nil
}

func (e *OTelExporter) gauge(meter metric.Meter, name, help string, value func(*collection) int64) error {
	ins, err := meter.Int64ObservableGauge(name, metric.WithDescription(help))
	if err != nil {
		return fmt.Errorf("create observable gauge %s: %w", name, err)
	}
	e.readings = append(e.readings, reading{instrument: ins, value: value})
	return nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	c := &collection{
		snapshot: e.source.MetricsSnapshot(),
		dropped:  e.source.AuditDropped(),
		buckets:  make(map[authsession.MetricID][8]uint64, len(internaldefs.HistogramDefs)),
	}
	for _, r := range e.readings {
		observer.ObserveInt64(r.instrument, r.value(c))
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
