package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/authsession"
	"github.com/MrEthical07/authsession/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// MetricsSource is satisfied by *authsession.Manager. A source that also
// reports IsAuthenticated gets the session state gauge.
type MetricsSource interface {
	MetricsSnapshot() authsession.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders session metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source MetricsSource
}

// NewPrometheusExporter creates an exporter reading from manager.
func NewPrometheusExporter(manager *authsession.Manager) *PrometheusExporter {
	return &PrometheusExporter{source: manager}
}

// NewPrometheusExporterFromSource creates an exporter from a custom [MetricsSource].
func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves the rendered metrics. Only GET and HEAD are allowed.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
		default:
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", contentType)
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(p.Render()))
		}
	})
}

// Render returns the current metrics. With counters disabled, nothing dropped
// and no session state to report, it returns "".
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	authenticated, hasState := internaldefs.SessionGauge(p.source)
	metricsOff := len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0
	if metricsOff && dropped == 0 && !hasState {
		return ""
	}

	var e exposition
	e.Grow(4096)

	if !metricsOff {
		for _, def := range internaldefs.CounterDefs {
			e.family(def.Name, def.Help, "counter")
			e.sample(def.Name, "", snapshot.Counters[def.ID])
		}
		for _, def := range internaldefs.HistogramDefs {
			e.histogram(def.Name, def.Help, internaldefs.CumulativeBuckets(
				internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]),
			))
		}
	}

	e.family(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	e.sample(internaldefs.AuditDroppedName, "", dropped)

	if hasState {
		e.family(internaldefs.SessionAuthenticatedName, internaldefs.SessionAuthenticatedHelp, "gauge")
		e.sample(internaldefs.SessionAuthenticatedName, "", uint64(authenticated))
	}

	return e.String()
}

// exposition accumulates text format lines.
type exposition struct {
	strings.Builder
}

func (e *exposition) family(name, help, kind string) {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	e.WriteString("# HELP " + name + " " + help + "\n")
	e.WriteString("# TYPE " + name + " " + kind + "\n")
}

func (e *exposition) sample(name, labels string, value uint64) {
	e.WriteString(name)
	e.WriteString(labels)
	e.WriteByte(' ')
	e.WriteString(strconv.FormatUint(value, 10))
	e.WriteByte('\n')
}

// histogram writes cumulative buckets. The snapshot carries no sample sum,
// so _sum is always 0.
func (e *exposition) histogram(name, help string, cumulative [8]uint64) {
	e.family(name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		e.sample(name+"_bucket", `{le="`+le+`"}`, cumulative[i])
	}
	e.sample(name+"_count", "", cumulative[len(cumulative)-1])
	e.sample(name+"_sum", "", 0)
}
