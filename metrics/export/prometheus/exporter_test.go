package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authsession"
	"github.com/MrEthical07/authsession/store"
	"github.com/MrEthical07/authsession/transport"
)

type fakeSource struct {
	snapshot authsession.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authsession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authsession.MetricsSnapshot{
			Counters:   map[authsession.MetricID]uint64{},
			Histograms: map[authsession.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authsession.MetricsSnapshot{
			Counters: map[authsession.MetricID]uint64{
				authsession.MetricLoginSuccess:       7,
				authsession.MetricSessionInvalidated: 2,
			},
			Histograms: map[authsession.MetricID][]uint64{
				authsession.MetricRemoteLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"authsession_login_success_total 7",
		"authsession_session_invalidated_total 2",
		"authsession_logout_total 0",
		`authsession_remote_latency_seconds_bucket{le="0.005"} 1`,
		`authsession_remote_latency_seconds_bucket{le="+Inf"} 36`,
		"authsession_remote_latency_seconds_count 36",
		"authsession_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authsession.MetricsSnapshot{
			Counters:   map[authsession.MetricID]uint64{authsession.MetricLoginSuccess: 1},
			Histograms: map[authsession.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", rec.Code)
	}
}

type loginTransport struct{}

func (loginTransport) Post(context.Context, string, any) (*transport.Response, error) {
	return &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{"access_token":"t","user":null}`)}, nil
}
func (loginTransport) Put(context.Context, string, any) (*transport.Response, error) {
	return nil, http.ErrNotSupported
}
func (loginTransport) Get(context.Context, string) (*transport.Response, error) {
	return nil, http.ErrNotSupported
}
func (loginTransport) SetAuthHeader(string)       {}
func (loginTransport) ClearAuthHeader()           {}
func (loginTransport) AuthHeader() (string, bool) { return "", false }

func TestExporterReadsManager(t *testing.T) {
	m, err := authsession.New().
		WithTransport(loginTransport{}).
		WithStore(store.NewMemory(nil)).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer m.Close()

	if _, err := m.Login(context.Background(), nil); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	exp := NewPrometheusExporter(m)
	out := exp.Render()
	if !strings.Contains(out, "authsession_login_success_total 1") {
		t.Fatalf("expected login counted, got:\n%s", out)
	}
	if !strings.Contains(out, "# TYPE authsession_session_authenticated gauge\nauthsession_session_authenticated 1\n") {
		t.Fatalf("expected authenticated gauge, got:\n%s", out)
	}

	m.Logout(context.Background())
	if out := exp.Render(); !strings.Contains(out, "authsession_session_authenticated 0\n") {
		t.Fatalf("expected anonymous gauge after logout, got:\n%s", out)
	}
}

type stateSource struct {
	fakeSource
	authenticated bool
}

func (s stateSource) IsAuthenticated() bool { return s.authenticated }

func TestRenderSessionGaugeWithMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(stateSource{
		fakeSource: fakeSource{snapshot: authsession.MetricsSnapshot{
			Counters:   map[authsession.MetricID]uint64{},
			Histograms: map[authsession.MetricID][]uint64{},
		}},
		authenticated: true,
	})

	out := exp.Render()
	if strings.Contains(out, "authsession_login_success_total") {
		t.Fatalf("expected no counters while metrics are disabled, got:\n%s", out)
	}
	if !strings.Contains(out, "authsession_session_authenticated 1") {
		t.Fatalf("expected session gauge, got:\n%s", out)
	}
}
