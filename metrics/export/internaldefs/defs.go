package internaldefs

import (
	"github.com/MrEthical07/authsession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authsession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   authsession.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const (
	AuditDroppedName = "authsession_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// SessionAuthenticatedName is the 0/1 gauge of whether a token is held.
const (
	SessionAuthenticatedName = "authsession_session_authenticated"
	SessionAuthenticatedHelp = "1 while the manager holds a token, 0 when anonymous."
)

// StateSource is implemented by sources that can report the session state.
// *authsession.Manager implements it.
type StateSource interface {
	IsAuthenticated() bool
}

// SessionGauge returns the session gauge value and whether source reports it.
func SessionGauge(source any) (int64, bool) {
	s, ok := source.(StateSource)
	if !ok {
		return 0, false
	}
	if s.IsAuthenticated() {
		return 1, true
	}
	return 0, true
}

// CounterDefs lists every counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: authsession.MetricLoginSuccess, Name: "authsession_login_success_total", Help: "Logins that committed a token."},
	{ID: authsession.MetricLoginFailure, Name: "authsession_login_failure_total", Help: "Logins that left the session unchanged."},
	{ID: authsession.MetricRegisterSuccess, Name: "authsession_register_success_total", Help: "Successful registrations."},
	{ID: authsession.MetricRegisterFailure, Name: "authsession_register_failure_total", Help: "Failed registrations."},
	{ID: authsession.MetricLogout, Name: "authsession_logout_total", Help: "Explicit logouts."},
	{ID: authsession.MetricProfileSuccess, Name: "authsession_profile_success_total", Help: "Successful profile fetches."},
	{ID: authsession.MetricProfileFailure, Name: "authsession_profile_failure_total", Help: "Failed profile fetches."},
	{ID: authsession.MetricSessionInvalidated, Name: "authsession_session_invalidated_total", Help: "Sessions reset after a failed profile fetch."},
	{ID: authsession.MetricSessionRehydrated, Name: "authsession_session_rehydrated_total", Help: "Sessions restored from the persistent store."},
	{ID: authsession.MetricUpdateProfileSuccess, Name: "authsession_update_profile_success_total", Help: "Successful profile updates."},
	{ID: authsession.MetricUpdateProfileFailure, Name: "authsession_update_profile_failure_total", Help: "Failed profile updates."},
	{ID: authsession.MetricChangePasswordSuccess, Name: "authsession_change_password_success_total", Help: "Successful password changes."},
	{ID: authsession.MetricChangePasswordFailure, Name: "authsession_change_password_failure_total", Help: "Failed password changes."},
	{ID: authsession.MetricCompletionSuperseded, Name: "authsession_completion_superseded_total", Help: "Completions discarded in favour of a newer call."},
	{ID: authsession.MetricStoreFailure, Name: "authsession_store_failure_total", Help: "Persistent store errors."},
}

// HistogramDefs lists every histogram.
var HistogramDefs = []HistogramDef{
	{ID: authsession.MetricRemoteLatency, Name: "authsession_remote_latency_seconds", Help: "Remote authentication service round-trip latency."},
}

// HistogramBounds are the upper bounds of the eight latency buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as instrument name suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies up to eight raw buckets; missing ones are zero.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
