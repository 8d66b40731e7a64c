// Package transport provides the HTTP request client used by authsession to talk
// to the remote authentication service.
//
// [Client] issues JSON requests against a base URL and carries a mutable set of
// default headers applied to every outgoing request. The Authorization header is
// managed through [Client.SetAuthHeader] and [Client.ClearAuthHeader] so the
// session manager can install or drop the bearer credential without touching
// any process-wide state.
//
// Non-2xx answers are returned as [*StatusError] carrying the settled
// [Response]; callers decide how to interpret the body.
//
// # What this package must NOT do
//
//   - Import authsession (no upward imports).
//   - Retry requests or interpret authentication semantics.
//   - Own timeouts beyond the configured http.Client.
package transport
