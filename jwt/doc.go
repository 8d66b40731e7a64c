// Package jwt reads registered claims from bearer tokens without verifying them.
//
// The session manager treats tokens as opaque credentials issued by a remote
// authority. When a token happens to be a JWT, [Inspector] exposes its subject,
// issuer and time claims for display and for token-source expiry hints. Nothing
// here is a security decision: signatures are never checked.
//
// # What this package must NOT do
//
//   - Reject or mutate tokens based on their claims.
//   - Import authsession (no upward imports).
package jwt
