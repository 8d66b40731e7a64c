// Package authsession keeps the authentication session of a client application:
// the token issued by a remote authentication service, the user profile it
// returned, and the Authorization header carried by outgoing requests.
//
// A [Manager] is assembled by a [Builder] with a [Transport] and a
// [PersistentStore]. Build restores a persisted token without touching the
// network, so a restarted process resumes authenticated.
//
// Methods are safe for concurrent use. Remote calls run without locks; their
// completions are applied atomically. [SequencingPolicy] decides whether an
// older completion may overwrite the effect of a newer call.
//
// # Architecture boundaries
//
// authsession is the public surface. Concrete transports and stores live in the
// transport and store sub-packages; audit dispatch and log correlation live
// under internal/.
//
// # What this package must NOT do
//
//   - Verify token signatures or schedule refreshes; the remote service is the
//     only authority on validity.
//   - Inspect the user profile beyond extracting it from responses.
//   - Log or audit tokens or credentials.
//   - Keep a package-level manager.
package authsession
