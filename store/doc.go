// Package store provides durable key-value backends for the authsession token slot.
//
// Every backend satisfies the authsession PersistentStore contract: Get reports
// whether a key is present, Set overwrites, Remove is idempotent. Individual calls
// are atomic; no transaction spans multiple keys.
//
//   - [Memory] keeps values in process memory (tests, ephemeral tools).
//   - [File] keeps a JSON object on disk and replaces it atomically on write.
//   - [Redis] keeps values under a key prefix in Redis, optionally with a TTL.
//   - [Sealed] wraps any [Backend] and encrypts values with a key derived
//     from a passphrase (argon2id, XChaCha20-Poly1305).
//
// # What this package must NOT do
//
//   - Import authsession (no upward imports).
//   - Interpret stored values; tokens are opaque strings here. [Sealed] only
//     encrypts them.
package store
