// Package session turns backend authentication payloads into canonical
// Session values and keeps them.
//
// # Normalization
//
// Normalize never fails. A nil payload yields the anonymous session and a
// "normalize:missing-payload" warning; otherwise fields are copied one to
// one, expiresAt is parsed from ISO-8601, Modules keeps server order and is
// never nil, and MFARequired defaults to false.
//
// IsExpired is true only when the expiry is known and strictly before now.
// An unknown expiry is governed by UnknownExpiryIsExpired.
//
//	anonymous --Normalize(payload)--> active --expiry passes--> stale
//
// A stale session is never repaired; a new one comes from another
// Normalize call.
//
// # Storage
//
// MemoryStore and RedisStore implement Store. Both keep a session no longer
// than its remaining lifetime, capped at DefaultMaxAge. Holder keeps the
// current session of a single-user process such as a CLI. Reaper sweeps
// stale sessions on a cron schedule.
package session
