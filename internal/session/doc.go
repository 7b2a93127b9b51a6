// Package session owns the login session and the gate in front of protected operations.
//
// [Store] keeps the current [models.Session] in memory and mirrors it to a [Persister]
// (the sqlite session repository) so a login survives restarts. [Gate] resolves the
// persisted session once per process and answers Authenticated or Unauthenticated;
// [Gate.Guard] wraps CLI actions and the TUI consults [Gate.Resolve] before its first view.
//
// Tokens are unverified JWTs: only the exp claim is read, to discard stale sessions early.
package session
