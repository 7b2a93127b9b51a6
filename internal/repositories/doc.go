// Package repositories implements SQLite persistence for the client's local state.
//
// The backend owns every domain record; the client stores only what must survive a restart:
//   - [SessionRepository] : the live login session (user profile and bearer token). At most one
//     row is live; logging in again retires the previous row with a soft delete.
//   - [PreferenceRepository] : per-user settings such as the saved genre selection.
//
// Tables are created by the embedded migrations in the shared package.
package repositories
