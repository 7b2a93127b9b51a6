// Package services is the typed client for the reading platform REST backend.
//
// # Client
//
// [Client] exposes one method per backend operation (books, episodes, coins, purchases,
// history, notifications and auth). Every request carries the static app-level
// `Authorization: Basic ...` header built from the configured credentials, waits on a
// token-bucket [rate.Limiter], and decodes into an envelope type specific to the endpoint.
//
// The session bearer token issued by [Client.Login] is not attached to requests: the
// Authorization header is already taken by the app credentials. The backend identifies
// the user by the userId field in each request instead.
//
// # Errors
//
// Every failure is an [*APIError] with a [ErrorKind]:
//   - [KindTransport] : the request never completed; matches [shared.ErrServiceUnavailable]
//   - [KindStatus] : non-2xx status, or a 2xx body whose status_code is a failure; matches [shared.ErrAPIRequest]
//   - [KindValidation] : rejected before sending; matches [shared.ErrInvalidInput]
//
// 401 and 403 additionally match [shared.ErrNotAuthenticated]; 404 on book and episode
// operations matches [shared.ErrBookNotFound] or [shared.ErrEpisodeNotFound].
//
// # Uploads
//
// Book and episode writes are multipart forms. Request structs are checked with
// go-playground/validator and attached files are sniffed with mimetype: covers must be
// JPEG or PNG, audio MP3, documents PDF.
//
// # Raw access
//
// [APIService] sends untyped GET and POST requests with the same Basic header for the
// `folio api` debugging commands.
package services
