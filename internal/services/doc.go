// Package services defines the [Catalog] interface for the upstream music
// catalog and implements it for the Spotify Web API.
//
// # Catalog Interface
//
// The pipeline consumes catalog data through [Catalog], so engines can be
// tested against a double without a live upstream.
//
// # Spotify Implementation
//
// [SpotifyService] issues bearer-token GET requests with a fixed timeout and
// client-side pacing via [rate.Limiter]. Every response is classified into
// the shared error taxonomy before the body is decoded:
//
//   - 401 : [shared.ErrTokenInvalid]
//   - 403 : ordered predicate table over www-authenticate and the error
//     message ([forbiddenRules]), falling back to [shared.ErrForbidden]
//   - 429 : [shared.ErrRateLimited]
//   - any other non-2xx : [shared.ErrUpstream] with status and diagnostics
//
// Diagnostic strings lifted from upstream payloads are truncated to
// [shared.DetailLimit] before they are attached to an error.
//
// # Retry Behavior
//
// Audio-feature endpoints go through a retrying variant that honors
// Retry-After on 429 (clamped to [0.5s, 30s], default 1s) for a bounded
// number of extra attempts. All other endpoints fail fast so interactive
// callers see throttling immediately.
package services
