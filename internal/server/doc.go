// Package server provides HTTP routing, middleware, and the handlers for
// the mood service's inbound operations.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern. [BasicRouter] delegates to
// [http.ServeMux] with method-qualified patterns.
//
// # Handlers
//
// [App] bundles the pipeline engine and configuration behind three
// operations: POST /recommendations, POST /export/top-tracks-features, and
// GET /health. Errors surface as FastAPI-style {"detail": ...} payloads
// with the status chosen by [shared.StatusFor].
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization-code callback flow used by
// the auth helper command: it validates the state parameter, exchanges the
// code for a token, and delivers the result through a channel. Only one
// callback is processed per handler instance.
package server
