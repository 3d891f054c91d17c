package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Upstream access errors, classified from catalog API responses
	ErrTokenInvalid      = fmt.Errorf("spotify token invalid")
	ErrInsufficientScope = fmt.Errorf("spotify token missing required scope")
	ErrUserNotRegistered = fmt.Errorf("spotify user not registered for this app")
	ErrForbidden         = fmt.Errorf("spotify access forbidden")
	ErrRateLimited       = fmt.Errorf("spotify rate limited")
	ErrUpstream          = fmt.Errorf("spotify upstream error")

	// Pipeline errors for empty or unusable input at a given stage
	ErrNoTopTracks     = fmt.Errorf("no top tracks for user")
	ErrNoTrackIDs      = fmt.Errorf("no track ids in history")
	ErrNoAudioFeatures = fmt.Errorf("no audio features available")

	// Startup errors
	ErrModelNotLoaded = fmt.Errorf("model artifacts not loaded")
	ErrMissingConfig  = fmt.Errorf("configuration not found")
	ErrInvalidConfig  = fmt.Errorf("invalid configuration")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)

// DetailLimit bounds diagnostic strings taken from upstream payloads so a
// single oversized error body cannot blow up logs or responses.
const DetailLimit = 300

// Truncate returns s cut to at most DetailLimit bytes.
func Truncate(s string) string {
	if len(s) > DetailLimit {
		return s[:DetailLimit]
	}
	return s
}

// StatusFor maps the error taxonomy to an outward HTTP status code.
//
// Unrecognized errors map to 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInsufficientScope),
		errors.Is(err, ErrUserNotRegistered),
		errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNoTopTracks),
		errors.Is(err, ErrNoTrackIDs),
		errors.Is(err, ErrNoAudioFeatures),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrMissingArgument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
