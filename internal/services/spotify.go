// Spotify Web API implementation of [Catalog]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/piper-ml/piper/internal/shared"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	// TrendingPlaylistID is the default playlist for playlist-sourced exports.
	TrendingPlaylistID = "37i9dQZF1DXbVhgADFy3im"

	requestTimeout  = 20 * time.Second
	featuresPerPage = 100 // upstream cap on /audio-features?ids=
	tracksPerPage   = 50

	// maxRetries is the number of extra attempts after a 429.
	maxRetries = 3

	minBackoff     = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
	defaultBackoff = time.Second
)

// forbiddenRules is the 403 classification contract, evaluated top to bottom.
// The substrings are copied from observed upstream responses and are treated
// as a documented contract; both inputs arrive lowercased.
var forbiddenRules = []struct {
	name  string
	match func(wwwAuth, message string) bool
	kind  error
}{
	{
		"insufficient_scope header",
		func(h, _ string) bool { return strings.Contains(h, "insufficient_scope") },
		shared.ErrInsufficientScope,
	},
	{
		"invalid_token header",
		func(h, _ string) bool { return strings.Contains(h, "invalid_token") },
		shared.ErrTokenInvalid,
	},
	{
		"insufficient scope message",
		func(_, m string) bool { return strings.Contains(m, "insufficient") && strings.Contains(m, "scope") },
		shared.ErrInsufficientScope,
	},
	{
		"unregistered user message",
		func(_, m string) bool { return strings.Contains(m, "not registered") },
		shared.ErrUserNotRegistered,
	},
}

// SpotifyService implements [Catalog] against the Spotify Web API.
//
// The service holds no per-user state; the delegated access token is passed
// on every call. A [rate.Limiter] paces all outbound requests.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// SpotifyOpts contains options for creating a [SpotifyService]. Zero values
// select deployment defaults.
type SpotifyOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	RateLimit  float64 // outbound requests per second
	Logger     *log.Logger
}

// NewSpotifyService creates a new Spotify catalog client.
func NewSpotifyService(opts SpotifyOpts) *SpotifyService {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: requestTimeout}
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &SpotifyService{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		logger:     opts.Logger,
		sleep:      sleepContext,
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// do performs one paced, authenticated GET and returns the raw response.
func (s *SpotifyService) do(ctx context.Context, token, path string, params url.Values) (int, http.Header, []byte, error) {
	if token == "" {
		return 0, nil, nil, fmt.Errorf("%w: access token", shared.ErrMissingArgument)
	}

	apiURL := s.baseURL + path
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%s: %w: %v", path, shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%s: %w: %v", path, shared.ErrUpstream, err)
	}

	return resp.StatusCode, resp.Header, body, nil
}

// get performs a classified GET and decodes the JSON body into result.
func (s *SpotifyService) get(ctx context.Context, token, path string, params url.Values, result any) error {
	status, header, body, err := s.do(ctx, token, path, params)
	if err != nil {
		return err
	}
	if err := classifyResponse(path, status, header, body); err != nil {
		return err
	}
	return decodeBody(path, body, result)
}

// getWithRetry is like get, but on 429 it sleeps for the Retry-After hint
// (clamped) and retries, up to maxRetries extra attempts. After the budget
// is exhausted the 429 classifies to [shared.ErrRateLimited] as usual.
func (s *SpotifyService) getWithRetry(ctx context.Context, token, path string, params url.Values, result any) error {
	for attempt := 0; ; attempt++ {
		status, header, body, err := s.do(ctx, token, path, params)
		if err != nil {
			return err
		}

		if status == http.StatusTooManyRequests && attempt < maxRetries {
			wait := retryAfterDelay(header.Get("Retry-After"))
			s.logger.Warn("rate limited, backing off", "path", path, "wait", wait, "attempt", attempt+1)
			if err := s.sleep(ctx, wait); err != nil {
				return fmt.Errorf("%s: %w: %v", path, shared.ErrRateLimited, err)
			}
			continue
		}

		if err := classifyResponse(path, status, header, body); err != nil {
			return err
		}
		return decodeBody(path, body, result)
	}
}

// classifyResponse maps an upstream response to the shared error taxonomy.
// Returns nil for 2xx.
func classifyResponse(path string, status int, header http.Header, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	traceID := header.Get("sp-trace-id")

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", path, shared.ErrTokenInvalid)

	case http.StatusForbidden:
		wwwAuth := strings.ToLower(header.Get("www-authenticate"))
		message := errorMessage(body)
		lowered := strings.ToLower(message)
		for _, rule := range forbiddenRules {
			if rule.match(wwwAuth, lowered) {
				return fmt.Errorf("%s: %w", path, rule.kind)
			}
		}

		detail := shared.Truncate(firstNonEmpty(message, string(body), http.StatusText(status)))
		if traceID != "" {
			detail += " | sp-trace-id: " + shared.Truncate(traceID)
		}
		if wwwAuth != "" {
			detail += " | www-authenticate: " + shared.Truncate(wwwAuth)
		}
		return fmt.Errorf("%s: %w: %s", path, shared.ErrForbidden, detail)

	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", path, shared.ErrRateLimited)

	default:
		detail := shared.Truncate(firstNonEmpty(errorMessage(body), string(body), http.StatusText(status)))
		if traceID != "" {
			detail += " | sp-trace-id: " + shared.Truncate(traceID)
		}
		return fmt.Errorf("%s: %w: status %d: %s", path, shared.ErrUpstream, status, detail)
	}
}

// errorMessage extracts error.message from an upstream error payload.
func errorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error.Message
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// retryAfterDelay converts a Retry-After header to a clamped backoff.
func retryAfterDelay(header string) time.Duration {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(header), 64)
	if header == "" || err != nil {
		return defaultBackoff
	}
	d := time.Duration(seconds * float64(time.Second))
	if d < minBackoff {
		return minBackoff
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decodeBody(path string, body []byte, result any) error {
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%s: %w: failed to decode response: %v", path, shared.ErrUpstream, err)
	}
	return nil
}

// TopTracks retrieves the user's top tracks for the given time range.
func (s *SpotifyService) TopTracks(ctx context.Context, token string, limit int, timeRange string) ([]Track, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("time_range", timeRange)

	var response struct {
		Items []Track `json:"items"`
	}
	if err := s.get(ctx, token, "/me/top/tracks", params, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

// AudioFeaturesBatch retrieves audio features for the given track ids,
// chunked to the upstream batch limit. Null or id-less records are dropped;
// the caller is expected to retry any id missing from the result per-track.
func (s *SpotifyService) AudioFeaturesBatch(ctx context.Context, token string, ids []string) (map[string]AudioFeatures, error) {
	out := make(map[string]AudioFeatures)

	filtered := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			filtered = append(filtered, id)
		}
	}

	for start := 0; start < len(filtered); start += featuresPerPage {
		end := min(start+featuresPerPage, len(filtered))
		chunk := filtered[start:end]

		params := url.Values{}
		params.Set("ids", strings.Join(chunk, ","))

		var response struct {
			AudioFeatures []*AudioFeatures `json:"audio_features"`
		}
		if err := s.getWithRetry(ctx, token, "/audio-features", params, &response); err != nil {
			return nil, err
		}

		for _, f := range response.AudioFeatures {
			if f != nil && f.ID != "" {
				out[f.ID] = *f
			}
		}
	}

	return out, nil
}

// AudioFeature retrieves the audio features of a single track. The record
// may come back without an id when the upstream has nothing for the track;
// callers treat that as a miss, not an error.
func (s *SpotifyService) AudioFeature(ctx context.Context, token, id string) (*AudioFeatures, error) {
	var features AudioFeatures
	if err := s.getWithRetry(ctx, token, "/audio-features/"+id, nil, &features); err != nil {
		return nil, err
	}
	return &features, nil
}

// PlaylistTracks retrieves up to limit tracks from a playlist, paging
// through the upstream in 50-item requests with a narrow field projection.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, token, playlistID string, limit int) ([]Track, error) {
	target := max(0, min(200, limit))
	if target == 0 {
		return nil, nil
	}

	var tracks []Track
	offset := 0
	for len(tracks) < target {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(tracksPerPage))
		params.Set("offset", strconv.Itoa(offset))
		params.Set("fields", "items(track(id,name,artists(name))),next")

		var page struct {
			Items []struct {
				Track *Track `json:"track"`
			} `json:"items"`
			Next *string `json:"next"`
		}
		if err := s.get(ctx, token, "/playlists/"+playlistID+"/tracks", params, &page); err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			if item.Track != nil && item.Track.ID != "" {
				tracks = append(tracks, *item.Track)
			}
			if len(tracks) >= target {
				break
			}
		}

		if page.Next == nil {
			break
		}
		offset += tracksPerPage
	}

	if len(tracks) > target {
		tracks = tracks[:target]
	}
	return tracks, nil
}

// RecommendedTracks retrieves seed-genre recommendations.
func (s *SpotifyService) RecommendedTracks(ctx context.Context, token string, limit int, seedGenres []string) ([]Track, error) {
	target := max(0, min(100, limit))
	if target == 0 {
		return nil, nil
	}

	seeds := make([]string, 0, len(seedGenres))
	for _, g := range seedGenres {
		if strings.TrimSpace(g) != "" {
			seeds = append(seeds, g)
		}
	}
	if len(seeds) > 5 {
		seeds = seeds[:5]
	}
	if len(seeds) == 0 {
		seeds = []string{"pop", "dance", "rock"}
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(target))
	params.Set("market", "IN")
	params.Set("seed_genres", strings.Join(seeds, ","))

	var response struct {
		Tracks []Track `json:"tracks"`
	}
	if err := s.get(ctx, token, "/recommendations", params, &response); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(response.Tracks))
	for _, t := range response.Tracks {
		if t.ID != "" {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

// SearchTracks retrieves tracks matching the given queries, at most six of
// which are issued, stopping once limit tracks are collected.
func (s *SpotifyService) SearchTracks(ctx context.Context, token string, limit int, queries []string) ([]Track, error) {
	target := max(0, min(50, limit))
	if target == 0 {
		return nil, nil
	}

	if len(queries) == 0 {
		queries = []string{"Top hits", "Bollywood", "Punjabi hits", "India top songs"}
	}
	if len(queries) > 6 {
		queries = queries[:6]
	}

	var out []Track
	for _, q := range queries {
		if len(out) >= target {
			break
		}

		params := url.Values{}
		params.Set("q", q)
		params.Set("type", "track")
		params.Set("limit", strconv.Itoa(min(50, target-len(out))))
		params.Set("market", "IN")

		var response struct {
			Tracks struct {
				Items []Track `json:"items"`
			} `json:"tracks"`
		}
		if err := s.get(ctx, token, "/search", params, &response); err != nil {
			return nil, err
		}

		for _, t := range response.Tracks.Items {
			if t.ID != "" {
				out = append(out, t)
			}
		}
	}

	if len(out) > target {
		out = out[:target]
	}
	return out, nil
}
