package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/piper-ml/piper/internal/shared"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *SpotifyService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc := NewSpotifyService(SpotifyOpts{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		RateLimit:  10000,
		Logger:     shared.NewLogger(nil),
	})
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return svc
}

func TestClassifyResponse(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		if err := classifyResponse("/x", 200, http.Header{}, nil); err != nil {
			t.Errorf("expected nil for 2xx, got %v", err)
		}
	})

	t.Run("Unauthorized", func(t *testing.T) {
		err := classifyResponse("/me/top/tracks", 401, http.Header{}, nil)
		if !errors.Is(err, shared.ErrTokenInvalid) {
			t.Errorf("expected ErrTokenInvalid, got %v", err)
		}
		if !strings.Contains(err.Error(), "/me/top/tracks") {
			t.Error("expected path in error for diagnostics")
		}
	})

	t.Run("RateLimited", func(t *testing.T) {
		err := classifyResponse("/audio-features", 429, http.Header{}, nil)
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("Forbidden Rules", func(t *testing.T) {
		cases := []struct {
			name    string
			wwwAuth string
			body    string
			want    error
		}{
			{
				"ScopeHeader",
				`Bearer realm="spotify", error="insufficient_scope"`,
				`{}`,
				shared.ErrInsufficientScope,
			},
			{
				"InvalidTokenHeader",
				`Bearer realm="spotify", error="invalid_token"`,
				`{}`,
				shared.ErrTokenInvalid,
			},
			{
				"ScopeMessage",
				"",
				`{"error":{"status":403,"message":"Insufficient client scope"}}`,
				shared.ErrInsufficientScope,
			},
			{
				"UnregisteredMessage",
				"",
				`{"error":{"status":403,"message":"User not registered in the Developer Dashboard"}}`,
				shared.ErrUserNotRegistered,
			},
			{
				"HeaderBeatsMessage",
				`error="insufficient_scope"`,
				`{"error":{"message":"user not registered"}}`,
				shared.ErrInsufficientScope,
			},
			{
				"Fallback",
				"",
				`{"error":{"message":"Something opaque"}}`,
				shared.ErrForbidden,
			},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				header := http.Header{}
				if tc.wwwAuth != "" {
					header.Set("www-authenticate", tc.wwwAuth)
				}
				err := classifyResponse("/p", 403, header, []byte(tc.body))
				if !errors.Is(err, tc.want) {
					t.Errorf("expected %v, got %v", tc.want, err)
				}
			})
		}
	})

	t.Run("Forbidden Detail", func(t *testing.T) {
		header := http.Header{}
		header.Set("sp-trace-id", "trace-123")
		header.Set("www-authenticate", "Bearer realm=spotify")

		err := classifyResponse("/p", 403, header, []byte(`{"error":{"message":"Opaque denial"}}`))
		if !errors.Is(err, shared.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		msg := err.Error()
		if !strings.Contains(msg, "Opaque denial") {
			t.Error("expected upstream message in detail")
		}
		if !strings.Contains(msg, " | sp-trace-id: trace-123") {
			t.Error("expected trace id suffix")
		}
		if !strings.Contains(msg, " | www-authenticate: bearer realm=spotify") {
			t.Error("expected lowercased www-authenticate suffix")
		}
	})

	t.Run("Upstream Detail Truncated", func(t *testing.T) {
		long := strings.Repeat("z", 2000)
		header := http.Header{}
		header.Set("sp-trace-id", "t-1")

		err := classifyResponse("/p", 503, header, []byte(long))
		if !errors.Is(err, shared.ErrUpstream) {
			t.Fatalf("expected ErrUpstream, got %v", err)
		}
		if strings.Contains(err.Error(), strings.Repeat("z", shared.DetailLimit+1)) {
			t.Error("diagnostic should be truncated to the detail limit")
		}
		if !strings.Contains(err.Error(), "status 503") {
			t.Error("expected numeric status in error")
		}
		if !strings.Contains(err.Error(), "sp-trace-id: t-1") {
			t.Error("expected trace id suffix")
		}
	})
}

func TestRetryAfterDelay(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"Missing", "", time.Second},
		{"Garbage", "soon", time.Second},
		{"Normal", "2", 2 * time.Second},
		{"Fractional", "1.5", 1500 * time.Millisecond},
		{"ClampLow", "0.1", 500 * time.Millisecond},
		{"ClampHigh", "300", 30 * time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := retryAfterDelay(tc.header); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingToken", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
		_, err := svc.TopTracks(ctx, "", 50, "medium_term")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument for empty token, got %v", err)
		}
	})

	t.Run("TopTracks", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/top/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("expected bearer header, got %q", got)
			}
			if got := r.URL.Query().Get("time_range"); got != "short_term" {
				t.Errorf("expected time_range short_term, got %q", got)
			}
			if got := r.URL.Query().Get("limit"); got != "10" {
				t.Errorf("expected limit 10, got %q", got)
			}
			w.Write([]byte(`{"items":[{"id":"a","name":"A","artists":[{"name":"X"},{"name":"Y"}]}]}`))
		})

		tracks, err := svc.TopTracks(ctx, "tok", 10, "short_term")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 || tracks[0].ID != "a" {
			t.Fatalf("unexpected tracks %v", tracks)
		}
		if tracks[0].ArtistNames() != "X, Y" {
			t.Errorf("expected joined artist names, got %q", tracks[0].ArtistNames())
		}
	})

	t.Run("TopTracks Unauthorized", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := svc.TopTracks(ctx, "tok", 50, "medium_term")
		if !errors.Is(err, shared.ErrTokenInvalid) {
			t.Errorf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("AudioFeaturesBatch Chunking", func(t *testing.T) {
		var chunkSizes []int
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			ids := strings.Split(r.URL.Query().Get("ids"), ",")
			chunkSizes = append(chunkSizes, len(ids))
			w.Write([]byte(`{"audio_features":[{"id":"` + ids[0] + `","danceability":0.5,"energy":0.5,"valence":0.5,"tempo":120,"loudness":-6}]}`))
		})

		ids := make([]string, 250)
		for i := range ids {
			ids[i] = "t" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		}

		features, err := svc.AudioFeaturesBatch(ctx, "tok", ids)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(chunkSizes) != 3 || chunkSizes[0] != 100 || chunkSizes[1] != 100 || chunkSizes[2] != 50 {
			t.Errorf("expected chunks [100 100 50], got %v", chunkSizes)
		}
		if len(features) == 0 {
			t.Error("expected merged feature records")
		}
	})

	t.Run("AudioFeaturesBatch Null Records", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"audio_features":[null,{"id":"","energy":1},{"id":"b","danceability":0.1,"energy":0.2,"valence":0.3,"tempo":100,"loudness":-10}]}`))
		})

		features, err := svc.AudioFeaturesBatch(ctx, "tok", []string{"a", "b", "c"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(features) != 1 {
			t.Fatalf("expected only the valid record, got %d", len(features))
		}
		if _, ok := features["b"]; !ok {
			t.Error("expected record for id b")
		}
	})

	t.Run("AudioFeature", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/audio-features/xyz" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{"id":"xyz","danceability":0.7,"energy":0.8,"valence":0.9,"tempo":128,"loudness":-4}`))
		})

		f, err := svc.AudioFeature(ctx, "tok", "xyz")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		vec, ok := f.Vector()
		if !ok {
			t.Fatal("expected a complete feature vector")
		}
		if vec[3] != 128 {
			t.Errorf("expected tempo 128, got %v", vec[3])
		}
	})

	t.Run("Retry On 429", func(t *testing.T) {
		attempts := 0
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts <= 2 {
				w.Header().Set("Retry-After", "2")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{"id":"a","danceability":0.1,"energy":0.2,"valence":0.3,"tempo":90,"loudness":-12}`))
		})

		var waits []time.Duration
		svc.sleep = func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		}

		if _, err := svc.AudioFeature(ctx, "tok", "a"); err != nil {
			t.Fatalf("expected success after retries, got %v", err)
		}
		if attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts)
		}
		if len(waits) != 2 || waits[0] != 2*time.Second {
			t.Errorf("expected two 2s backoffs, got %v", waits)
		}
	})

	t.Run("Retry Budget Exhausted", func(t *testing.T) {
		attempts := 0
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := svc.AudioFeature(ctx, "tok", "a")
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		if attempts != maxRetries+1 {
			t.Errorf("expected %d attempts, got %d", maxRetries+1, attempts)
		}
	})

	t.Run("No Retry On 429 For Plain Get", func(t *testing.T) {
		attempts := 0
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := svc.TopTracks(ctx, "tok", 50, "medium_term")
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("expected a single attempt, got %d", attempts)
		}
	})

	t.Run("PlaylistTracks Pagination", func(t *testing.T) {
		page := 0
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlists/pl1/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			page++
			if page == 1 {
				w.Write([]byte(`{"items":[{"track":{"id":"a","name":"A"}},{"track":null}],"next":"more"}`))
				return
			}
			w.Write([]byte(`{"items":[{"track":{"id":"b","name":"B"}}],"next":null}`))
		})

		tracks, err := svc.PlaylistTracks(ctx, "tok", "pl1", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 || tracks[0].ID != "a" || tracks[1].ID != "b" {
			t.Fatalf("unexpected tracks %v", tracks)
		}
	})

	t.Run("RecommendedTracks Seeds", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("seed_genres"); got != "pop,dance,rock" {
				t.Errorf("expected default seeds, got %q", got)
			}
			w.Write([]byte(`{"tracks":[{"id":"r1"},{"id":""}]}`))
		})

		tracks, err := svc.RecommendedTracks(ctx, "tok", 20, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 || tracks[0].ID != "r1" {
			t.Fatalf("unexpected tracks %v", tracks)
		}
	})

	t.Run("SearchTracks Stops At Limit", func(t *testing.T) {
		queries := 0
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			queries++
			w.Write([]byte(`{"tracks":{"items":[{"id":"s1"},{"id":"s2"}]}}`))
		})

		tracks, err := svc.SearchTracks(ctx, "tok", 2, []string{"one", "two", "three"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if queries != 1 {
			t.Errorf("expected a single query once limit reached, got %d", queries)
		}
		if len(tracks) != 2 {
			t.Errorf("expected 2 tracks, got %d", len(tracks))
		}
	})
}

func TestVector(t *testing.T) {
	v := 0.5
	t.Run("Complete", func(t *testing.T) {
		f := AudioFeatures{ID: "a", Danceability: &v, Energy: &v, Valence: &v, Tempo: &v, Loudness: &v}
		if _, ok := f.Vector(); !ok {
			t.Error("expected complete record to convert")
		}
	})

	t.Run("MissingField", func(t *testing.T) {
		f := AudioFeatures{ID: "a", Danceability: &v, Energy: &v, Valence: &v, Tempo: &v}
		if _, ok := f.Vector(); ok {
			t.Error("expected record with missing loudness to be unusable")
		}
	})
}
