// package services defines interface Catalog for the upstream music catalog API
package services

import (
	"context"
	"strings"
)

// Catalog defines the read-only catalog operations the pipeline needs.
// A delegated bearer token is passed per call; implementations hold no
// per-user state.
type Catalog interface {
	// TopTracks retrieves the user's top tracks for a time range.
	TopTracks(ctx context.Context, token string, limit int, timeRange string) ([]Track, error)

	// AudioFeaturesBatch retrieves audio features for many tracks at once,
	// chunking requests to the upstream batch limit. The returned map is
	// keyed by track id; records without an id are dropped.
	AudioFeaturesBatch(ctx context.Context, token string, ids []string) (map[string]AudioFeatures, error)

	// AudioFeature retrieves the audio features of a single track.
	AudioFeature(ctx context.Context, token, id string) (*AudioFeatures, error)

	// PlaylistTracks retrieves up to limit tracks from a playlist.
	PlaylistTracks(ctx context.Context, token, playlistID string, limit int) ([]Track, error)

	// RecommendedTracks retrieves seed-genre based recommendations.
	RecommendedTracks(ctx context.Context, token string, limit int, seedGenres []string) ([]Track, error)

	// SearchTracks retrieves tracks matching a set of free-text queries.
	SearchTracks(ctx context.Context, token string, limit int, queries []string) ([]Track, error)

	// Name returns the name of the upstream provider.
	Name() string
}

// Track represents a catalog track with the metadata the pipeline uses.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []Artist `json:"artists"`
}

// Artist represents a track artist.
type Artist struct {
	Name string `json:"name"`
}

// ArtistNames returns the track's artist names comma-joined, in order.
func (t Track) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

// AudioFeatures is the acoustic descriptor of one track. Fields are pointers
// so an absent or null value is distinguishable from zero; a track with any
// field missing is excluded downstream, never defaulted.
type AudioFeatures struct {
	ID           string   `json:"id"`
	Danceability *float64 `json:"danceability"`
	Energy       *float64 `json:"energy"`
	Valence      *float64 `json:"valence"`
	Tempo        *float64 `json:"tempo"`
	Loudness     *float64 `json:"loudness"`
}

// Vector converts the record to the classifier's 5-dimensional input.
// Reports false when any field is missing.
func (f AudioFeatures) Vector() ([5]float64, bool) {
	var vec [5]float64
	for i, p := range []*float64{f.Danceability, f.Energy, f.Valence, f.Tempo, f.Loudness} {
		if p == nil {
			return vec, false
		}
		vec[i] = *p
	}
	return vec, true
}
