// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/piper-ml/piper/internal/services"
)

// MockCatalog is a test double for [services.Catalog]. Each method delegates
// to the corresponding function field when set and returns zero values
// otherwise.
type MockCatalog struct {
	TopTracksFunc          func(ctx context.Context, token string, limit int, timeRange string) ([]services.Track, error)
	AudioFeaturesBatchFunc func(ctx context.Context, token string, ids []string) (map[string]services.AudioFeatures, error)
	AudioFeatureFunc       func(ctx context.Context, token, id string) (*services.AudioFeatures, error)
	PlaylistTracksFunc     func(ctx context.Context, token, playlistID string, limit int) ([]services.Track, error)
	RecommendedTracksFunc  func(ctx context.Context, token string, limit int, seedGenres []string) ([]services.Track, error)
	SearchTracksFunc       func(ctx context.Context, token string, limit int, queries []string) ([]services.Track, error)
}

func (m *MockCatalog) TopTracks(ctx context.Context, token string, limit int, timeRange string) ([]services.Track, error) {
	if m.TopTracksFunc != nil {
		return m.TopTracksFunc(ctx, token, limit, timeRange)
	}
	return nil, nil
}

func (m *MockCatalog) AudioFeaturesBatch(ctx context.Context, token string, ids []string) (map[string]services.AudioFeatures, error) {
	if m.AudioFeaturesBatchFunc != nil {
		return m.AudioFeaturesBatchFunc(ctx, token, ids)
	}
	return map[string]services.AudioFeatures{}, nil
}

func (m *MockCatalog) AudioFeature(ctx context.Context, token, id string) (*services.AudioFeatures, error) {
	if m.AudioFeatureFunc != nil {
		return m.AudioFeatureFunc(ctx, token, id)
	}
	return nil, nil
}

func (m *MockCatalog) PlaylistTracks(ctx context.Context, token, playlistID string, limit int) ([]services.Track, error) {
	if m.PlaylistTracksFunc != nil {
		return m.PlaylistTracksFunc(ctx, token, playlistID, limit)
	}
	return nil, nil
}

func (m *MockCatalog) RecommendedTracks(ctx context.Context, token string, limit int, seedGenres []string) ([]services.Track, error) {
	if m.RecommendedTracksFunc != nil {
		return m.RecommendedTracksFunc(ctx, token, limit, seedGenres)
	}
	return nil, nil
}

func (m *MockCatalog) SearchTracks(ctx context.Context, token string, limit int, queries []string) ([]services.Track, error) {
	if m.SearchTracksFunc != nil {
		return m.SearchTracksFunc(ctx, token, limit, queries)
	}
	return nil, nil
}

func (m *MockCatalog) Name() string { return "mock" }

// Float returns a pointer to v, for building [services.AudioFeatures] literals.
func Float(v float64) *float64 { return &v }

// FeatureRecord builds a complete feature record for a track id.
func FeatureRecord(id string, danceability, energy, valence, tempo, loudness float64) services.AudioFeatures {
	return services.AudioFeatures{
		ID:           id,
		Danceability: Float(danceability),
		Energy:       Float(energy),
		Valence:      Float(valence),
		Tempo:        Float(tempo),
		Loudness:     Float(loudness),
	}
}

// WriteClassifierFixtures writes passthrough classifier artifacts into dir
// and returns their paths.
//
// The fixture network copies each of the five inputs through to the logits
// (everything else zero), with an identity scaler, so the predicted class
// for a row of non-negative values is simply the index of its maximum. That
// makes test expectations computable by hand.
func WriteClassifierFixtures(t *testing.T, dir string) (weightsPath, scalerPath string) {
	t.Helper()

	weightsPath = filepath.Join(dir, "mood_weights.json")
	scalerPath = filepath.Join(dir, "scaler.json")

	weights := map[string]any{
		"fc1": passthroughLayer(64, 5),
		"fc2": passthroughLayer(32, 64),
		"fc3": passthroughLayer(5, 32),
	}
	scaler := map[string]any{
		"mean":  []float64{0, 0, 0, 0, 0},
		"scale": []float64{1, 1, 1, 1, 1},
	}

	writeJSON(t, weightsPath, weights)
	writeJSON(t, scalerPath, scaler)
	return weightsPath, scalerPath
}

// passthroughLayer builds an out×in layer whose top-left block is the
// identity, with zero biases.
func passthroughLayer(out, in int) map[string]any {
	weights := make([][]float64, out)
	for i := range weights {
		weights[i] = make([]float64, in)
		if i < in {
			weights[i][i] = 1
		}
	}
	return map[string]any{
		"weights": weights,
		"biases":  make([]float64, out),
	}
}

func writeJSON(t *testing.T, path string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("failed to marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
}
