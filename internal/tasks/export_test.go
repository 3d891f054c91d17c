package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/piper-ml/piper/internal/services"
	"github.com/piper-ml/piper/internal/shared"
	mock "github.com/piper-ml/piper/internal/testing"
)

func exportCatalog(tracks []services.Track, records map[string]services.AudioFeatures) *mock.MockCatalog {
	return &mock.MockCatalog{
		TopTracksFunc: func(ctx context.Context, token string, limit int, timeRange string) ([]services.Track, error) {
			return tracks, nil
		},
		AudioFeaturesBatchFunc: func(ctx context.Context, token string, ids []string) (map[string]services.AudioFeatures, error) {
			return records, nil
		},
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()

	t.Run("RequiresPath", func(t *testing.T) {
		engine := NewMoodEngine(&mock.MockCatalog{}, nil, nil)
		_, err := engine.Export(ctx, "tok", ExportOpts{})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("UnknownSource", func(t *testing.T) {
		engine := NewMoodEngine(&mock.MockCatalog{}, nil, nil)
		_, err := engine.Export(ctx, "tok", ExportOpts{Source: "radio", Path: filepath.Join(t.TempDir(), "out.csv")})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("WritesSnapshot", func(t *testing.T) {
		tracks := []services.Track{
			{ID: "a", Name: "First", Artists: []services.Artist{{Name: "X"}, {Name: "Y"}}},
			{ID: "b", Name: "Second", Artists: []services.Artist{{Name: "Z"}}},
		}
		records := map[string]services.AudioFeatures{
			"a": mock.FeatureRecord("a", 0.5, 0.6, 0.7, 120, -6),
			"b": mock.FeatureRecord("b", 0.1, 0.2, 0.3, 90, -12),
		}
		engine := NewMoodEngine(exportCatalog(tracks, records), nil, nil)
		path := filepath.Join(t.TempDir(), "exports", "top.csv")

		result, err := engine.Export(ctx, "tok", ExportOpts{Path: path})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !result.OK || result.CSVPath != path {
			t.Errorf("unexpected result %+v", result)
		}
		if result.RowsWritten != 2 || result.TracksFetched != 2 || result.FailedAudioFeatures != 0 {
			t.Errorf("unexpected result %+v", result)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read snapshot: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
		}
		if !strings.HasPrefix(lines[0], "track_id,track_name,artist_names") {
			t.Errorf("unexpected header %q", lines[0])
		}
		if !strings.Contains(lines[1], `"X, Y"`) && !strings.Contains(lines[1], "X, Y") {
			t.Errorf("expected joined artist names in %q", lines[1])
		}

		if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
			t.Error("temp file left behind after a successful export")
		}
	})

	t.Run("ZeroRowsLeavesSnapshotAlone", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "top.csv")
		if err := os.WriteFile(path, []byte("previous snapshot\n"), 0644); err != nil {
			t.Fatalf("failed to seed snapshot: %v", err)
		}

		tracks := historyTracks("a", "b")
		engine := NewMoodEngine(exportCatalog(tracks, map[string]services.AudioFeatures{}), nil, nil)

		_, err := engine.Export(ctx, "tok", ExportOpts{Path: path})
		if !errors.Is(err, shared.ErrNoAudioFeatures) {
			t.Fatalf("expected ErrNoAudioFeatures, got %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read snapshot: %v", err)
		}
		if string(data) != "previous snapshot\n" {
			t.Error("existing snapshot was clobbered on the zero-row path")
		}
	})

	t.Run("RemembersFetchError", func(t *testing.T) {
		catalog := &mock.MockCatalog{
			TopTracksFunc: func(ctx context.Context, token string, limit int, timeRange string) ([]services.Track, error) {
				return historyTracks("a"), nil
			},
			AudioFeaturesBatchFunc: func(ctx context.Context, token string, ids []string) (map[string]services.AudioFeatures, error) {
				return nil, fmt.Errorf("/audio-features: %w", shared.ErrRateLimited)
			},
			AudioFeatureFunc: func(ctx context.Context, token, id string) (*services.AudioFeatures, error) {
				return nil, fmt.Errorf("/audio-features/%s: %w", id, shared.ErrRateLimited)
			},
		}
		engine := NewMoodEngine(catalog, nil, nil)

		_, err := engine.Export(ctx, "tok", ExportOpts{Path: filepath.Join(t.TempDir(), "top.csv")})
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected the fetch error back on the zero-row path, got %v", err)
		}
	})

	t.Run("IncompleteRecordCounted", func(t *testing.T) {
		tracks := historyTracks("a", "b")
		records := map[string]services.AudioFeatures{
			"a": mock.FeatureRecord("a", 0.5, 0.6, 0.7, 120, -6),
			"b": {ID: "b", Danceability: mock.Float(0.1)}, // missing the rest
		}
		engine := NewMoodEngine(exportCatalog(tracks, records), nil, nil)

		result, err := engine.Export(ctx, "tok", ExportOpts{Path: filepath.Join(t.TempDir(), "top.csv")})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.RowsWritten != 1 || result.FailedAudioFeatures != 1 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("EmptyCandidates", func(t *testing.T) {
		engine := NewMoodEngine(&mock.MockCatalog{}, nil, nil)
		_, err := engine.Export(ctx, "tok", ExportOpts{Path: filepath.Join(t.TempDir(), "top.csv")})
		if !errors.Is(err, shared.ErrNoTopTracks) {
			t.Errorf("expected ErrNoTopTracks, got %v", err)
		}
	})

	t.Run("PlaylistDefaultsToTrending", func(t *testing.T) {
		var gotPlaylist string
		catalog := &mock.MockCatalog{
			PlaylistTracksFunc: func(ctx context.Context, token, playlistID string, limit int) ([]services.Track, error) {
				gotPlaylist = playlistID
				return historyTracks("a"), nil
			},
			AudioFeaturesBatchFunc: func(ctx context.Context, token string, ids []string) (map[string]services.AudioFeatures, error) {
				return map[string]services.AudioFeatures{
					"a": mock.FeatureRecord("a", 0.5, 0.6, 0.7, 120, -6),
				}, nil
			},
		}
		engine := NewMoodEngine(catalog, nil, nil)

		_, err := engine.Export(ctx, "tok", ExportOpts{Source: SourcePlaylist, Path: filepath.Join(t.TempDir(), "top.csv")})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotPlaylist != services.TrendingPlaylistID {
			t.Errorf("expected the trending playlist default, got %q", gotPlaylist)
		}
	})

	t.Run("LimitClamped", func(t *testing.T) {
		var gotLimit int
		catalog := &mock.MockCatalog{
			TopTracksFunc: func(ctx context.Context, token string, limit int, timeRange string) ([]services.Track, error) {
				gotLimit = limit
				return historyTracks("a"), nil
			},
			AudioFeaturesBatchFunc: func(ctx context.Context, token string, ids []string) (map[string]services.AudioFeatures, error) {
				return map[string]services.AudioFeatures{
					"a": mock.FeatureRecord("a", 0.5, 0.6, 0.7, 120, -6),
				}, nil
			},
		}
		engine := NewMoodEngine(catalog, nil, nil)

		_, err := engine.Export(ctx, "tok", ExportOpts{Limit: 500, Path: filepath.Join(t.TempDir(), "top.csv")})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotLimit != 50 {
			t.Errorf("expected out-of-range limit to reset to 50, got %d", gotLimit)
		}
	})
}
