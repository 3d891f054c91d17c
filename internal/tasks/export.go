package tasks

import (
	"context"
	"fmt"

	"github.com/piper-ml/piper/internal/formatter"
	"github.com/piper-ml/piper/internal/services"
	"github.com/piper-ml/piper/internal/shared"
)

// ExportSource selects where export candidate tracks come from.
type ExportSource string

const (
	SourceTopTracks       ExportSource = "top"
	SourcePlaylist        ExportSource = "playlist"
	SourceRecommendations ExportSource = "recommendations"
	SourceSearch          ExportSource = "search"
)

// ExportOpts configures one export run. Zero values select the defaults the
// HTTP surface documents: top tracks, limit 50, medium-term window.
type ExportOpts struct {
	Limit      int          // tracks to fetch, 1-50
	TimeRange  string       // short_term, medium_term, long_term (top tracks only)
	Source     ExportSource // candidate track source
	PlaylistID string       // playlist source only; defaults to the trending playlist
	Path       string       // export target file
}

// ExportResult reports what one export run produced.
type ExportResult struct {
	OK                  bool   `json:"ok"`
	CSVPath             string `json:"csvPath"`
	RowsWritten         int    `json:"rowsWritten"`
	TracksFetched       int    `json:"tracksFetched"`
	FailedAudioFeatures int    `json:"failedAudioFeatures"`
}

// Export fetches candidate tracks, resiliently fetches their audio
// features, joins the two, and writes the rows as an atomic CSV snapshot.
//
// The write happens only after at least one row was built: the zero-row
// path errors out first so an existing snapshot at the target is never
// clobbered with an empty file.
func (e *MoodEngine) Export(ctx context.Context, token string, opts ExportOpts) (*ExportResult, error) {
	if opts.Limit <= 0 || opts.Limit > 50 {
		opts.Limit = 50
	}
	if opts.TimeRange == "" {
		opts.TimeRange = historyTimeRange
	}
	if opts.Source == "" {
		opts.Source = SourceTopTracks
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: export path", shared.ErrMissingArgument)
	}

	tracks, err := e.fetchSource(ctx, token, opts)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, shared.ErrNoTopTracks
	}

	ids := DedupeIDs(trackIDs(tracks))
	if len(ids) == 0 {
		return nil, shared.ErrNoTrackIDs
	}

	meta := make(map[string]services.Track, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			meta[t.ID] = t
		}
	}

	features, counts, fetchErr := e.FetchFeatures(ctx, token, ids, perTrackAttempts)
	failed := counts.Failed

	rows := make([]formatter.FeatureRow, 0, len(ids))
	for _, id := range ids {
		track, ok := meta[id]
		if !ok {
			continue
		}
		f, ok := features[id]
		if !ok {
			continue
		}
		vec, ok := f.Vector()
		if !ok {
			failed++
			continue
		}
		rows = append(rows, formatter.FeatureRow{
			TrackID:      id,
			TrackName:    track.Name,
			ArtistNames:  track.ArtistNames(),
			Danceability: vec[0],
			Energy:       vec[1],
			Valence:      vec[2],
			Tempo:        vec[3],
			Loudness:     vec[4],
		})
	}

	if len(rows) == 0 {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, shared.ErrNoAudioFeatures
	}

	if err := formatter.WriteFeaturesCSV(opts.Path, rows); err != nil {
		return nil, err
	}

	e.logger.Info("export complete", "path", opts.Path, "rows", len(rows), "failed_features", failed)

	return &ExportResult{
		OK:                  true,
		CSVPath:             opts.Path,
		RowsWritten:         len(rows),
		TracksFetched:       len(ids),
		FailedAudioFeatures: failed,
	}, nil
}

// fetchSource retrieves candidate tracks from the configured source.
func (e *MoodEngine) fetchSource(ctx context.Context, token string, opts ExportOpts) ([]services.Track, error) {
	switch opts.Source {
	case SourceTopTracks:
		return e.catalog.TopTracks(ctx, token, opts.Limit, opts.TimeRange)
	case SourcePlaylist:
		playlistID := opts.PlaylistID
		if playlistID == "" {
			playlistID = services.TrendingPlaylistID
		}
		return e.catalog.PlaylistTracks(ctx, token, playlistID, opts.Limit)
	case SourceRecommendations:
		return e.catalog.RecommendedTracks(ctx, token, opts.Limit, nil)
	case SourceSearch:
		return e.catalog.SearchTracks(ctx, token, opts.Limit, nil)
	default:
		return nil, fmt.Errorf("%w: unknown export source %q", shared.ErrInvalidInput, opts.Source)
	}
}
