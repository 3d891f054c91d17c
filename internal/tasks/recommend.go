package tasks

import (
	"context"
	"fmt"

	"github.com/piper-ml/piper/internal/mood"
	"github.com/piper-ml/piper/internal/shared"
)

const (
	// The recommendation path always looks at the same fixed history window.
	historyLimit     = 50
	historyTimeRange = "medium_term"

	// perTrackAttempts bounds the fallback phase of each resilient fetch.
	perTrackAttempts = 2
)

// Recommend builds a playlist of track ids matching the requested mood from
// the user's listening history.
//
// Tracks whose predicted class equals the mood are selected in original
// order, then backfilled with the remaining candidates (also in original
// order) up to limit. When no features are usable at all the first limit
// raw ids are returned unclassified — degraded, but never empty — unless
// the fetch counters show the upstream rejected the token outright.
func (e *MoodEngine) Recommend(ctx context.Context, token string, m mood.Mood, limit int) ([]string, error) {
	if e.classifier == nil {
		return nil, shared.ErrModelNotLoaded
	}

	tracks, err := e.catalog.TopTracks(ctx, token, historyLimit, historyTimeRange)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		// New users often have no history yet. Unrelated "popular" tracks
		// are never injected into the model input; the caller owns any
		// cold-start fallback.
		return nil, shared.ErrNoTopTracks
	}

	ids := DedupeIDs(trackIDs(tracks))
	if len(ids) == 0 {
		return nil, shared.ErrNoTrackIDs
	}

	features, counts, _ := e.FetchFeatures(ctx, token, ids, perTrackAttempts)
	e.logger.Debug("feature fetch complete",
		"requested", counts.Requested, "batch_ok", counts.BatchOK,
		"per_track_ok", counts.PerTrackOK, "failed", counts.Failed)

	vectors := make([][mood.NumFeatures]float64, 0, len(ids))
	ordered := make([]string, 0, len(ids))
	for _, id := range ids {
		f, ok := features[id]
		if !ok {
			continue
		}
		vec, ok := f.Vector()
		if !ok {
			continue
		}
		vectors = append(vectors, vec)
		ordered = append(ordered, id)
	}

	if len(vectors) == 0 {
		if counts.Unauthorized > 0 && len(features) == 0 {
			return nil, fmt.Errorf("audio features: %w", shared.ErrTokenInvalid)
		}
		if limit < len(ids) {
			return ids[:limit], nil
		}
		return ids, nil
	}

	preds := e.classifier.Predict(vectors)

	target := m.Index()
	picked := make([]string, 0, limit)
	for i, id := range ordered {
		if preds[i] == target {
			picked = append(picked, id)
		}
	}

	if len(picked) < limit {
		selected := make(map[string]struct{}, len(picked))
		for _, id := range picked {
			selected[id] = struct{}{}
		}
		for _, id := range ordered {
			if _, ok := selected[id]; !ok {
				picked = append(picked, id)
			}
		}
	}

	if len(picked) > limit {
		picked = picked[:limit]
	}
	return picked, nil
}
