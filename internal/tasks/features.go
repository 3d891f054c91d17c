package tasks

import (
	"context"

	"github.com/piper-ml/piper/internal/services"
)

// FetchFeatures obtains audio features for the given ids using a batched
// primary path and a bounded per-track fallback path.
//
// The ids are expected to be deduplicated by the caller; empty ids are
// dropped here. The returned map's key set is always a subset of the input
// ids — records are keyed by the id the upstream reports, and an id only
// enters the map through a request for it.
//
// Partial failure never returns an error: batch-phase and per-track errors
// are classified into the counters and the pipeline continues with whatever
// it has. The error return is non-nil only when the batch phase failed and
// the fallback phase recovered nothing, in which case the (empty) map and
// the counters are still valid for degraded handling.
func (e *MoodEngine) FetchFeatures(ctx context.Context, token string, ids []string, maxPerTrackAttempts int) (map[string]services.AudioFeatures, FetchCounts, error) {
	filtered := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			filtered = append(filtered, id)
		}
	}

	counts := FetchCounts{Requested: len(filtered)}
	features := make(map[string]services.AudioFeatures)

	batch, batchErr := e.catalog.AudioFeaturesBatch(ctx, token, filtered)
	if batchErr != nil {
		// Fail open: classify, then let the fallback phase try every id.
		counts.classify(batchErr)
		e.logger.Warn("batch audio-features fetch failed", "requested", counts.Requested, "error", batchErr)
	} else {
		features = batch
		counts.BatchOK = len(batch)
	}

	if maxPerTrackAttempts > 0 {
		for _, id := range filtered {
			if _, ok := features[id]; ok {
				continue
			}

			recovered := false
			for attempt := 0; attempt < maxPerTrackAttempts; attempt++ {
				record, err := e.catalog.AudioFeature(ctx, token, id)
				if err != nil {
					// A classified error stops this id immediately; the
					// per-track budget only covers empty-record responses.
					counts.classify(err)
					break
				}
				if record != nil && record.ID != "" {
					features[record.ID] = *record
					counts.PerTrackOK++
					recovered = true
					break
				}
			}
			if !recovered {
				counts.Failed++
			}
		}
	}

	if batchErr != nil && counts.PerTrackOK == 0 && len(features) == 0 {
		return features, counts, batchErr
	}
	return features, counts, nil
}
