package tasks

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/piper-ml/piper/internal/mood"
	"github.com/piper-ml/piper/internal/services"
	"github.com/piper-ml/piper/internal/shared"
)

// MoodEngine orchestrates recommendation and export pipelines over a
// [services.Catalog] and an optional [mood.Classifier].
type MoodEngine struct {
	catalog    services.Catalog
	classifier *mood.Classifier
	logger     *log.Logger
}

// NewMoodEngine creates an engine. The classifier may be nil for export-only
// use; [MoodEngine.Recommend] requires it.
func NewMoodEngine(catalog services.Catalog, classifier *mood.Classifier, logger *log.Logger) *MoodEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MoodEngine{
		catalog:    catalog,
		classifier: classifier,
		logger:     logger,
	}
}

// FetchCounts accounts for every id requested in one resilient fetch call.
// Created empty per call, mutated only by that call, and discarded once the
// caller has consumed it.
type FetchCounts struct {
	Requested    int `json:"requested"`
	BatchOK      int `json:"batch_ok"`
	PerTrackOK   int `json:"per_track_ok"`
	Failed       int `json:"failed"`
	Unauthorized int `json:"unauthorized"`
	Forbidden    int `json:"forbidden"`
	RateLimited  int `json:"rate_limited"`
	OtherError   int `json:"other_error"`
}

// classify buckets an upstream error into the outcome counters.
func (c *FetchCounts) classify(err error) {
	switch {
	case errors.Is(err, shared.ErrTokenInvalid):
		c.Unauthorized++
	case errors.Is(err, shared.ErrInsufficientScope),
		errors.Is(err, shared.ErrUserNotRegistered),
		errors.Is(err, shared.ErrForbidden):
		c.Forbidden++
	case errors.Is(err, shared.ErrRateLimited):
		c.RateLimited++
	default:
		c.OtherError++
	}
}

// DedupeIDs returns the ids with empties dropped and duplicates removed,
// preserving first-seen order.
func DedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// trackIDs extracts the non-empty ids from a track list, in order.
func trackIDs(tracks []services.Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
