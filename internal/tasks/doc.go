// Package tasks orchestrates the mood pipeline over the catalog client.
//
// # Core Operations
//
// The [MoodEngine] exposes two operations:
//
//  1. [MoodEngine.Recommend] : listening history → mood playlist
//     - Fetches the user's top tracks (fixed 50-item, medium-term window)
//     - Resiliently fetches audio features for the deduplicated ids
//     - Classifies each usable feature vector and selects mood matches
//     - Backfills with remaining candidates to the requested limit
//
//  2. [MoodEngine.Export] : listening history → tabular feature snapshot
//     - Fetches tracks from the configured source (top tracks by default)
//     - Resiliently fetches audio features
//     - Joins features with track metadata and writes an atomic CSV
//
// # Resilient Fetching
//
// [MoodEngine.FetchFeatures] implements the batch-then-fallback strategy:
// a chunked batch request first, then bounded per-track attempts for the
// ids the batch missed. Per-item failures never propagate; they are
// absorbed into [FetchCounts] so callers can distinguish "upstream is
// down" from "a few tracks have no features" without inspecting errors.
// Only a total batch failure with zero fallback successes returns an
// error, and even then the counters and (empty) map are still returned.
package tasks
