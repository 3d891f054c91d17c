// package formatter writes enriched track data to durable tabular files
package formatter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// FeatureRow is one exported record: track identity plus its five acoustic
// feature values.
type FeatureRow struct {
	TrackID      string
	TrackName    string
	ArtistNames  string
	Danceability float64
	Energy       float64
	Valence      float64
	Tempo        float64
	Loudness     float64
}

var featureHeader = []string{
	"track_id", "track_name", "artist_names",
	"danceability", "energy", "valence", "tempo", "loudness",
}

// WriteFeaturesCSV writes header plus one row per record to path atomically:
// the file is assembled at path+".tmp" and renamed into place, so a partially
// written snapshot is never observable. Concurrent writers to the same path
// race at the rename; last writer wins.
func WriteFeaturesCSV(path string, rows []FeatureRow) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp export file: %w", err)
	}

	writer := csv.NewWriter(f)
	writeErr := writer.Write(featureHeader)
	for _, row := range rows {
		if writeErr != nil {
			break
		}
		writeErr = writer.Write([]string{
			row.TrackID,
			row.TrackName,
			row.ArtistNames,
			formatFloat(row.Danceability),
			formatFloat(row.Energy),
			formatFloat(row.Valence),
			formatFloat(row.Tempo),
			formatFloat(row.Loudness),
		})
	}

	writer.Flush()
	if writeErr == nil {
		writeErr = writer.Error()
	}
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write export file: %w", writeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize export file: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
