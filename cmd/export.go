package main

import (
	"context"

	"github.com/piper-ml/piper/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export runs the feature-export pipeline once and prints the result.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	token, err := r.resolveToken(cmd)
	if err != nil {
		return err
	}

	path := cmd.String("output")
	if path == "" {
		path = r.config.Export.CSVPath
	}

	result, err := r.engine(nil).Export(ctx, token, tasks.ExportOpts{
		Limit:      int(cmd.Int("limit")),
		TimeRange:  cmd.String("time-range"),
		Source:     tasks.ExportSource(cmd.String("source")),
		PlaylistID: cmd.String("playlist-id"),
		Path:       path,
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writeTitle("Export complete")
	r.writePlain("File:            %s\n", result.CSVPath)
	r.writePlain("Rows written:    %d\n", result.RowsWritten)
	r.writePlain("Tracks fetched:  %d\n", result.TracksFetched)
	if result.FailedAudioFeatures > 0 {
		r.writePlain("Missing features: %d\n", result.FailedAudioFeatures)
	}
	return nil
}
