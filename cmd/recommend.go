package main

import (
	"context"

	"github.com/piper-ml/piper/internal/mood"
	"github.com/urfave/cli/v3"
)

// Recommend runs the recommendation pipeline once and prints the playlist.
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	token, err := r.resolveToken(cmd)
	if err != nil {
		return err
	}

	m, err := mood.ParseMood(cmd.String("mood"))
	if err != nil {
		return err
	}

	limit := int(cmd.Int("limit"))
	if limit < 1 || limit > 50 {
		limit = 20
	}

	classifier, err := r.loadClassifier()
	if err != nil {
		return err
	}

	trackIDs, err := r.engine(classifier).Recommend(ctx, token, m, limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string][]string{"trackIds": trackIDs}, cmd.Bool("pretty"))
	}

	r.writeTitle("Tracks for mood: " + m.String())
	for i, id := range trackIDs {
		if err := r.writePlain("%2d. %s\n", i+1, id); err != nil {
			return err
		}
	}
	r.writeHelp("Open any id at https://open.spotify.com/track/<id>")
	return nil
}
