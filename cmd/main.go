package main

import (
	"context"
	"os"

	"github.com/piper-ml/piper/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	shared.LoadDotenv()
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "piper",
		Usage:    "Mood playlists & feature exports from Spotify listening history",
		Version:  Version,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
