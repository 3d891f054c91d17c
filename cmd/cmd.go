// submodule cmd contains command definitions
package main

import (
	"context"

	"github.com/piper-ml/piper/internal/shared"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func tokenFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "token",
		Aliases: []string{"t"},
		Usage:   "Delegated Spotify access token (defaults to SPOTIFY_ACCESS_TOKEN)",
	}
}

// serveCommand runs the HTTP service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the mood service HTTP server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Bind address (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Bind port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// recommendCommand runs the recommendation pipeline once
func recommendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "recommend",
		Aliases: []string{"rec"},
		Usage:   "Recommend track ids for a mood from your listening history",
		Flags: []cli.Flag{
			configFlag(),
			tokenFlag(),
			&cli.StringFlag{
				Name:     "mood",
				Aliases:  []string{"m"},
				Usage:    "Target mood: Happy, Calm, Neutral, Sad, or \"Very Sad\"",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of tracks to return (1-50)",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.Recommend,
	}
}

// exportCommand runs the feature export pipeline once
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export track audio features to CSV",
		Flags: []cli.Flag{
			configFlag(),
			tokenFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of tracks to fetch (1-50)",
				Value: 50,
			},
			&cli.StringFlag{
				Name:  "time-range",
				Usage: "History window: short_term, medium_term, long_term",
				Value: "medium_term",
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "Track source: top, playlist, recommendations, search",
				Value: "top",
			},
			&cli.StringFlag{
				Name:  "playlist-id",
				Usage: "Playlist to read when --source=playlist (defaults to the trending playlist)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (defaults to the configured export path)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.Export,
	}
}

// authCommand obtains a delegated access token via OAuth2
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authenticate with Spotify and print an access token",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Auth,
	}
}

// configCommand manages the configuration file
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Destination path",
						Value: "config.toml",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := cmd.String("path")
					if err := shared.CreateConfigFile(path); err != nil {
						return err
					}
					return r.writePlain("Wrote %s\n", path)
				},
			},
		},
	}
}
