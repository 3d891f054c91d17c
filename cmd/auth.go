package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/piper-ml/piper/internal/server"
	"github.com/piper-ml/piper/internal/services"
	"github.com/piper-ml/piper/internal/shared"
	"github.com/urfave/cli/v3"
)

// Auth runs the OAuth2 authorization-code flow and prints the delegated
// access token the recommend/export operations consume.
//
// A temporary HTTP server is started on the configured address to receive
// the callback; it shuts down as soon as one result arrives.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingConfig)
	}

	oauthConfig := services.NewOAuthConfig(creds.ClientID, creds.ClientSecret, creds.RedirectURI)
	state := shared.GenerateID()
	handler := server.NewOAuthHandler(oauthConfig, state)

	router := server.NewBasicRouter()
	router.Handler(handler)

	srv := &http.Server{Addr: r.config.Addr(), Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Errorf("callback server error: %v", err)
		}
	}()
	defer srv.Shutdown(context.Background())

	r.writeTitle("Spotify authorization")
	r.writePlain("Open this URL in your browser:\n\n%s\n\n", oauthConfig.AuthCodeURL(state))
	r.writeHelp("Waiting for the callback...")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case result := <-handler.Result():
		if result.Error() != nil {
			return result.Error()
		}
		r.writeTitle("Authorization successful")
		r.writePlain("Access token:  %s\n", result.Token.AccessToken)
		if !result.Token.Expiry.IsZero() {
			r.writePlain("Expires:       %s\n", result.Token.Expiry.Format("15:04:05 MST"))
		}
		r.writeHelp("Export it with: export SPOTIFY_ACCESS_TOKEN=<token>")
		return nil
	}
}
