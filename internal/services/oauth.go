package services

import "golang.org/x/oauth2"

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// OAuthScopes are the delegated permissions the pipeline's endpoints need.
var OAuthScopes = []string{
	"user-top-read",
	"playlist-read-private",
}

// NewOAuthConfig builds the OAuth2 config for the Spotify authorization-code
// flow used by the auth helper command.
func NewOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       OAuthScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}
}
