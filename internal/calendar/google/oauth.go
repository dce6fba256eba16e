package google

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
)

// calendarScope grants event read/write on the user's calendars.
const calendarScope = "https://www.googleapis.com/auth/calendar.events"

// OAuthFlow drives the three-legged OAuth dance for user calendars.
type OAuthFlow struct {
	cfg *oauth2.Config
}

// NewOAuthFlow builds the flow from client credentials. redirectURL must
// match one of the URLs registered in the Google Cloud console.
func NewOAuthFlow(clientID, clientSecret, redirectURL string) *OAuthFlow {
	return &OAuthFlow{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{calendarScope},
			Endpoint:     googleauth.Endpoint,
		},
	}
}

// AuthURL returns the consent page URL. state is round-tripped through the
// redirect and carries the session ID. offline access is requested so a
// refresh token comes back with the first grant.
func (f *OAuthFlow) AuthURL(state string) string {
	return f.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange trades the redirect's authorization code for tokens.
func (f *OAuthFlow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := f.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google oauth: exchange code: %w", err)
	}
	return tok, nil
}

// TokenSource returns a self-refreshing source seeded with tok.
func (f *OAuthFlow) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return f.cfg.TokenSource(ctx, tok)
}

// ServiceAccountTokenSource builds a token source from a service-account key
// file for deployments that write to a shared calendar without per-user
// consent. The calendar must be shared with the service account's email.
func ServiceAccountTokenSource(ctx context.Context, keyFile string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("google oauth: read service account key: %w", err)
	}
	cfg, err := googleauth.JWTConfigFromJSON(data, calendarScope)
	if err != nil {
		return nil, fmt.Errorf("google oauth: parse service account key: %w", err)
	}
	return cfg.TokenSource(ctx), nil
}
