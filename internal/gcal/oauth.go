package gcal

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/BruksfildServices01/portal-scheduler/internal/config"
)

// OAuthConfig builds the Google OAuth2 config for calendar access. Returns
// nil when the integration is not configured.
func OAuthConfig(cfg *config.Config) *oauth2.Config {
	if !cfg.GoogleConfigured() {
		return nil
	}

	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			calendar.CalendarScope,
			calendar.CalendarEventsScope,
			"https://www.googleapis.com/auth/userinfo.email",
		},
		Endpoint: google.Endpoint,
	}
}

// AuthURL returns the consent page URL carrying the signed state.
func AuthURL(cfg *oauth2.Config, state string) string {
	// offline + consent so Google always hands back a refresh token
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}
