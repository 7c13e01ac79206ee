package out

import (
	"context"

	"golang.org/x/oauth2"
)

// OAuthExchanger handles the consent-flow half of the provider adapter: the
// only place a raw token crosses the core is between here and the TokenStore.
type OAuthExchanger interface {
	// AuthURL returns the consent URL for the given CSRF state.
	AuthURL(state string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// ProfileForToken resolves the mailbox address behind a fresh token,
	// before the account has an ID to store it under.
	ProfileForToken(ctx context.Context, token *oauth2.Token) (string, error)
}
