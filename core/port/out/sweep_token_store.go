package out

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ErrTokenNotFound is returned when no credential is stored for an account.
var ErrTokenNotFound = errors.New("token not found")

// TokenStore is the opaque per-account credential boundary. The core never
// inspects tokens; it only moves them between the store and the gateway.
type TokenStore interface {
	Get(ctx context.Context, accountID string) (*oauth2.Token, error)
	Put(ctx context.Context, accountID string, token *oauth2.Token) error
	Delete(ctx context.Context, accountID string) error
	ListAccounts(ctx context.Context) ([]string, error)
}
