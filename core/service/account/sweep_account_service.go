// Package account manages the OAuth lifecycle of connected mailboxes.
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"sweep_server/core/domain"
	"sweep_server/core/port/in"
	"sweep_server/core/port/out"
	"sweep_server/pkg/apperr"
)

// Service connects and disconnects accounts. The account ID is the lower-
// cased mailbox address; the token store is the only place the credential
// ever lives.
type Service struct {
	oauth  out.OAuthExchanger
	tokens out.TokenStore
	scans  in.ScanService
	log    zerolog.Logger
}

// NewService creates an account service.
func NewService(oauth out.OAuthExchanger, tokens out.TokenStore, scans in.ScanService, log zerolog.Logger) *Service {
	return &Service{
		oauth:  oauth,
		tokens: tokens,
		scans:  scans,
		log:    log.With().Str("component", "account").Logger(),
	}
}

// List returns every account with a stored credential.
func (s *Service) List(ctx context.Context) ([]domain.Account, error) {
	ids, err := s.tokens.ListAccounts(ctx)
	if err != nil {
		return nil, apperr.InternalWithError(err)
	}
	accounts := make([]domain.Account, len(ids))
	for i, id := range ids {
		accounts[i] = domain.Account{ID: id, Email: id, Connected: true}
	}
	return accounts, nil
}

// AuthURL returns the provider consent URL for the given CSRF state.
func (s *Service) AuthURL(state string) string {
	return s.oauth.AuthURL(state)
}

// Connect exchanges an authorization code, resolves the mailbox address and
// stores the credential under it. Reconnecting an already-connected mailbox
// just refreshes its stored token.
func (s *Service) Connect(ctx context.Context, code string) (*domain.Account, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.OAuthFailed(err)
	}

	email, err := s.oauth.ProfileForToken(ctx, token)
	if err != nil {
		return nil, apperr.OAuthFailed(err)
	}
	id := strings.ToLower(email)

	if err := s.tokens.Put(ctx, id, token); err != nil {
		return nil, apperr.InternalWithError(err)
	}

	s.log.Info().Str("account", id).Msg("account connected")
	return &domain.Account{ID: id, Email: email, Connected: true}, nil
}

// Disconnect deletes the stored credential and drops the account's cached
// scan results. A running scan for the account will fail on its next
// provider call, which is the intended outcome.
func (s *Service) Disconnect(ctx context.Context, accountID string) error {
	if err := s.tokens.Delete(ctx, accountID); err != nil {
		if errors.Is(err, out.ErrTokenNotFound) {
			return apperr.NotFound("account")
		}
		return apperr.InternalWithError(err)
	}
	s.scans.DropAccount(accountID)
	s.log.Info().Str("account", accountID).Msg("account disconnected")
	return nil
}

var _ in.AccountService = (*Service)(nil)
