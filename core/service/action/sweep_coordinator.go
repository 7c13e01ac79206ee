// Package action implements bulk mutations against scanned targets.
package action

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"sweep_server/core/domain"
	"sweep_server/core/port/in"
	"sweep_server/core/port/out"
	"sweep_server/pkg/apperr"
)

// ResultStore is the slice of the scan orchestrator the coordinator needs:
// resolving a target to its scanned message IDs and keeping the groups
// consistent with what the provider acknowledged.
type ResultStore interface {
	ResolveTarget(target domain.ActionTarget) ([]string, error)
	RemoveScanned(accountID string, ids []string)
	UnsubscribeLink(accountID, senderEmail string) (string, error)
}

// Coordinator applies trash/spam/filter operations to whole sender or domain
// groups. It acts on what was scanned, never on a fresh listing.
type Coordinator struct {
	gateway out.MailGateway
	store   ResultStore
	log     zerolog.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(gateway out.MailGateway, store ResultStore, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		gateway: gateway,
		store:   store,
		log:     log.With().Str("component", "action").Logger(),
	}
}

// Apply trashes or spams every scanned message of the target. Only the IDs
// the provider acknowledged leave the groups; failed IDs stay behind so the
// exact remainder can be retried.
func (c *Coordinator) Apply(ctx context.Context, action domain.BulkAction, target domain.ActionTarget) (*domain.ActionResult, error) {
	if !action.Valid() {
		return nil, apperr.BadRequest("unknown action: " + string(action))
	}

	ids, err := c.store.ResolveTarget(target)
	if err != nil {
		return nil, err
	}

	change := out.TrashChange
	if action == domain.ActionSpam {
		change = out.SpamChange
	}

	batch, err := c.gateway.BatchModify(ctx, target.AccountID, ids, change)
	if err != nil {
		return nil, gatewayErr(err, target.AccountID)
	}

	c.store.RemoveScanned(target.AccountID, batch.Succeeded)

	c.log.Info().
		Str("action", string(action)).
		Str("account", target.AccountID).
		Str("sender", target.SenderEmail).
		Str("domain", target.Domain).
		Int("succeeded", len(batch.Succeeded)).
		Int("failed", len(batch.Failed)).
		Msg("bulk action applied")

	return &domain.ActionResult{
		Succeeded: len(batch.Succeeded),
		Failed:    len(batch.Failed),
		FailedIDs: batch.Failed,
	}, nil
}

// Unsubscribe returns the stored unsubscribe link for a sender. No group is
// mutated; following the link is the caller's business.
func (c *Coordinator) Unsubscribe(accountID, senderEmail string) (string, error) {
	return c.store.UnsubscribeLink(accountID, senderEmail)
}

// CreateFilter creates a server-side rule matching the target's sender or
// domain. Success does not touch the result set: a filter only affects
// future mail.
func (c *Coordinator) CreateFilter(ctx context.Context, target domain.ActionTarget, action domain.BulkAction) (*in.FilterResult, error) {
	if !action.Valid() {
		return nil, apperr.BadRequest("unknown action: " + string(action))
	}

	var criteria out.FilterCriteria
	switch {
	case target.SenderEmail != "":
		criteria.From = target.SenderEmail
	case target.Domain != "":
		criteria.From = target.Domain
	default:
		return nil, apperr.BadRequest("target needs a sender email or a domain")
	}

	filterAction := out.FilterAction{
		AddLabels:    []string{"TRASH"},
		RemoveLabels: []string{"INBOX"},
	}
	if action == domain.ActionSpam {
		filterAction.AddLabels = []string{"SPAM"}
	}

	id, err := c.gateway.CreateFilter(ctx, target.AccountID, criteria, filterAction)
	if err != nil {
		if out.GatewayCode(err) == out.GatewayErrAlreadyExists {
			return &in.FilterResult{AlreadyExisted: true}, nil
		}
		return nil, gatewayErr(err, target.AccountID)
	}

	c.log.Info().Str("account", target.AccountID).Str("from", criteria.From).Str("filter_id", id).Msg("filter created")
	return &in.FilterResult{FilterID: id}, nil
}

// gatewayErr maps a classified gateway error onto the API error surface.
func gatewayErr(err error, accountID string) error {
	var ge *out.GatewayError
	if !errors.As(err, &ge) {
		return apperr.InternalWithError(err)
	}
	switch ge.Code {
	case out.GatewayErrAuth:
		return apperr.AuthExpired(accountID).WithError(err)
	case out.GatewayErrRateLimit:
		return apperr.RateLimited("").WithError(err)
	case out.GatewayErrNotFound:
		return apperr.NotFound("provider resource").WithError(err)
	default:
		return apperr.ExternalError("mail provider", err)
	}
}

var _ in.ActionService = (*Coordinator)(nil)
