// Package out defines the outbound ports of the core.
package out

import (
	"context"
	"errors"

	"sweep_server/core/domain"
)

// LabelChange is an add/remove label mutation applied by BatchModify.
type LabelChange struct {
	Add    []string
	Remove []string
}

// Label changes for the two supported bulk actions.
var (
	TrashChange = LabelChange{Add: []string{"TRASH"}, Remove: []string{"INBOX"}}
	SpamChange  = LabelChange{Add: []string{"SPAM"}, Remove: []string{"INBOX"}}
)

// ListPage is one page of a message listing. Estimate is the provider's
// guess at the total matching messages; pagination may discover more.
type ListPage struct {
	IDs           []string
	NextPageToken string
	Estimate      int64
}

// BatchResult reports a batch mutation per ID. Partial failure is expected.
type BatchResult struct {
	Succeeded []string
	Failed    []string
}

// FilterCriteria selects the mail a server-side filter matches.
type FilterCriteria struct {
	From string // sender address or bare domain
}

// FilterAction is what a server-side filter does to matching mail.
type FilterAction struct {
	AddLabels    []string
	RemoveLabels []string
}

// MailGateway wraps the remote mail provider. Implementations own token
// refresh and rate-limit backoff; callers see only the error taxonomy below.
type MailGateway interface {
	// Profile returns the mailbox address for a connected account.
	Profile(ctx context.Context, accountID string) (string, error)

	// ListMessageIDs returns one page of message IDs matching query. The
	// query string is provider syntax and passed through verbatim.
	ListMessageIDs(ctx context.Context, accountID, query, pageToken string) (*ListPage, error)

	// FetchMetadata fetches headers, snippet and size for the given IDs.
	// Never the body. IDs that could not be fetched are silently absent
	// from the result; the caller reconciles counts.
	FetchMetadata(ctx context.Context, accountID string, ids []string) ([]domain.MessageRecord, error)

	// BatchModify applies a label change to the IDs in provider-side
	// batches and reports success per ID.
	BatchModify(ctx context.Context, accountID string, ids []string, change LabelChange) (*BatchResult, error)

	// CreateFilter creates a persistent server-side rule. A provider
	// "already exists" response surfaces as GatewayErrAlreadyExists.
	CreateFilter(ctx context.Context, accountID string, criteria FilterCriteria, action FilterAction) (string, error)
}

// GatewayErrorCode classifies gateway failures for retry decisions.
type GatewayErrorCode string

const (
	GatewayErrAuth          GatewayErrorCode = "auth_error"      // refresh once, then surface
	GatewayErrRateLimit     GatewayErrorCode = "rate_limit"      // exponential backoff
	GatewayErrTransient     GatewayErrorCode = "transient_error" // bounded retry
	GatewayErrNotFound      GatewayErrorCode = "not_found"
	GatewayErrAlreadyExists GatewayErrorCode = "already_exists"
	GatewayErrFatal         GatewayErrorCode = "fatal_error" // no retry
)

// GatewayError is the classified form of any provider failure.
type GatewayError struct {
	Code      GatewayErrorCode
	Message   string
	Err       error
	Retryable bool
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a classified gateway error.
func NewGatewayError(code GatewayErrorCode, message string, err error, retryable bool) *GatewayError {
	return &GatewayError{Code: code, Message: message, Err: err, Retryable: retryable}
}

// GatewayCode extracts the classification of err, or GatewayErrFatal when the
// error did not come from a gateway.
func GatewayCode(err error) GatewayErrorCode {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return GatewayErrFatal
}
